package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/onestep-solution/field-service-api/config"
	"github.com/onestep-solution/field-service-api/middleware"
	"github.com/onestep-solution/field-service-api/models"
	"github.com/onestep-solution/field-service-api/services"
)

// UpdateLocationRequest represents a technician location ping
type UpdateLocationRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

// UpdateLocation handles PATCH /api/v1/work/update-location - stores the
// technician's live position. The first ping after a job is accepted also
// moves that job to dispatch (en route), exactly once.
func UpdateLocation(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "lat and lng are required",
				"details": err.Error(),
			},
		})
		return
	}

	db := config.GetDB()
	now := time.Now()
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"lat":                  *req.Lat,
		"lng":                  *req.Lng,
		"last_location_update": now,
		"on_duty":              true,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update location",
			},
		})
		return
	}

	// A ping while holding an accepted job means the technician is moving:
	// taken/approved works flip to dispatch. Works already dispatched or in
	// progress are left alone, so the flip happens once.
	var active models.Work
	dispatched := false
	etaMessage := ""
	if err := db.Where("technician_id = ? AND status IN ?", user.ID,
		[]models.WorkStatus{models.StatusTaken, models.StatusApproved}).
		First(&active).Error; err == nil {
		if active.Status.CanTransitionTo(models.StatusDispatch) {
			if err := db.Model(&active).Update("status", models.StatusDispatch).Error; err == nil {
				dispatched = true
				active.Status = models.StatusDispatch

				if active.HasCoordinates() {
					if routing := services.GetRoutingService(); routing != nil {
						eta, etaErr := routing.ETA(
							services.Coordinates{Lat: *req.Lat, Lng: *req.Lng},
							services.Coordinates{Lat: *active.Lat, Lng: *active.Lng},
						)
						etaMessage = services.ETAMessage(eta, etaErr)
					}
				}
				if etaMessage == "" {
					etaMessage = services.ETANotAvailable
				}

				if notifier := services.GetNotifier(); notifier != nil {
					notifier.Notify(active.ClientID, "client", "Technician on the way",
						user.Name+" is heading to your location. ETA: "+etaMessage,
						"info", "/client/works")
				}
			}
		}
	}

	data := gin.H{
		"lat":        *req.Lat,
		"lng":        *req.Lng,
		"updated_at": now,
	}
	if dispatched {
		data["work"] = active
		data["eta"] = etaMessage
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// TrackTechnician handles GET /api/v1/track-technician/:workId - the client
// (or assigned technician) reads the technician's live position and a
// best-effort ETA to the job site
func TrackTechnician(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	workID, err := strconv.ParseUint(c.Param("workId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid work id",
			},
		})
		return
	}

	db := config.GetDB()
	var work models.Work
	if err := db.First(&work, uint(workID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "WORK_NOT_FOUND",
				"message": "Work request not found",
			},
		})
		return
	}

	if work.TechnicianID == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_TECHNICIAN",
				"message": "No technician is assigned to this request yet",
			},
		})
		return
	}

	if work.ClientID != user.ID && !work.AssignedTo(user.ID) && user.Role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You are not a party to this work request",
			},
		})
		return
	}

	var technician models.User
	if err := db.First(&technician, *work.TechnicianID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "TECHNICIAN_NOT_FOUND",
				"message": "Technician not found",
			},
		})
		return
	}

	if !technician.HasCoordinates() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_LOCATION",
				"message": "The technician has not shared a location yet",
			},
		})
		return
	}

	// Tracking degrades gracefully: position is always returned, the ETA
	// falls back to a sentinel when routing fails or coordinates are missing.
	etaMessage := services.ETANotAvailable
	var eta *services.ETA
	if work.HasCoordinates() {
		if routing := services.GetRoutingService(); routing != nil {
			var etaErr error
			eta, etaErr = routing.ETA(
				services.Coordinates{Lat: *technician.Lat, Lng: *technician.Lng},
				services.Coordinates{Lat: *work.Lat, Lng: *work.Lng},
			)
			etaMessage = services.ETAMessage(eta, etaErr)
			if etaErr != nil {
				eta = nil
			}
		}
	}

	data := gin.H{
		"technician": gin.H{
			"id":                   technician.ID,
			"name":                 technician.Name,
			"lat":                  technician.Lat,
			"lng":                  technician.Lng,
			"last_location_update": technician.LastLocationUpdate,
		},
		"work_status": work.Status,
		"eta_message": etaMessage,
	}
	if eta != nil {
		data["eta"] = eta
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
