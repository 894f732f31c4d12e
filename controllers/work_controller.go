package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/onestep-solution/field-service-api/config"
	"github.com/onestep-solution/field-service-api/middleware"
	"github.com/onestep-solution/field-service-api/models"
	"github.com/onestep-solution/field-service-api/services"
	"github.com/onestep-solution/field-service-api/utils"
	"gorm.io/gorm"
)

// CreateWorkRequest represents the request body for creating a service request
type CreateWorkRequest struct {
	ServiceType    string   `json:"service_type" binding:"required"`
	Specialization []string `json:"specialization" binding:"required,min=1"`
	Description    string   `json:"description"`
	Location       string   `json:"location" binding:"required"`
	ServiceCharge  float64  `json:"service_charge"`
	Lat            *float64 `json:"lat"`
	Lng            *float64 `json:"lng"`
	// Optional pre-assignment: the request starts in "taken" instead of "open".
	TechnicianID *uint `json:"technician_id"`
}

// FindTechniciansRequest represents the matching query
type FindTechniciansRequest struct {
	Specialization []string `json:"specialization" binding:"required,min=1"`
	Location       string   `json:"location" binding:"required"`
}

// BookTechnicianRequest represents the request body for booking a technician
type BookTechnicianRequest struct {
	WorkID       uint       `json:"work_id" binding:"required"`
	TechnicianID uint       `json:"technician_id" binding:"required"`
	Date         *time.Time `json:"date"` // requested schedule, defaults to now
}

// ApproveJobRequest represents the request body for a technician claiming a job
type ApproveJobRequest struct {
	WorkID uint `json:"work_id" binding:"required"`
}

// ReportIssueRequest represents the request body for a field issue report
type ReportIssueRequest struct {
	WorkID    uint   `json:"work_id" binding:"required"`
	IssueType string `json:"issue_type" binding:"required"`
	Remarks   string `json:"remarks"`
}

// CreateWork handles POST /api/v1/work/create - a client opens a new service request
func CreateWork(c *gin.Context) {
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

	var req CreateWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "service_type, specialization and location are required",
				"details": err.Error(),
			},
		})
		return
	}

	// Job-site coordinates: body first, then the client's last known position.
	lat, lng := req.Lat, req.Lng
	if lat == nil || lng == nil {
		lat, lng = user.Lat, user.Lng
	}
	if lat == nil || lng == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Job-site coordinates are required; send lat/lng or update your profile location",
			},
		})
		return
	}

	db := config.GetDB()

	// A pre-assigned technician skips the open marketplace phase entirely.
	var preassigned *models.User
	if req.TechnicianID != nil {
		var technician models.User
		if err := db.Where("id = ? AND role = ?", *req.TechnicianID, "technician").First(&technician).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "TECHNICIAN_NOT_FOUND",
					"message": "Technician not found",
				},
			})
			return
		}
		preassigned = &technician
	}

	work := models.Work{
		ClientID:       user.ID,
		ServiceType:    req.ServiceType,
		Specialization: models.JoinTags(req.Specialization),
		Description:    req.Description,
		Location:       normalizeLocation(req.Location),
		ServiceCharge:  req.ServiceCharge,
		Lat:            lat,
		Lng:            lng,
		Status:         models.StatusOpen,
	}
	if preassigned != nil {
		work.TechnicianID = &preassigned.ID
		work.Status = models.StatusTaken
	}

	if err := db.Create(&work).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create work request",
			},
		})
		return
	}

	// Token needs the row id, so it is assigned after the insert.
	work.Token = utils.GenerateWorkToken(work.ID)
	if err := db.Model(&work).Update("token", work.Token).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to assign work token",
			},
		})
		return
	}

	// Persist the coordinates back onto the client profile when they came in
	// the body, so later requests can default to them.
	if req.Lat != nil && req.Lng != nil {
		now := time.Now()
		db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"lat":                  *req.Lat,
			"lng":                  *req.Lng,
			"last_location_update": now,
		})
	}

	// Matching only runs for open requests; a pre-assigned job already has
	// its technician.
	var candidates []services.TechnicianCandidate
	if preassigned == nil {
		candidates, err = services.FindCandidates(db, req.Specialization, req.Location)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to search for technicians",
				},
			})
			return
		}
	}

	if notifier := services.GetNotifier(); notifier != nil {
		notifier.Notify(user.ID, "client", "Request created",
			"Your service request "+work.Token+" has been created", "success", "/client/works")
		if preassigned != nil {
			notifier.Notify(preassigned.ID, "technician", "New job assigned",
				"You have been assigned "+work.ServiceType+" ("+work.Token+")", "info", "/technician/works")
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"work":        work,
			"technicians": candidates,
		},
	})
}

// FindTechnicians handles POST /api/v1/work/find-technicians - matches
// technicians by specialization tags and location substring
func FindTechnicians(c *gin.Context) {
	var req FindTechniciansRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "specialization and location are required",
				"details": err.Error(),
			},
		})
		return
	}

	candidates, err := services.FindCandidates(config.GetDB(), req.Specialization, req.Location)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to search for technicians",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"technicians": candidates,
			"count":       len(candidates),
		},
	})
}

// BookTechnician handles POST /api/v1/work/book-technician - a client books a
// specific technician for an open request
func BookTechnician(c *gin.Context) {
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

	var req BookTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "work_id and technician_id are required",
				"details": err.Error(),
			},
		})
		return
	}

	db := config.GetDB()

	var work models.Work
	if err := db.First(&work, req.WorkID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "WORK_NOT_FOUND",
				"message": "Work request not found",
			},
		})
		return
	}

	if work.ClientID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You can only book technicians for your own requests",
			},
		})
		return
	}

	if !work.Status.CanTransitionTo(models.StatusTaken) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATUS",
				"message": "This request can no longer be booked (status: " + string(work.Status) + ")",
			},
		})
		return
	}

	var technician models.User
	if err := db.Where("id = ? AND role = ?", req.TechnicianID, "technician").First(&technician).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "TECHNICIAN_NOT_FOUND",
				"message": "Technician not found",
			},
		})
		return
	}

	// Same client re-booking the same technician for the same service while a
	// prior engagement is still running is a duplicate.
	var duplicate int64
	if err := db.Model(&models.Booking{}).
		Where("user_id = ? AND technician_id = ? AND service_type = ? AND status IN ?",
			user.ID, technician.ID, work.ServiceType, models.ActiveAssignmentStatuses).
		Count(&duplicate).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to check existing bookings",
			},
		})
		return
	}
	if duplicate > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DUPLICATE_BOOKING",
				"message": "You already have an active booking with this technician for this service",
			},
		})
		return
	}

	busy, err := services.HasActiveAssignment(db, technician.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to check technician availability",
			},
		})
		return
	}
	if busy {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "TECHNICIAN_BUSY",
				"message": "This technician is currently engaged on another job",
			},
		})
		return
	}

	scheduleDate := time.Now()
	if req.Date != nil {
		scheduleDate = *req.Date
	}

	booking := models.Booking{
		UserID:        user.ID,
		TechnicianID:  technician.ID,
		ServiceType:   work.ServiceType,
		ServiceCharge: work.ServiceCharge,
		Description:   work.Description,
		Location:      work.Location,
		Date:          scheduleDate,
		Status:        models.StatusTaken,
	}
	if err := db.Create(&booking).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create booking",
			},
		})
		return
	}

	work.TechnicianID = &technician.ID
	work.Status = models.StatusTaken
	if err := db.Model(&work).Updates(map[string]interface{}{
		"technician_id": technician.ID,
		"status":        models.StatusTaken,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to assign technician",
			},
		})
		return
	}

	db.Model(&technician).Updates(map[string]interface{}{
		"technician_status": models.TechDispatched,
		"on_duty":           true,
		"total_jobs":        gorm.Expr("total_jobs + 1"),
	})

	// Booking confirmation carries a best-effort ETA when both sides have
	// live coordinates.
	etaMessage := services.ETANotAvailable
	if technician.HasCoordinates() && work.HasCoordinates() {
		if routing := services.GetRoutingService(); routing != nil {
			eta, etaErr := routing.ETA(
				services.Coordinates{Lat: *technician.Lat, Lng: *technician.Lng},
				services.Coordinates{Lat: *work.Lat, Lng: *work.Lng},
			)
			etaMessage = services.ETAMessage(eta, etaErr)
		}
	}

	if notifier := services.GetNotifier(); notifier != nil {
		notifier.Notify(technician.ID, "technician", "New booking",
			"You have been booked for "+work.ServiceType+" ("+work.Token+")", "info", "/technician/works")
		notifier.Notify(user.ID, "client", "Booking confirmed",
			technician.Name+" has been booked. ETA: "+etaMessage, "success", "/client/works")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"work":    work,
			"booking": booking,
			"eta":     etaMessage,
		},
	})
}

// ApproveJob handles POST /api/v1/work/approve - a technician claims an open
// job. First approval wins; the claim is a single conditional update so two
// racing technicians can never both succeed.
func ApproveJob(c *gin.Context) {
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

	var req ApproveJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "work_id is required",
				"details": err.Error(),
			},
		})
		return
	}

	db := config.GetDB()

	result := db.Model(&models.Work{}).
		Where("id = ? AND status = ?", req.WorkID, models.StatusOpen).
		Updates(map[string]interface{}{
			"technician_id": user.ID,
			"status":        models.StatusApproved,
		})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to approve job",
			},
		})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "JOB_ALREADY_TAKEN",
				"message": "This job is no longer open; another technician may have taken it",
			},
		})
		return
	}

	var work models.Work
	if err := db.First(&work, req.WorkID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load approved job",
			},
		})
		return
	}

	db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"technician_status": models.TechApproved,
		"on_duty":           true,
		"total_jobs":        gorm.Expr("total_jobs + 1"),
	})

	// The same request fans out as one open work per candidate; once one
	// technician wins, the siblings become unavailable.
	cfg := config.GetConfig()
	var competing []models.Work
	if err := db.Where("client_id = ? AND service_type = ? AND status = ? AND id <> ?",
		work.ClientID, work.ServiceType, models.StatusOpen, work.ID).
		Find(&competing).Error; err == nil && len(competing) > 0 {
		db.Model(&models.Work{}).
			Where("client_id = ? AND service_type = ? AND status = ? AND id <> ?",
				work.ClientID, work.ServiceType, models.StatusOpen, work.ID).
			Update("status", models.StatusUnavailable)

		if cfg != nil && cfg.NotifyCompetingTechnicians {
			if notifier := services.GetNotifier(); notifier != nil {
				for _, sibling := range competing {
					if sibling.TechnicianID == nil {
						continue
					}
					notifier.Notify(*sibling.TechnicianID, "technician", "Job taken",
						"The "+work.ServiceType+" job ("+sibling.Token+") was taken by another technician",
						"info", "/technician/jobs")
				}
			}
		}
	}

	if notifier := services.GetNotifier(); notifier != nil {
		notifier.Notify(work.ClientID, "client", "Technician assigned",
			user.Name+" has accepted your request "+work.Token, "success", "/client/works")
		notifier.Notify(user.ID, "technician", "Job approved",
			"You are now assigned to "+work.Token, "success", "/technician/works")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    work,
	})
}

// StartWork handles POST /api/v1/work/start - the assigned technician begins
// on-site work, uploading a mandatory before photo (multipart form)
func StartWork(c *gin.Context) {
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

	workID, ok := parseFormWorkID(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var work models.Work
	if err := db.First(&work, workID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "WORK_NOT_FOUND",
				"message": "Work request not found",
			},
		})
		return
	}

	if !work.AssignedTo(user.ID) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You are not assigned to this job",
			},
		})
		return
	}

	if !work.Status.CanTransitionTo(models.StatusInProgress) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATUS",
				"message": "Work cannot be started from status " + string(work.Status),
			},
		})
		return
	}

	fileHeader, err := c.FormFile("before_photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "A before photo is required to start work",
			},
		})
		return
	}
	if err := utils.ValidatePhotoFile(fileHeader); err != nil {
		uploadErr := err.(*utils.FileUploadError)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    uploadErr.Code,
				"message": uploadErr.Message,
			},
		})
		return
	}

	photoKey, err := services.GetS3Service().UploadFile(fileHeader, "work-before-photos")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_FAILED",
				"message": "Failed to upload before photo",
			},
		})
		return
	}

	now := time.Now()
	if err := db.Model(&work).Updates(map[string]interface{}{
		"status":       models.StatusInProgress,
		"before_photo": photoKey,
		"started_at":   now,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to start work",
			},
		})
		return
	}
	work.Status = models.StatusInProgress
	work.BeforePhoto = photoKey
	work.StartedAt = &now

	db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("technician_status", models.TechInProgress)
	db.Model(&models.Booking{}).
		Where("technician_id = ? AND service_type = ? AND status IN ?",
			user.ID, work.ServiceType, models.ActiveAssignmentStatuses).
		Update("status", models.StatusInProgress)

	if notifier := services.GetNotifier(); notifier != nil {
		notifier.Notify(work.ClientID, "client", "Work started",
			"Work on your request "+work.Token+" has started", "info", "/client/works")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    work,
	})
}

// ReportIssue handles POST /api/v1/work/issue - the assigned technician
// reports a field problem, moving the work to the matching hold status and
// raising an admin escalation atomically
func ReportIssue(c *gin.Context) {
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

	var req ReportIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "work_id and issue_type are required",
				"details": err.Error(),
			},
		})
		return
	}

	holdStatus, known := models.IssueStatus(req.IssueType)
	if !known {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ISSUE_TYPE",
				"message": "issue_type must be one of need_parts, need_specialist, customer_unavailable",
			},
		})
		return
	}

	db := config.GetDB()
	var work models.Work
	if err := db.First(&work, req.WorkID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "WORK_NOT_FOUND",
				"message": "Work request not found",
			},
		})
		return
	}

	if !work.AssignedTo(user.ID) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You are not assigned to this job",
			},
		})
		return
	}

	if !work.Status.CanTransitionTo(holdStatus) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATUS",
				"message": "Issues can only be reported on work in progress",
			},
		})
		return
	}

	// The status change and the escalation must land together; a hold with
	// no admin record would strand the work.
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&work).Updates(map[string]interface{}{
			"status":     holdStatus,
			"issue_type": req.IssueType,
			"remarks":    req.Remarks,
		}).Error; err != nil {
			return err
		}

		escalation := models.AdminNotification{
			Type:         "work_issue",
			Message:      user.Name + " reported an issue on " + work.Token,
			WorkID:       work.ID,
			TechnicianID: user.ID,
			IssueType:    req.IssueType,
			Remarks:      req.Remarks,
			Status:       models.AdminNotifOpen,
		}
		return tx.Create(&escalation).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to record issue report",
			},
		})
		return
	}

	work.Status = holdStatus
	work.IssueType = &req.IssueType
	work.Remarks = req.Remarks

	db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("technician_status", models.TechPending)

	if notifier := services.GetNotifier(); notifier != nil {
		notifier.Notify(work.ClientID, "client", "Work on hold",
			"Your request "+work.Token+" is on hold: "+req.IssueType, "warning", "/client/works")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    work,
	})
}

// GetClientWork handles GET /api/v1/client-work/:workId - one work with its
// bill, visible only to the client or the assigned technician
func GetClientWork(c *gin.Context) {
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
	if err := db.Preload("Client").Preload("Technician").First(&work, uint(workID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "WORK_NOT_FOUND",
				"message": "Work request not found",
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

	var bill *models.Bill
	if work.BillID != nil {
		var b models.Bill
		if err := db.Preload("Items").First(&b, *work.BillID).Error; err == nil {
			bill = &b
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"work": work,
			"bill": bill,
		},
	})
}

// ListClientWorks handles GET /api/v1/client/works - all requests opened by
// the current client, newest first
func ListClientWorks(c *gin.Context) {
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

	var works []models.Work
	query := config.GetDB().Preload("Technician").
		Where("client_id = ?", user.ID).
		Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&works).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list works",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"works": works,
			"count": len(works),
		},
	})
}

// ListTechnicianWorks handles GET /api/v1/technician/works - jobs assigned to
// the current technician, newest first
func ListTechnicianWorks(c *gin.Context) {
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

	var works []models.Work
	query := config.GetDB().Preload("Client").
		Where("technician_id = ?", user.ID).
		Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&works).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list works",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"works": works,
			"count": len(works),
		},
	})
}

// ListTechnicianJobs handles GET /api/v1/technician/jobs - open jobs matching
// the technician's specializations and location, the claimable feed
func ListTechnicianJobs(c *gin.Context) {
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

	db := config.GetDB()
	var works []models.Work
	query := db.Preload("Client").
		Where("status = ?", models.StatusOpen).
		Order("created_at DESC")
	if user.Location != "" {
		query = query.Where("location LIKE ?", "%"+user.Location+"%")
	}
	if err := query.Find(&works).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list jobs",
			},
		})
		return
	}

	// Tag intersection against the technician's own specializations.
	techTags := user.Specializations()
	jobs := make([]models.Work, 0, len(works))
	for _, w := range works {
		workTags := models.SplitTags(w.Specialization)
		if len(workTags) == 0 || len(techTags) == 0 {
			jobs = append(jobs, w)
			continue
		}
		match := false
		for _, wt := range workTags {
			for _, tt := range techTags {
				if wt == tt {
					match = true
				}
			}
		}
		if match {
			jobs = append(jobs, w)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"jobs":  jobs,
			"count": len(jobs),
		},
	})
}

// GetTechnicianSummary handles GET /api/v1/technician/summary - job counters
// and paid earnings for the current technician
func GetTechnicianSummary(c *gin.Context) {
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

	db := config.GetDB()

	var total, completed, active int64
	db.Model(&models.Work{}).Where("technician_id = ?", user.ID).Count(&total)
	db.Model(&models.Work{}).
		Where("technician_id = ? AND status IN ?", user.ID,
			[]models.WorkStatus{models.StatusCompleted, models.StatusConfirm}).
		Count(&completed)
	db.Model(&models.Work{}).
		Where("technician_id = ? AND status IN ?", user.ID, models.ActiveAssignmentStatuses).
		Count(&active)

	var earnings float64
	db.Model(&models.Bill{}).
		Where("technician_id = ? AND status = ?", user.ID, models.BillPaid).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&earnings)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total_jobs":     total,
			"completed_jobs": completed,
			"active_jobs":    active,
			"earnings":       earnings,
			"status":         user.TechnicianStatus,
			"on_duty":        user.OnDuty,
		},
	})
}

// parseFormWorkID reads work_id from a multipart/urlencoded form and writes
// the validation error response itself when missing or malformed.
func parseFormWorkID(c *gin.Context) (uint, bool) {
	raw := c.PostForm("work_id")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "work_id is required",
			},
		})
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "work_id must be a number",
			},
		})
		return 0, false
	}
	return uint(id), true
}

func normalizeLocation(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
