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
	"github.com/onestep-solution/field-service-api/utils"
)

// WarrantyClaimRequest represents the client warranty claim body
type WarrantyClaimRequest struct {
	WorkID           uint   `json:"work_id" binding:"required"`
	IssueDescription string `json:"issue_description" binding:"required"`
}

// CheckWarranty handles GET /api/v1/warranty/:workId - either party of the
// completed work can query the coverage window
func CheckWarranty(c *gin.Context) {
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

	workID, err := strconv.ParseUint(c.Param("workId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "workId must be a number",
			},
		})
		return
	}

	db := config.GetDB()
	var warranty models.Warranty
	if err := db.Where("work_id = ?", workID).First(&warranty).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "WARRANTY_NOT_FOUND",
				"message": "No warranty record exists for this work",
			},
		})
		return
	}

	if warranty.ClientID != user.ID && warranty.TechnicianID != user.ID && user.Role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You are not a party to this warranty",
			},
		})
		return
	}

	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"work_id":     warranty.WorkID,
			"in_warranty": warranty.InWarranty(now),
			"expires_at":  warranty.ExpiresAt,
			"days_left":   warranty.DaysLeft(now),
			"status":      warranty.Status,
		},
	})
}

// RaiseWarrantyClaim handles POST /api/v1/warranty/claim - the client reports
// a defect inside the coverage window; a free re-service work is created and
// pre-assigned to the original technician
func RaiseWarrantyClaim(c *gin.Context) {
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

	var req WarrantyClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "work_id and issue_description are required",
				"details": err.Error(),
			},
		})
		return
	}

	db := config.GetDB()
	var warranty models.Warranty
	if err := db.Where("work_id = ?", req.WorkID).First(&warranty).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "WARRANTY_NOT_FOUND",
				"message": "No warranty record exists for this work",
			},
		})
		return
	}

	if warranty.ClientID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You can only claim warranty on your own work",
			},
		})
		return
	}

	if warranty.Status == models.WarrantyClaimed {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ALREADY_CLAIMED",
				"message": "This warranty has already been claimed",
			},
		})
		return
	}

	now := time.Now()
	if !warranty.InWarranty(now) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "WARRANTY_EXPIRED",
				"message": "Warranty period has expired. Please book a new service",
			},
		})
		return
	}

	var original models.Work
	if err := db.First(&original, warranty.WorkID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load the original work",
			},
		})
		return
	}

	// Free re-service, straight to the original technician.
	reservice := models.Work{
		ClientID:       user.ID,
		TechnicianID:   &warranty.TechnicianID,
		ServiceType:    original.ServiceType,
		Specialization: original.Specialization,
		Description:    "Warranty claim: " + req.IssueDescription,
		Location:       original.Location,
		ServiceCharge:  0,
		Lat:            original.Lat,
		Lng:            original.Lng,
		Status:         models.StatusTaken,
	}
	if err := db.Create(&reservice).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create the re-service request",
			},
		})
		return
	}
	reservice.Token = utils.GenerateWorkToken(reservice.ID)
	if err := db.Model(&reservice).Update("token", reservice.Token).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to assign work token",
			},
		})
		return
	}

	if err := db.Model(&warranty).Updates(map[string]interface{}{
		"status":        models.WarrantyClaimed,
		"claimed_at":    now,
		"claim_reason":  req.IssueDescription,
		"claim_work_id": reservice.ID,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to record the warranty claim",
			},
		})
		return
	}

	if notifier := services.GetNotifier(); notifier != nil {
		notifier.Notify(warranty.TechnicianID, "technician", "Warranty claim",
			"A warranty claim was raised for "+original.Token+"; re-service "+reservice.Token+" is assigned to you",
			"warning", "/technician/works")
		notifier.Notify(user.ID, "client", "Warranty claim raised",
			"Your claim was accepted. Re-service request "+reservice.Token+" has been created", "success", "/client/works")
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"work": reservice,
		},
	})
}
