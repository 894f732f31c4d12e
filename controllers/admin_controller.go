package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/onestep-solution/field-service-api/config"
	"github.com/onestep-solution/field-service-api/middleware"
	"github.com/onestep-solution/field-service-api/models"
	"github.com/onestep-solution/field-service-api/services"
	"gorm.io/gorm"
)

// ListAdminNotifications handles GET /api/v1/admin/notifications - paginated
// escalation feed, optionally filtered by status
func ListAdminNotifications(c *gin.Context) {
	db := config.GetDB()

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := db.Model(&models.AdminNotification{}).Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var notifications []models.AdminNotification
	if err := query.Offset((page - 1) * limit).Limit(limit).Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list notifications",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"notifications": notifications,
			"total":         total,
			"page":          page,
			"limit":         limit,
		},
	})
}

// MarkNotificationSeen handles PATCH /api/v1/admin/notifications/:id/seen
func MarkNotificationSeen(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid notification id",
			},
		})
		return
	}

	db := config.GetDB()
	var notification models.AdminNotification
	if err := db.First(&notification, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Notification not found",
			},
		})
		return
	}

	if err := db.Model(&notification).Update("seen", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update notification",
			},
		})
		return
	}
	notification.Seen = true

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    notification,
	})
}

// ResolveIssue handles PATCH /api/v1/admin/notifications/:id/resolve - closes
// the escalation and returns the held work to inprogress, the only path out
// of the hold statuses
func ResolveIssue(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid notification id",
			},
		})
		return
	}

	db := config.GetDB()
	var notification models.AdminNotification
	if err := db.First(&notification, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Notification not found",
			},
		})
		return
	}

	if notification.Status == models.AdminNotifResolved {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ALREADY_RESOLVED",
				"message": "This escalation is already resolved",
			},
		})
		return
	}

	var work models.Work
	if err := db.First(&work, notification.WorkID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "WORK_NOT_FOUND",
				"message": "Work for this escalation no longer exists",
			},
		})
		return
	}

	if !work.Status.CanTransitionTo(models.StatusInProgress) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATUS",
				"message": "Work is not in a resolvable hold status (status: " + string(work.Status) + ")",
			},
		})
		return
	}

	// Resolution and the work's release from hold land together.
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&notification).Updates(map[string]interface{}{
			"status": models.AdminNotifResolved,
			"seen":   true,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&work).Updates(map[string]interface{}{
			"status":     models.StatusInProgress,
			"issue_type": nil,
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to resolve escalation",
			},
		})
		return
	}
	notification.Status = models.AdminNotifResolved
	notification.Seen = true
	work.Status = models.StatusInProgress
	work.IssueType = nil

	if notification.TechnicianID != 0 {
		db.Model(&models.User{}).Where("id = ?", notification.TechnicianID).
			Update("technician_status", models.TechInProgress)
	}

	if notifier := services.GetNotifier(); notifier != nil {
		if notification.TechnicianID != 0 {
			notifier.Notify(notification.TechnicianID, "technician", "Issue resolved",
				"The issue on "+work.Token+" has been resolved; work can resume",
				"success", "/technician/works")
		}
		notifier.Notify(work.ClientID, "client", "Work resumed",
			"Work on your request "+work.Token+" has resumed", "info", "/client/works")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"notification": notification,
			"work":         work,
		},
	})
}

// ListMyNotifications handles GET /api/v1/notifications - the current user's
// notification feed
func ListMyNotifications(c *gin.Context) {
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

	var notifications []models.Notification
	if err := config.GetDB().
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(50).
		Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to list notifications",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"notifications": notifications,
			"count":         len(notifications),
		},
	})
}
