package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/onestep-solution/field-service-api/config"
)

var startTime = time.Now()

// HealthCheck handles GET /api/v1/health - liveness probe
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"status":  "ok",
			"uptime":  time.Since(startTime).String(),
			"service": "field-service-api",
		},
	})
}

// DatabaseStatus handles GET /api/v1/database/status - readiness probe that
// pings the underlying connection
func DatabaseStatus(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_UNAVAILABLE",
				"message": "Database is not initialized",
			},
		})
		return
	}

	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_UNAVAILABLE",
				"message": "Database ping failed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"database": "connected",
		},
	})
}
