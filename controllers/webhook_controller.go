package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/onestep-solution/field-service-api/config"
	"github.com/onestep-solution/field-service-api/models"
	"github.com/onestep-solution/field-service-api/services"
)

// gatewayWebhookPayload is the event envelope the payment gateway posts.
type gatewayWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		OrderID   string  `json:"order_id"`
		PaymentID string  `json:"payment_id"`
		Amount    float64 `json:"amount"`
		Status    string  `json:"status"`
	} `json:"data"`
}

// HandleGatewayWebhook handles POST /api/v1/webhook/gateway - asynchronous
// payment events from the gateway. The HMAC signature is verified over the
// exact raw bytes before anything else happens; an unsigned or tampered body
// never reaches the database.
func HandleGatewayWebhook(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_BODY",
				"message": "Could not read request body",
			},
		})
		return
	}

	signature := c.GetHeader("X-Gateway-Signature")
	cfg := config.GetConfig()
	if signature == "" || !services.VerifyWebhookSignature(rawBody, signature, cfg.GatewayWebhookSecret) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_SIGNATURE",
				"message": "Webhook signature verification failed",
			},
		})
		return
	}

	var payload gatewayWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_BODY",
				"message": "Malformed webhook payload",
			},
		})
		return
	}

	// Only captured/successful payments change state; everything else is
	// acknowledged and dropped so the gateway stops retrying.
	if payload.Event != "payment.captured" && payload.Event != "payment_success" {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    gin.H{"handled": false},
		})
		return
	}

	db := config.GetDB()
	var bill models.Bill
	if err := db.Preload("Items").
		Where("payment_order_id = ?", payload.Data.OrderID).
		First(&bill).Error; err != nil {
		// Unknown order: acknowledge so the gateway does not retry forever.
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    gin.H{"handled": false},
		})
		return
	}

	// Gateways redeliver; a bill already settled is acknowledged untouched.
	if bill.Status == models.BillPaid {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    gin.H{"handled": true, "duplicate": true},
		})
		return
	}

	var work models.Work
	if err := db.First(&work, bill.WorkID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load work for bill",
			},
		})
		return
	}

	if err := settleBill(&bill, &work, models.PayUPI, payload.Data.PaymentID, false, nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PAYMENT_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"handled": true},
	})
}
