package controllers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/onestep-solution/field-service-api/config"
	"github.com/onestep-solution/field-service-api/middleware"
	"github.com/onestep-solution/field-service-api/models"
	"github.com/onestep-solution/field-service-api/services"
	"github.com/onestep-solution/field-service-api/utils"
	"gorm.io/datatypes"
)

// billItemInput is one material line in the completion form
type billItemInput struct {
	Name  string  `json:"name" binding:"required"`
	Qty   int     `json:"qty" binding:"required,min=1"`
	Price float64 `json:"price" binding:"min=0"`
}

// ConfirmPaymentRequest represents the technician payment confirmation body
type ConfirmPaymentRequest struct {
	WorkID uint   `json:"work_id" binding:"required"`
	Method string `json:"method" binding:"required"`
}

// PayBillRequest represents the client pay-bill body
type PayBillRequest struct {
	WorkID uint   `json:"work_id" binding:"required"`
	Method string `json:"method"`
}

// PaymentOrderRequest represents the gateway order creation body
type PaymentOrderRequest struct {
	WorkID uint `json:"work_id" binding:"required"`
}

// CompleteWork handles POST /api/v1/work/complete - the assigned technician
// finishes the job with an after photo and the materials used; the bill and
// its invoice PDF are produced here (multipart form)
func CompleteWork(c *gin.Context) {
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

	if !work.Status.CanTransitionTo(models.StatusCompleted) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATUS",
				"message": "Work cannot be completed from status " + string(work.Status),
			},
		})
		return
	}

	var items []billItemInput
	if raw := c.PostForm("items"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "items must be a JSON array of {name, qty, price}",
				},
			})
			return
		}
	}
	for _, item := range items {
		if item.Name == "" || item.Qty < 1 || item.Price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Each item needs a name, qty >= 1 and price >= 0",
				},
			})
			return
		}
	}

	var taxes float64
	if raw := c.PostForm("taxes"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%f", &taxes); err != nil || taxes < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "taxes must be a non-negative number",
				},
			})
			return
		}
	}

	// The technician prices the labor at completion; the client's estimate
	// from creation is only the default.
	serviceCharge := work.ServiceCharge
	if raw := c.PostForm("service_charge"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%f", &serviceCharge); err != nil || serviceCharge < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "service_charge must be a non-negative number",
				},
			})
			return
		}
	}

	method := c.PostForm("payment_method")
	switch method {
	case "":
		method = models.PayNotSelected
	case models.PayCash, models.PayUPI:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "payment_method must be cash or upi",
			},
		})
		return
	}

	fileHeader, err := c.FormFile("after_photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "An after photo is required to complete work",
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

	photoKey, err := services.GetS3Service().UploadFile(fileHeader, "work-after-photos")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_FAILED",
				"message": "Failed to upload after photo",
			},
		})
		return
	}

	var itemTotal float64
	billItems := make([]models.BillItem, 0, len(items))
	for _, item := range items {
		itemTotal += float64(item.Qty) * item.Price
		billItems = append(billItems, models.BillItem{
			Name:  item.Name,
			Qty:   item.Qty,
			Price: item.Price,
		})
	}
	subtotal := itemTotal + serviceCharge
	total := subtotal + taxes

	bill := models.Bill{
		WorkID:        work.ID,
		TechnicianID:  user.ID,
		ClientID:      work.ClientID,
		Items:         billItems,
		ServiceCharge: serviceCharge,
		Taxes:         taxes,
		TotalAmount:   total,
		Status:        models.BillSent,
		PaymentMethod: method,
		Notes:         c.PostForm("notes"),
	}
	if err := db.Create(&bill).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create bill",
			},
		})
		return
	}

	var client models.User
	if err := db.First(&client, work.ClientID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load client record",
			},
		})
		return
	}

	// UPI bills carry a scannable intent QR on the invoice and in the email.
	var upiQR []byte
	var upiURI string
	if method == models.PayUPI {
		cfg := config.GetConfig()
		intent, intentErr := services.BuildUPIIntent(cfg.UPIVPA, cfg.EmailFromName,
			total, "Bill for "+work.Token)
		if intentErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "PAYMENT_SETUP_FAILED",
					"message": "Failed to prepare UPI payment",
				},
			})
			return
		}
		upiQR = intent.QRPNG
		upiURI = intent.URI
	}

	filePath, invoiceID, err := services.GetInvoiceService().Generate(&bill, &work, &client, user, upiQR)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVOICE_FAILED",
				"message": "Failed to generate invoice",
			},
		})
		return
	}
	db.Model(&bill).Updates(map[string]interface{}{
		"invoice_id": invoiceID,
		"pdf_path":   filePath,
	})
	bill.InvoiceID = invoiceID
	bill.PDFPath = filePath

	materials, _ := json.Marshal(items)
	now := time.Now()
	if err := db.Model(&work).Updates(map[string]interface{}{
		"status":                 models.StatusCompleted,
		"after_photo":            photoKey,
		"completed_at":           now,
		"bill_id":                bill.ID,
		"payment_method":         method,
		"invoice_invoice_number": invoiceID,
		"invoice_materials":      datatypes.JSON(materials),
		"invoice_service_charge": serviceCharge,
		"invoice_subtotal":       subtotal,
		"invoice_total":          total,
		"invoice_pdf_path":       filePath,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to complete work",
			},
		})
		return
	}
	work.Status = models.StatusCompleted
	work.AfterPhoto = photoKey
	work.CompletedAt = &now
	work.BillID = &bill.ID
	work.Payment.Method = method
	work.Invoice = models.InvoiceSnapshot{
		InvoiceNumber: invoiceID,
		Materials:     datatypes.JSON(materials),
		ServiceCharge: serviceCharge,
		Subtotal:      subtotal,
		Total:         total,
		PDFPath:       filePath,
	}

	db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("technician_status", models.TechAvailable)

	// Completion opens the warranty window. One warranty per work; the
	// record is derived state, so a write failure is logged, not surfaced.
	warranty := models.Warranty{
		WorkID:       work.ID,
		ClientID:     work.ClientID,
		TechnicianID: user.ID,
		ServiceType:  work.ServiceType,
		WarrantyDays: models.DefaultWarrantyDays,
		ExpiresAt:    now.AddDate(0, 0, models.DefaultWarrantyDays),
		Status:       models.WarrantyActive,
	}
	if err := db.Create(&warranty).Error; err != nil {
		log.Printf("warranty record creation failed for work %d: %v", work.ID, err)
	}

	sendBillEmail(&client, &work, &bill, upiURI, upiQR)

	if notifier := services.GetNotifier(); notifier != nil {
		notifier.Notify(work.ClientID, "client", "Work completed",
			fmt.Sprintf("Your request %s is complete. Bill total: Rs %.2f", work.Token, total),
			"success", "/client/works")
		notifier.Notify(user.ID, "technician", "Job completed",
			"Job "+work.Token+" marked complete", "success", "/technician/works")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"work":     work,
			"bill":     bill,
			"warranty": warranty,
		},
	})
}

// ConfirmPayment handles POST /api/v1/payment - the technician confirms the
// client paid (cash in hand or UPI shown on their device); the lifecycle ends
// at confirm
func ConfirmPayment(c *gin.Context) {
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

	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "work_id and method are required",
				"details": err.Error(),
			},
		})
		return
	}

	if req.Method != models.PayCash && req.Method != models.PayUPI {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "method must be cash or upi",
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

	if work.Status != models.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATUS",
				"message": "Payment can only be confirmed on completed work",
			},
		})
		return
	}

	if work.BillID == nil {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_BILL",
				"message": "No bill exists for this work",
			},
		})
		return
	}

	var bill models.Bill
	if err := db.Preload("Items").First(&bill, *work.BillID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load bill",
			},
		})
		return
	}
	if bill.Status == models.BillPaid {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ALREADY_PAID",
				"message": "This bill has already been paid",
			},
		})
		return
	}

	confirmerID := user.ID
	if err := settleBill(&bill, &work, req.Method, "", false, &confirmerID); err != nil {
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
		"data": gin.H{
			"work": work,
			"bill": bill,
		},
	})
}

// PayBill handles PATCH /api/v1/client/pay-bill - the client settles their
// own bill; paid bills are immutable so a repeat call conflicts
func PayBill(c *gin.Context) {
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

	var req PayBillRequest
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
				"message": "You can only pay your own bills",
			},
		})
		return
	}

	if work.Status != models.StatusCompleted && work.Status != models.StatusConfirm {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATUS",
				"message": "Bills can only be paid after the work is completed",
			},
		})
		return
	}

	if work.BillID == nil {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_BILL",
				"message": "No bill exists for this work",
			},
		})
		return
	}

	var bill models.Bill
	if err := db.Preload("Items").First(&bill, *work.BillID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load bill",
			},
		})
		return
	}
	if bill.Status == models.BillPaid {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ALREADY_PAID",
				"message": "This bill has already been paid",
			},
		})
		return
	}

	method := req.Method
	if method == "" {
		method = bill.PaymentMethod
	}
	if method != models.PayCash && method != models.PayUPI {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "method must be cash or upi",
			},
		})
		return
	}

	if err := settleBill(&bill, &work, method, "", false, nil); err != nil {
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
		"data": gin.H{
			"work": work,
			"bill": bill,
		},
	})
}

// ConfirmManualPayment handles POST /api/v1/payment/manual-confirm - the
// client uploads a payment proof screenshot; the bill settles immediately
// with the proof attached (multipart form)
func ConfirmManualPayment(c *gin.Context) {
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

	if work.ClientID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You can only pay your own bills",
			},
		})
		return
	}

	if work.BillID == nil {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_BILL",
				"message": "No bill exists for this work",
			},
		})
		return
	}

	var bill models.Bill
	if err := db.Preload("Items").First(&bill, *work.BillID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load bill",
			},
		})
		return
	}
	if bill.Status == models.BillPaid {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ALREADY_PAID",
				"message": "This bill has already been paid",
			},
		})
		return
	}

	proofURL := ""
	if fileHeader, err := c.FormFile("proof"); err == nil {
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
		key, uploadErr := services.GetS3Service().UploadFile(fileHeader, "payment-proofs")
		if uploadErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UPLOAD_FAILED",
					"message": "Failed to upload payment proof",
				},
			})
			return
		}
		proofURL = key
	}

	method := bill.PaymentMethod
	if method != models.PayCash && method != models.PayUPI {
		method = models.PayUPI
	}

	db.Model(&bill).Updates(map[string]interface{}{
		"proof_url":      proofURL,
		"manual_confirm": true,
	})
	bill.ProofURL = proofURL
	bill.ManualConfirm = true

	if err := settleBill(&bill, &work, method, "", true, nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PAYMENT_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	if work.TechnicianID != nil {
		if notifier := services.GetNotifier(); notifier != nil {
			notifier.Notify(*work.TechnicianID, "technician", "Manual payment confirmed",
				"Client submitted payment proof for "+work.Token, "info", "/technician/works")
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

// CreatePaymentOrder handles POST /api/v1/payment/order - creates a UPI
// intent order with the hosted gateway for the work's bill
func CreatePaymentOrder(c *gin.Context) {
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

	var req PaymentOrderRequest
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
				"message": "You can only create payment orders for your own bills",
			},
		})
		return
	}

	if work.BillID == nil {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_BILL",
				"message": "No bill exists for this work",
			},
		})
		return
	}

	var bill models.Bill
	if err := db.First(&bill, *work.BillID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load bill",
			},
		})
		return
	}
	if bill.Status == models.BillPaid {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ALREADY_PAID",
				"message": "This bill has already been paid",
			},
		})
		return
	}

	gateway := services.GetPaymentGateway()
	if gateway == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GATEWAY_UNAVAILABLE",
				"message": "Payment gateway is not configured",
			},
		})
		return
	}

	order, err := gateway.CreateOrder(work.ID, bill.TotalAmount)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GATEWAY_ERROR",
				"message": "Failed to create payment order",
			},
		})
		return
	}

	// The gateway echoes back the transaction id we need to match the
	// asynchronous webhook against this bill.
	orderID := extractOrderID(order)
	if orderID != "" {
		db.Model(&bill).Updates(map[string]interface{}{
			"payment_order_id": orderID,
			"payment_method":   models.PayUPI,
		})
		bill.PaymentOrderID = orderID
		bill.PaymentMethod = models.PayUPI
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order_id": orderID,
			"order":    order,
		},
	})
}

// settleBill marks a bill paid, regenerating the final invoice first so a
// rendering failure never leaves a paid bill without its document. The
// confirmedBy pointer is set only on technician confirmations; the work
// advances to confirm when the lifecycle allows it.
func settleBill(bill *models.Bill, work *models.Work, method, paymentID string, manual bool, confirmedBy *uint) error {
	db := config.GetDB()

	var client, technician models.User
	if err := db.First(&client, bill.ClientID).Error; err != nil {
		return fmt.Errorf("failed to load client: %w", err)
	}
	if err := db.First(&technician, bill.TechnicianID).Error; err != nil {
		return fmt.Errorf("failed to load technician: %w", err)
	}

	var upiQR []byte
	if method == models.PayUPI {
		cfg := config.GetConfig()
		if intent, err := services.BuildUPIIntent(cfg.UPIVPA, cfg.EmailFromName,
			bill.TotalAmount, "Bill for "+work.Token); err == nil {
			upiQR = intent.QRPNG
		}
	}

	bill.PaymentMethod = method
	filePath, invoiceID, err := services.GetInvoiceService().Generate(bill, work, &client, &technician, upiQR)
	if err != nil {
		return fmt.Errorf("failed to generate final invoice: %w", err)
	}

	now := time.Now()
	billUpdates := map[string]interface{}{
		"status":         models.BillPaid,
		"payment_method": method,
		"paid_at":        now,
		"invoice_id":     invoiceID,
		"pdf_path":       filePath,
		"manual_confirm": manual,
	}
	if paymentID != "" {
		billUpdates["payment_id"] = paymentID
	}
	if err := db.Model(bill).Updates(billUpdates).Error; err != nil {
		return fmt.Errorf("failed to persist bill payment: %w", err)
	}
	bill.Status = models.BillPaid
	bill.PaidAt = &now
	bill.InvoiceID = invoiceID
	bill.PDFPath = filePath
	bill.ManualConfirm = manual
	if paymentID != "" {
		bill.PaymentID = paymentID
	}

	// Replace the payment value object on the work wholesale.
	workUpdates := map[string]interface{}{
		"payment_method":         method,
		"payment_status":         models.BillPaid,
		"payment_paid_at":        now,
		"invoice_invoice_number": invoiceID,
		"invoice_pdf_path":       filePath,
	}
	work.Payment = models.PaymentInfo{
		Method: method,
		Status: models.BillPaid,
		PaidAt: &now,
	}
	if confirmedBy != nil {
		workUpdates["payment_confirmed_by_id"] = *confirmedBy
		workUpdates["payment_confirmed_at"] = now
		work.Payment.ConfirmedByID = confirmedBy
		work.Payment.ConfirmedAt = &now
	}
	if work.Status.CanTransitionTo(models.StatusConfirm) {
		workUpdates["status"] = models.StatusConfirm
		work.Status = models.StatusConfirm
	}
	if err := db.Model(work).Updates(workUpdates).Error; err != nil {
		return fmt.Errorf("failed to update work payment state: %w", err)
	}
	work.Invoice.InvoiceNumber = invoiceID
	work.Invoice.PDFPath = filePath

	sendInvoiceEmail(&client, work, bill, filePath)

	if notifier := services.GetNotifier(); notifier != nil {
		notifier.Notify(bill.ClientID, "client", "Payment received",
			fmt.Sprintf("Payment of Rs %.2f for %s confirmed. Invoice: %s",
				bill.TotalAmount, work.Token, invoiceID),
			"success", "/client/works")
		notifier.Notify(bill.TechnicianID, "technician", "Bill paid",
			"Bill for "+work.Token+" has been paid", "success", "/technician/works")
	}

	return nil
}

// extractOrderID digs the merchant transaction id out of the gateway's
// response envelope.
func extractOrderID(order map[string]interface{}) string {
	data, ok := order["data"].(map[string]interface{})
	if !ok {
		return ""
	}
	if id, ok := data["merchantTransactionId"].(string); ok {
		return id
	}
	return ""
}

func readInvoiceFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// sendBillEmail delivers the completion bill to the client, best-effort.
func sendBillEmail(client *models.User, work *models.Work, bill *models.Bill, upiURI string, upiQR []byte) {
	sender := services.GetEmailService()
	if sender == nil || client.Email == "" {
		return
	}

	body := fmt.Sprintf(
		"<h2>Your service bill</h2>"+
			"<p>Work %s (%s) is complete.</p>"+
			"<p><b>Total: Rs %.2f</b></p>",
		work.Token, work.ServiceType, bill.TotalAmount)

	var attachments []services.Attachment
	if bill.PDFPath != "" {
		if pdf, err := readInvoiceFile(bill.PDFPath); err == nil {
			attachments = append(attachments, services.Attachment{
				Filename:    bill.InvoiceID + ".pdf",
				ContentType: "application/pdf",
				Content:     pdf,
			})
		}
	}
	if len(upiQR) > 0 {
		body += fmt.Sprintf(
			"<p>Pay via UPI: <a href=%q>%s</a></p>"+
				"<p><img src=\"cid:upi-qr\" alt=\"UPI QR\"/></p>",
			upiURI, upiURI)
		attachments = append(attachments, services.Attachment{
			Filename:    "upi-qr.png",
			ContentType: "image/png",
			Content:     upiQR,
			Inline:      true,
			ContentID:   "upi-qr",
		})
	}

	if err := sender.Send(client.Email, "Your bill for "+work.Token, body, attachments); err != nil {
		// Email is a side channel; the completion already succeeded.
		log.Printf("bill email to %s failed: %v", client.Email, err)
	}
}

// sendInvoiceEmail delivers the final paid invoice to the client, best-effort.
func sendInvoiceEmail(client *models.User, work *models.Work, bill *models.Bill, pdfPath string) {
	sender := services.GetEmailService()
	if sender == nil || client.Email == "" {
		return
	}

	body := fmt.Sprintf(
		"<h2>Payment confirmed</h2>"+
			"<p>We received your payment of <b>Rs %.2f</b> for %s.</p>"+
			"<p>Invoice %s is attached.</p>",
		bill.TotalAmount, work.Token, bill.InvoiceID)

	var attachments []services.Attachment
	if pdf, err := readInvoiceFile(pdfPath); err == nil {
		attachments = append(attachments, services.Attachment{
			Filename:    bill.InvoiceID + ".pdf",
			ContentType: "application/pdf",
			Content:     pdf,
		})
	}

	if err := sender.Send(client.Email, "Invoice "+bill.InvoiceID, body, attachments); err != nil {
		log.Printf("invoice email to %s failed: %v", client.Email, err)
	}
}
