package controllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/onestep-solution/field-service-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// WebhookControllerTestSuite covers the payment gateway webhook
type WebhookControllerTestSuite struct {
	suite.Suite
	env    *testEnv
	router *gin.Engine
	client models.User
	tech   models.User
}

func (suite *WebhookControllerTestSuite) SetupTest() {
	suite.env = newTestEnv(suite.T())
	suite.client = suite.env.createUser(suite.T(), models.User{
		Name:  "Asha Client",
		Email: "asha@test.com",
		Role:  "client",
	})
	suite.tech = suite.env.createUser(suite.T(), models.User{
		Name:  "Ravi Tech",
		Email: "ravi@test.com",
		Role:  "technician",
	})

	suite.router = gin.New()
	suite.router.POST("/api/v1/webhook/gateway", HandleGatewayWebhook)
}

// seedOrderedBill creates a completed work whose bill awaits an async
// gateway payment
func (suite *WebhookControllerTestSuite) seedOrderedBill(orderID string) (models.Work, models.Bill) {
	work := suite.env.createWork(suite.T(), models.Work{
		ClientID:     suite.client.ID,
		ServiceType:  "pipe repair",
		TechnicianID: &suite.tech.ID,
		Status:       models.StatusCompleted,
		Token:        "REQ-2026-00040",
	})
	bill := models.Bill{
		WorkID:         work.ID,
		TechnicianID:   suite.tech.ID,
		ClientID:       suite.client.ID,
		TotalAmount:    575,
		Status:         models.BillSent,
		PaymentMethod:  models.PayUPI,
		PaymentOrderID: orderID,
	}
	if err := suite.env.db.Create(&bill).Error; err != nil {
		suite.T().Fatalf("failed to create bill: %v", err)
	}
	suite.env.db.Model(&work).Update("bill_id", bill.ID)
	work.BillID = &bill.ID
	return work, bill
}

// sign computes the HMAC-SHA256 hex signature the gateway would send
func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (suite *WebhookControllerTestSuite) postWebhook(body []byte, signature string) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/gateway", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Gateway-Signature", signature)
	}
	suite.router.ServeHTTP(w, req)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

func capturedEvent(orderID, paymentID string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"event": "payment.captured",
		"data": map[string]interface{}{
			"order_id":   orderID,
			"payment_id": paymentID,
			"amount":     575.0,
			"status":     "captured",
		},
	})
	return body
}

func (suite *WebhookControllerTestSuite) TestWebhook_ValidSignatureSettlesBill() {
	work, bill := suite.seedOrderedBill("TXN_1_1")

	body := capturedEvent("TXN_1_1", "pay_abc123")
	w, response := suite.postWebhook(body, sign(body, "test-webhook-secret"))

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.True(suite.T(), response["success"].(bool))

	var paid models.Bill
	suite.env.db.First(&paid, bill.ID)
	assert.Equal(suite.T(), models.BillPaid, paid.Status)
	assert.Equal(suite.T(), "pay_abc123", paid.PaymentID)
	assert.NotNil(suite.T(), paid.PaidAt)

	reloaded := suite.env.reloadWork(suite.T(), work.ID)
	assert.Equal(suite.T(), models.StatusConfirm, reloaded.Status)
	assert.Equal(suite.T(), models.BillPaid, reloaded.Payment.Status)
}

func (suite *WebhookControllerTestSuite) TestWebhook_BadSignatureRejectedBeforeAnyLookup() {
	_, bill := suite.seedOrderedBill("TXN_1_2")

	body := capturedEvent("TXN_1_2", "pay_evil")
	w, response := suite.postWebhook(body, "deadbeef")

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "INVALID_SIGNATURE", errorCode(response))

	// Nothing changed.
	var untouched models.Bill
	suite.env.db.First(&untouched, bill.ID)
	assert.Equal(suite.T(), models.BillSent, untouched.Status)
}

func (suite *WebhookControllerTestSuite) TestWebhook_MissingSignatureRejected() {
	body := capturedEvent("TXN_1_3", "pay_abc")
	w, response := suite.postWebhook(body, "")

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "INVALID_SIGNATURE", errorCode(response))
}

func (suite *WebhookControllerTestSuite) TestWebhook_TamperedBodyFailsVerification() {
	body := capturedEvent("TXN_1_4", "pay_abc")
	signature := sign(body, "test-webhook-secret")

	tampered := bytes.Replace(body, []byte("575"), []byte("1"), 1)
	w, response := suite.postWebhook(tampered, signature)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "INVALID_SIGNATURE", errorCode(response))
}

func (suite *WebhookControllerTestSuite) TestWebhook_RedeliveryIsIdempotent() {
	_, bill := suite.seedOrderedBill("TXN_1_5")

	body := capturedEvent("TXN_1_5", "pay_abc123")
	signature := sign(body, "test-webhook-secret")

	w1, _ := suite.postWebhook(body, signature)
	assert.Equal(suite.T(), http.StatusOK, w1.Code)

	var afterFirst models.Bill
	suite.env.db.First(&afterFirst, bill.ID)
	firstInvoice := afterFirst.InvoiceID

	// The gateway redelivers the same event.
	w2, response := suite.postWebhook(body, signature)
	assert.Equal(suite.T(), http.StatusOK, w2.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(suite.T(), true, data["duplicate"])

	var afterSecond models.Bill
	suite.env.db.First(&afterSecond, bill.ID)
	assert.Equal(suite.T(), firstInvoice, afterSecond.InvoiceID)
	assert.Len(suite.T(), suite.env.invoices.Generated(), 1)
}

func (suite *WebhookControllerTestSuite) TestWebhook_UnknownOrderAcknowledged() {
	body := capturedEvent("TXN_UNKNOWN", "pay_abc")
	w, response := suite.postWebhook(body, sign(body, "test-webhook-secret"))

	// Acknowledged so the gateway stops retrying, but nothing was handled.
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(suite.T(), false, data["handled"])
}

func (suite *WebhookControllerTestSuite) TestWebhook_IgnoresOtherEvents() {
	_, bill := suite.seedOrderedBill("TXN_1_6")

	body, _ := json.Marshal(map[string]interface{}{
		"event": "payment.failed",
		"data":  map[string]interface{}{"order_id": "TXN_1_6"},
	})
	w, _ := suite.postWebhook(body, sign(body, "test-webhook-secret"))

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	var untouched models.Bill
	suite.env.db.First(&untouched, bill.ID)
	assert.Equal(suite.T(), models.BillSent, untouched.Status)
}

func TestWebhookControllerTestSuite(t *testing.T) {
	suite.Run(t, new(WebhookControllerTestSuite))
}
