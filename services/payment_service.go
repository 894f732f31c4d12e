package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	appConfig "github.com/onestep-solution/field-service-api/config"
)

// UPIIntent is a upi:// deep link plus its QR rendering.
type UPIIntent struct {
	URI   string
	QRPNG []byte
}

// BuildUPIIntent builds a upi:// payment link for the given payee and
// renders it as a QR code PNG.
func BuildUPIIntent(vpa, payeeName string, amount float64, note string) (*UPIIntent, error) {
	uri := fmt.Sprintf("upi://pay?pa=%s&pn=%s&am=%.2f&cu=INR&tn=%s",
		vpa, url.QueryEscape(payeeName), amount, url.QueryEscape(note))

	png, err := qrcode.Encode(uri, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to render UPI QR code: %w", err)
	}
	return &UPIIntent{URI: uri, QRPNG: png}, nil
}

// PaymentGateway defines the interface for the external payment processor
type PaymentGateway interface {
	CreateOrder(workID uint, amount float64) (map[string]interface{}, error)
}

var paymentGatewayInstance PaymentGateway

// InitPaymentGateway initializes the UPI-intent gateway adapter
func InitPaymentGateway() PaymentGateway {
	cfg := appConfig.GetConfig()
	paymentGatewayInstance = &UPIGatewayService{
		merchantID: cfg.GatewayMerchantID,
		saltKey:    cfg.GatewaySaltKey,
		baseURL:    "https://api.phonepe.com/apis/hermes",
		callback:   cfg.FrontendBaseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	return paymentGatewayInstance
}

// GetPaymentGateway returns the payment gateway instance
func GetPaymentGateway() PaymentGateway {
	return paymentGatewayInstance
}

// SetPaymentGateway sets the payment gateway instance (primarily for testing)
func SetPaymentGateway(g PaymentGateway) {
	paymentGatewayInstance = g
}

// UPIGatewayService creates UPI-intent orders against the hosted gateway.
type UPIGatewayService struct {
	merchantID string
	saltKey    string
	baseURL    string
	callback   string
	client     *http.Client
}

// CreateOrder submits a UPI_INTENT pay request. The gateway expects the
// JSON payload base64-encoded, with a sha256(payload + path + salt)
// checksum in the X-VERIFY header.
func (s *UPIGatewayService) CreateOrder(workID uint, amount float64) (map[string]interface{}, error) {
	payload := map[string]interface{}{
		"merchantId":    s.merchantID,
		"transactionId": fmt.Sprintf("TXN_%d_%d", workID, time.Now().UnixMilli()),
		"amount":        int64(amount * 100), // paise
		"redirectUrl":   fmt.Sprintf("%s/payment-success?workId=%d", s.callback, workID),
		"callbackUrl":   fmt.Sprintf("%s/api/v1/webhook/gateway", s.callback),
		"paymentInstrument": map[string]string{
			"type": "UPI_INTENT",
		},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order payload: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	sum := sha256.Sum256([]byte(encoded + "/pg/v1/pay" + s.saltKey))
	checksum := hex.EncodeToString(sum[:]) + "###1"

	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return nil, fmt.Errorf("failed to encode order request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+"/pg/v1/pay", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", checksum)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return out, nil
}

// VerifyWebhookSignature computes an HMAC-SHA256 over the exact raw request
// body and compares it to the signature header in constant time. The body
// must be the bytes as received; re-serializing the JSON would break the MAC.
func VerifyWebhookSignature(rawBody []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
