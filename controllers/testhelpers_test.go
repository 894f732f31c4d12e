package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/onestep-solution/field-service-api/config"
	"github.com/onestep-solution/field-service-api/middleware"
	"github.com/onestep-solution/field-service-api/models"
	"github.com/onestep-solution/field-service-api/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testEnv bundles the in-memory database and the mocked side-channel
// services every controller test runs against.
type testEnv struct {
	db       *gorm.DB
	s3       *services.MockS3Service
	email    *services.MockEmailService
	routing  *services.MockRoutingService
	notifier *services.FakeNotifier
	invoices *services.MockInvoiceService
	gateway  *services.MockPaymentGateway
}

// newTestEnv wires an isolated environment: sqlite in memory, mocked S3,
// email, routing, notifier, invoice generator and payment gateway.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.SetConfig(&config.Config{
		Port:                 "8080",
		GoEnv:                "test",
		JWTSecret:            "test-secret",
		JWTExpiryHours:       1,
		EmailFromName:        "One Step Solution",
		UPIVPA:               "onestep@upi",
		GatewayWebhookSecret: "test-webhook-secret",
		FrontendBaseURL:      "http://localhost:3000",
		InvoiceDir:           t.TempDir(),
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Work{},
		&models.Booking{},
		&models.Bill{},
		&models.BillItem{},
		&models.Notification{},
		&models.AdminNotification{},
		&models.Warranty{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	config.SetDB(db)

	env := &testEnv{
		db:       db,
		s3:       services.NewMockS3Service(),
		email:    services.NewMockEmailService(),
		routing:  services.NewMockRoutingService(),
		notifier: services.NewFakeNotifier(),
		invoices: services.NewMockInvoiceService(),
		gateway:  services.NewMockPaymentGateway(),
	}
	env.s3.SetAsMockForTesting()
	env.email.SetAsMockForTesting()
	env.routing.SetAsMockForTesting()
	env.notifier.SetAsFakeForTesting()
	env.invoices.SetAsMockForTesting()
	env.gateway.SetAsMockForTesting()

	return env
}

// mockAuthMiddleware stores the given user in the context the way
// RequireAuth would after token validation
func mockAuthMiddleware(user models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetUserForTesting(c, user)
		c.Next()
	}
}

// createUser inserts and returns a user row
func (env *testEnv) createUser(t *testing.T, user models.User) models.User {
	t.Helper()
	if err := env.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func floatPtr(v float64) *float64 { return &v }

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

// createWork inserts and returns a work row
func (env *testEnv) createWork(t *testing.T, work models.Work) models.Work {
	t.Helper()
	if err := env.db.Create(&work).Error; err != nil {
		t.Fatalf("failed to create work: %v", err)
	}
	return work
}

// reloadWork fetches the current state of a work row
func (env *testEnv) reloadWork(t *testing.T, id uint) models.Work {
	t.Helper()
	var work models.Work
	if err := env.db.First(&work, id).Error; err != nil {
		t.Fatalf("failed to reload work %d: %v", id, err)
	}
	return work
}

// doJSON performs a JSON request against the router and decodes the envelope
func doJSON(router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader *bytes.Buffer
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

// pngBytes is a minimal valid PNG header, enough to pass extension checks.
var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// buildMultipart assembles a multipart form with the given fields and an
// optional photo file under fileField
func buildMultipart(t *testing.T, fields map[string]string, fileField, filename string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write form field %s: %v", key, err)
		}
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(pngBytes); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	return body, writer.FormDataContentType()
}

// doMultipart performs a multipart request and decodes the envelope
func doMultipart(t *testing.T, router *gin.Engine, method, path string, fields map[string]string, fileField, filename string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	body, contentType := buildMultipart(t, fields, fileField, filename)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

// errorCode digs the error code out of a response envelope
func errorCode(response map[string]interface{}) string {
	errField, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errField["code"].(string)
	return code
}
