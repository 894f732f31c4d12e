package controllers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/onestep-solution/field-service-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// WarrantyControllerTestSuite covers warranty lookup and claims
type WarrantyControllerTestSuite struct {
	suite.Suite
	env    *testEnv
	client models.User
	tech   models.User
}

func (suite *WarrantyControllerTestSuite) SetupTest() {
	suite.env = newTestEnv(suite.T())
	suite.client = suite.env.createUser(suite.T(), models.User{
		Name:  "Asha Client",
		Email: "asha@test.com",
		Role:  "client",
	})
	suite.tech = suite.env.createUser(suite.T(), models.User{
		Name:           "Ravi Tech",
		Email:          "ravi@test.com",
		Role:           "technician",
		Specialization: "plumbing",
		Location:       "mumbai",
	})
}

func (suite *WarrantyControllerTestSuite) routerFor(user models.User) *gin.Engine {
	router := gin.New()
	v1 := router.Group("/api/v1")
	auth := mockAuthMiddleware(user)
	v1.GET("/warranty/:workId", auth, CheckWarranty)
	v1.POST("/warranty/claim", auth, RaiseWarrantyClaim)
	return router
}

// seedWarranty creates a completed work and its warranty expiring at the
// given time
func (suite *WarrantyControllerTestSuite) seedWarranty(token string, expiresAt time.Time) (models.Work, models.Warranty) {
	work := suite.env.createWork(suite.T(), models.Work{
		ClientID:       suite.client.ID,
		TechnicianID:   &suite.tech.ID,
		ServiceType:    "pipe repair",
		Specialization: "plumbing",
		Location:       "mumbai",
		Status:         models.StatusCompleted,
		Token:          token,
	})
	warranty := models.Warranty{
		WorkID:       work.ID,
		ClientID:     suite.client.ID,
		TechnicianID: suite.tech.ID,
		ServiceType:  work.ServiceType,
		WarrantyDays: models.DefaultWarrantyDays,
		ExpiresAt:    expiresAt,
		Status:       models.WarrantyActive,
	}
	if err := suite.env.db.Create(&warranty).Error; err != nil {
		suite.T().Fatalf("failed to create warranty: %v", err)
	}
	return work, warranty
}

func (suite *WarrantyControllerTestSuite) TestCheckWarranty_InsideWindow() {
	work, _ := suite.seedWarranty("REQ-2026-00060", time.Now().AddDate(0, 0, 12))

	w, response := doJSON(suite.routerFor(suite.client), http.MethodGet,
		"/api/v1/warranty/"+itoa(work.ID), nil)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(suite.T(), true, data["in_warranty"])
	assert.Equal(suite.T(), float64(12), data["days_left"])
	assert.Equal(suite.T(), models.WarrantyActive, data["status"])
}

func (suite *WarrantyControllerTestSuite) TestCheckWarranty_Expired() {
	work, _ := suite.seedWarranty("REQ-2026-00061", time.Now().AddDate(0, 0, -1))

	w, response := doJSON(suite.routerFor(suite.client), http.MethodGet,
		"/api/v1/warranty/"+itoa(work.ID), nil)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(suite.T(), false, data["in_warranty"])
	assert.Equal(suite.T(), float64(0), data["days_left"])
}

func (suite *WarrantyControllerTestSuite) TestCheckWarranty_StrangerForbidden() {
	work, _ := suite.seedWarranty("REQ-2026-00062", time.Now().AddDate(0, 0, 12))
	stranger := suite.env.createUser(suite.T(), models.User{
		Name:  "Stranger",
		Email: "stranger@test.com",
		Role:  "client",
	})

	w, response := doJSON(suite.routerFor(stranger), http.MethodGet,
		"/api/v1/warranty/"+itoa(work.ID), nil)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "FORBIDDEN", errorCode(response))
}

func (suite *WarrantyControllerTestSuite) TestCheckWarranty_NotFound() {
	w, response := doJSON(suite.routerFor(suite.client), http.MethodGet,
		"/api/v1/warranty/9999", nil)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "WARRANTY_NOT_FOUND", errorCode(response))
}

func (suite *WarrantyControllerTestSuite) TestRaiseWarrantyClaim_CreatesFreeReservice() {
	work, warranty := suite.seedWarranty("REQ-2026-00063", time.Now().AddDate(0, 0, 20))

	w, response := doJSON(suite.routerFor(suite.client), http.MethodPost, "/api/v1/warranty/claim",
		map[string]interface{}{"work_id": work.ID, "issue_description": "pipe leaking again"})

	assert.Equal(suite.T(), http.StatusCreated, w.Code)
	data := response["data"].(map[string]interface{})
	reservice := data["work"].(map[string]interface{})
	assert.Equal(suite.T(), "taken", reservice["status"])
	assert.Equal(suite.T(), float64(0), reservice["service_charge"])
	assert.Equal(suite.T(), float64(suite.tech.ID), reservice["technician_id"])
	assert.True(suite.T(), strings.HasPrefix(reservice["token"].(string), "REQ-"))

	var reloaded models.Warranty
	assert.NoError(suite.T(), suite.env.db.First(&reloaded, warranty.ID).Error)
	assert.Equal(suite.T(), models.WarrantyClaimed, reloaded.Status)
	assert.NotNil(suite.T(), reloaded.ClaimedAt)
	assert.NotNil(suite.T(), reloaded.ClaimWorkID)
	assert.Equal(suite.T(), "pipe leaking again", reloaded.ClaimReason)

	// The original technician is told about the re-service.
	events := suite.env.notifier.Events()
	assert.NotEmpty(suite.T(), events)
	assert.Equal(suite.T(), suite.tech.ID, events[0].UserID)
}

func (suite *WarrantyControllerTestSuite) TestRaiseWarrantyClaim_ExpiredConflicts() {
	work, warranty := suite.seedWarranty("REQ-2026-00064", time.Now().AddDate(0, 0, -2))

	w, response := doJSON(suite.routerFor(suite.client), http.MethodPost, "/api/v1/warranty/claim",
		map[string]interface{}{"work_id": work.ID, "issue_description": "still broken"})

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "WARRANTY_EXPIRED", errorCode(response))

	var reloaded models.Warranty
	suite.env.db.First(&reloaded, warranty.ID)
	assert.Equal(suite.T(), models.WarrantyActive, reloaded.Status)
}

func (suite *WarrantyControllerTestSuite) TestRaiseWarrantyClaim_SecondClaimConflicts() {
	work, _ := suite.seedWarranty("REQ-2026-00065", time.Now().AddDate(0, 0, 20))
	router := suite.routerFor(suite.client)

	w1, _ := doJSON(router, http.MethodPost, "/api/v1/warranty/claim",
		map[string]interface{}{"work_id": work.ID, "issue_description": "leaking"})
	assert.Equal(suite.T(), http.StatusCreated, w1.Code)

	w2, response := doJSON(router, http.MethodPost, "/api/v1/warranty/claim",
		map[string]interface{}{"work_id": work.ID, "issue_description": "leaking more"})
	assert.Equal(suite.T(), http.StatusConflict, w2.Code)
	assert.Equal(suite.T(), "ALREADY_CLAIMED", errorCode(response))

	// Only one re-service was spawned.
	var count int64
	suite.env.db.Model(&models.Work{}).
		Where("client_id = ? AND description LIKE ?", suite.client.ID, "Warranty claim:%").
		Count(&count)
	assert.Equal(suite.T(), int64(1), count)
}

func (suite *WarrantyControllerTestSuite) TestRaiseWarrantyClaim_RequiresOwnership() {
	work, _ := suite.seedWarranty("REQ-2026-00066", time.Now().AddDate(0, 0, 20))
	stranger := suite.env.createUser(suite.T(), models.User{
		Name:  "Stranger",
		Email: "stranger@test.com",
		Role:  "client",
	})

	w, response := doJSON(suite.routerFor(stranger), http.MethodPost, "/api/v1/warranty/claim",
		map[string]interface{}{"work_id": work.ID, "issue_description": "not mine"})

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "FORBIDDEN", errorCode(response))
}

func TestWarrantyControllerTestSuite(t *testing.T) {
	suite.Run(t, new(WarrantyControllerTestSuite))
}
