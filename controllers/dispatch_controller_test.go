package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/onestep-solution/field-service-api/models"
	"github.com/onestep-solution/field-service-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// DispatchControllerTestSuite covers location pings and live tracking
type DispatchControllerTestSuite struct {
	suite.Suite
	env    *testEnv
	client models.User
	tech   models.User
}

func (suite *DispatchControllerTestSuite) SetupTest() {
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
}

func (suite *DispatchControllerTestSuite) routerFor(user models.User) *gin.Engine {
	router := gin.New()
	v1 := router.Group("/api/v1")
	auth := mockAuthMiddleware(user)
	v1.PATCH("/work/update-location", auth, UpdateLocation)
	v1.GET("/track-technician/:workId", auth, TrackTechnician)
	return router
}

func (suite *DispatchControllerTestSuite) TestUpdateLocation_StoresCoordinates() {
	w, _ := doJSON(suite.routerFor(suite.tech), http.MethodPatch, "/api/v1/work/update-location",
		map[string]interface{}{"lat": 19.1, "lng": 72.9})

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var tech models.User
	suite.env.db.First(&tech, suite.tech.ID)
	assert.Equal(suite.T(), 19.1, *tech.Lat)
	assert.Equal(suite.T(), 72.9, *tech.Lng)
	assert.NotNil(suite.T(), tech.LastLocationUpdate)
	assert.True(suite.T(), tech.OnDuty)
}

func (suite *DispatchControllerTestSuite) TestUpdateLocation_FlipsAcceptedWorkToDispatchOnce() {
	work := suite.env.createWork(suite.T(), models.Work{
		ClientID:     suite.client.ID,
		ServiceType:  "pipe repair",
		TechnicianID: &suite.tech.ID,
		Status:       models.StatusApproved,
		Token:        "REQ-2026-00050",
		Lat:          floatPtr(19.076),
		Lng:          floatPtr(72.8777),
	})

	router := suite.routerFor(suite.tech)

	w1, response := doJSON(router, http.MethodPatch, "/api/v1/work/update-location",
		map[string]interface{}{"lat": 19.1, "lng": 72.9})
	assert.Equal(suite.T(), http.StatusOK, w1.Code)

	data := response["data"].(map[string]interface{})
	assert.Equal(suite.T(), "12 minutes", data["eta"])
	assert.Equal(suite.T(), models.StatusDispatch, suite.env.reloadWork(suite.T(), work.ID).Status)

	routingCalls := suite.env.routing.Calls()

	// Later pings keep updating position but never re-trigger dispatch.
	w2, response := doJSON(router, http.MethodPatch, "/api/v1/work/update-location",
		map[string]interface{}{"lat": 19.2, "lng": 72.95})
	assert.Equal(suite.T(), http.StatusOK, w2.Code)
	data = response["data"].(map[string]interface{})
	_, hasWork := data["work"]
	assert.False(suite.T(), hasWork)
	assert.Equal(suite.T(), models.StatusDispatch, suite.env.reloadWork(suite.T(), work.ID).Status)
	assert.Equal(suite.T(), routingCalls, suite.env.routing.Calls())
}

func (suite *DispatchControllerTestSuite) TestUpdateLocation_ValidationError() {
	w, response := doJSON(suite.routerFor(suite.tech), http.MethodPatch, "/api/v1/work/update-location",
		map[string]interface{}{"lat": 19.1})

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "VALIDATION_ERROR", errorCode(response))
}

func (suite *DispatchControllerTestSuite) TestTrackTechnician_ReturnsPositionAndETA() {
	suite.env.db.Model(&models.User{}).Where("id = ?", suite.tech.ID).
		Updates(map[string]interface{}{"lat": 19.1, "lng": 72.9})
	work := suite.env.createWork(suite.T(), models.Work{
		ClientID:     suite.client.ID,
		ServiceType:  "pipe repair",
		TechnicianID: &suite.tech.ID,
		Status:       models.StatusDispatch,
		Token:        "REQ-2026-00051",
		Lat:          floatPtr(19.076),
		Lng:          floatPtr(72.8777),
	})

	w, response := doJSON(suite.routerFor(suite.client), http.MethodGet,
		fmt.Sprintf("/api/v1/track-technician/%d", work.ID), nil)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(suite.T(), "12 minutes", data["eta_message"])
	tech := data["technician"].(map[string]interface{})
	assert.Equal(suite.T(), 19.1, tech["lat"])
}

func (suite *DispatchControllerTestSuite) TestTrackTechnician_DegradesWhenRoutingFails() {
	suite.env.db.Model(&models.User{}).Where("id = ?", suite.tech.ID).
		Updates(map[string]interface{}{"lat": 19.1, "lng": 72.9})
	work := suite.env.createWork(suite.T(), models.Work{
		ClientID:     suite.client.ID,
		ServiceType:  "pipe repair",
		TechnicianID: &suite.tech.ID,
		Status:       models.StatusDispatch,
		Token:        "REQ-2026-00052",
		Lat:          floatPtr(19.076),
		Lng:          floatPtr(72.8777),
	})

	suite.env.routing.FailWith(errors.New("routing service down"))

	w, response := doJSON(suite.routerFor(suite.client), http.MethodGet,
		fmt.Sprintf("/api/v1/track-technician/%d", work.ID), nil)

	// Position still comes back; only the estimate is missing.
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(suite.T(), services.ETANotAvailable, data["eta_message"])
	assert.NotNil(suite.T(), data["technician"])
}

func (suite *DispatchControllerTestSuite) TestTrackTechnician_NoTechnicianAssigned() {
	work := suite.env.createWork(suite.T(), models.Work{
		ClientID:    suite.client.ID,
		ServiceType: "pipe repair",
		Status:      models.StatusOpen,
		Token:       "REQ-2026-00053",
	})

	w, response := doJSON(suite.routerFor(suite.client), http.MethodGet,
		fmt.Sprintf("/api/v1/track-technician/%d", work.ID), nil)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "NO_TECHNICIAN", errorCode(response))
}

func (suite *DispatchControllerTestSuite) TestTrackTechnician_ForbiddenForStrangers() {
	suite.env.db.Model(&models.User{}).Where("id = ?", suite.tech.ID).
		Updates(map[string]interface{}{"lat": 19.1, "lng": 72.9})
	work := suite.env.createWork(suite.T(), models.Work{
		ClientID:     suite.client.ID,
		ServiceType:  "pipe repair",
		TechnicianID: &suite.tech.ID,
		Status:       models.StatusDispatch,
		Token:        "REQ-2026-00054",
	})

	stranger := suite.env.createUser(suite.T(), models.User{
		Name:  "Stranger",
		Email: "stranger@test.com",
		Role:  "client",
	})

	w, response := doJSON(suite.routerFor(stranger), http.MethodGet,
		fmt.Sprintf("/api/v1/track-technician/%d", work.ID), nil)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "FORBIDDEN", errorCode(response))
}

func (suite *DispatchControllerTestSuite) TestTrackTechnician_NoLocationShared() {
	work := suite.env.createWork(suite.T(), models.Work{
		ClientID:     suite.client.ID,
		ServiceType:  "pipe repair",
		TechnicianID: &suite.tech.ID,
		Status:       models.StatusDispatch,
		Token:        "REQ-2026-00055",
	})

	w, response := doJSON(suite.routerFor(suite.client), http.MethodGet,
		fmt.Sprintf("/api/v1/track-technician/%d", work.ID), nil)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "NO_LOCATION", errorCode(response))
}

func TestDispatchControllerTestSuite(t *testing.T) {
	suite.Run(t, new(DispatchControllerTestSuite))
}
