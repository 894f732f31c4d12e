package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/onestep-solution/field-service-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

// AuthControllerTestSuite covers registration and login
type AuthControllerTestSuite struct {
	suite.Suite
	env    *testEnv
	router *gin.Engine
}

func (suite *AuthControllerTestSuite) SetupTest() {
	suite.env = newTestEnv(suite.T())
	suite.router = gin.New()
	v1 := suite.router.Group("/api/v1")
	v1.POST("/auth/register", Register)
	v1.POST("/auth/login", Login)
}

func (suite *AuthControllerTestSuite) TestRegister_Success() {
	w, response := doJSON(suite.router, http.MethodPost, "/api/v1/auth/register", map[string]interface{}{
		"name":           "Ravi Tech",
		"email":          "Ravi@Test.com",
		"phone":          "9876543210",
		"password":       "s3cret-pass",
		"role":           "technician",
		"specialization": []string{"Plumbing", " Electrical "},
		"location":       "Mumbai",
	})

	assert.Equal(suite.T(), http.StatusCreated, w.Code)
	assert.True(suite.T(), response["success"].(bool))

	data := response["data"].(map[string]interface{})
	assert.NotEmpty(suite.T(), data["token"])
	user := data["user"].(map[string]interface{})
	assert.Equal(suite.T(), "ravi@test.com", user["email"])
	assert.Equal(suite.T(), "plumbing,electrical", user["specialization"])
	assert.Equal(suite.T(), "mumbai", user["location"])

	// Password hash never leaks through the API.
	_, exposed := user["password_hash"]
	assert.False(suite.T(), exposed)
}

func (suite *AuthControllerTestSuite) TestRegister_DuplicateEmailConflicts() {
	suite.env.createUser(suite.T(), models.User{
		Name:  "Existing",
		Email: "ravi@test.com",
		Role:  "client",
	})

	w, response := doJSON(suite.router, http.MethodPost, "/api/v1/auth/register", map[string]interface{}{
		"name":     "Ravi Tech",
		"email":    "ravi@test.com",
		"phone":    "9876543210",
		"password": "s3cret-pass",
	})

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "USER_EXISTS", errorCode(response))
}

func (suite *AuthControllerTestSuite) TestRegister_ShortPasswordRejected() {
	w, response := doJSON(suite.router, http.MethodPost, "/api/v1/auth/register", map[string]interface{}{
		"name":     "Ravi Tech",
		"email":    "ravi@test.com",
		"phone":    "9876543210",
		"password": "short",
	})

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "VALIDATION_ERROR", errorCode(response))
}

func (suite *AuthControllerTestSuite) TestLogin_Success() {
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.DefaultCost)
	suite.env.createUser(suite.T(), models.User{
		Name:         "Asha Client",
		Email:        "asha@test.com",
		Role:         "client",
		PasswordHash: string(hash),
	})

	w, response := doJSON(suite.router, http.MethodPost, "/api/v1/auth/login", map[string]interface{}{
		"email":    "asha@test.com",
		"password": "s3cret-pass",
	})

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.NotEmpty(suite.T(), data["token"])
}

func (suite *AuthControllerTestSuite) TestLogin_WrongPassword() {
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.DefaultCost)
	suite.env.createUser(suite.T(), models.User{
		Name:         "Asha Client",
		Email:        "asha@test.com",
		Role:         "client",
		PasswordHash: string(hash),
	})

	w, response := doJSON(suite.router, http.MethodPost, "/api/v1/auth/login", map[string]interface{}{
		"email":    "asha@test.com",
		"password": "wrong-pass",
	})

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(suite.T(), "INVALID_CREDENTIALS", errorCode(response))
}

func (suite *AuthControllerTestSuite) TestLogin_UnknownEmail() {
	w, response := doJSON(suite.router, http.MethodPost, "/api/v1/auth/login", map[string]interface{}{
		"email":    "ghost@test.com",
		"password": "whatever-pass",
	})

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(suite.T(), "INVALID_CREDENTIALS", errorCode(response))
}

func TestAuthControllerTestSuite(t *testing.T) {
	suite.Run(t, new(AuthControllerTestSuite))
}
