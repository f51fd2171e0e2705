package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/batgear/batstore-backend/internal/app/model"
	apperrors "github.com/batgear/batstore-backend/internal/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	apperrors.UseJSONFieldNames()
}

func setUserIDInContext(c *gin.Context, userID uint) {
	c.Set("user_id", userID)
}

// asUser wraps handler so it runs as an authenticated user
func asUser(userID uint, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		setUserIDInContext(c, userID)
		handler(c)
	}
}

func newJSONRequest(method, path string, body interface{}) *http.Request {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func performJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, newJSONRequest(method, path, body))
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

// dataOf returns the "data" object of a success envelope
func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	body := decodeBody(t, w)
	require.Equal(t, true, body["success"], w.Body.String())
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, w.Body.String())
	return data
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) map[string]interface{} {
	require.Equal(t, status, w.Code, w.Body.String())
	body := decodeBody(t, w)
	require.Equal(t, false, body["success"])
	require.Equal(t, code, body["error"])
	return body
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role model.UserRole) *model.User {
	user := &model.User{
		Email:        email,
		PasswordHash: "hash",
		Name:         "Test User",
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

