package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hometownhq/hometown-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func setupAuthMiddlewareTest(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	authMiddleware := NewAuthMiddleware(testSecret)

	router := gin.New()
	router.GET("/protected", authMiddleware.Authenticate(), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		email, _ := GetUserEmail(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "email": email})
	})

	return router
}

func doGet(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := setupAuthMiddlewareTest(t)

	token, err := util.GenerateToken(42, "ann@x.com", testSecret, time.Hour)
	require.NoError(t, err)

	w := doGet(router, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ann@x.com")
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	router := setupAuthMiddlewareTest(t)

	expired, err := util.GenerateToken(42, "ann@x.com", testSecret, time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	wrongSecret, err := util.GenerateToken(42, "ann@x.com", "other-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantCode   string
	}{
		{name: "Missing header", authHeader: "", wantCode: "AUTH_UNAUTHORIZED"},
		{name: "Malformed header", authHeader: "Token abc", wantCode: "AUTH_TOKEN_INVALID"},
		{name: "Garbage token", authHeader: "Bearer not.a.jwt", wantCode: "AUTH_TOKEN_INVALID"},
		{name: "Wrong secret", authHeader: "Bearer " + wrongSecret, wantCode: "AUTH_TOKEN_INVALID"},
		{name: "Expired token", authHeader: "Bearer " + expired, wantCode: "AUTH_TOKEN_EXPIRED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(router, tt.authHeader)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}
