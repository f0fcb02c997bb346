package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GasperHribersek/SOA-project-fintech/auth"
)

func newAuthTestRouter(verifier auth.TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthRequired(verifier), func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "identity missing"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subject": identity.Subject})
	})
	return r
}

func TestAuthRequiredNoToken(t *testing.T) {
	r := newAuthTestRouter(auth.NewLocalVerifier("secret"))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "No token provided", body["error"])
}

func TestAuthRequiredInvalidToken(t *testing.T) {
	r := newAuthTestRouter(auth.NewLocalVerifier("secret"))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Invalid token", body["error"])
}

func TestAuthRequiredExpiredTokenDistinguishable(t *testing.T) {
	token, err := auth.GenerateToken("secret", auth.Identity{Subject: "42"}, -time.Minute)
	require.NoError(t, err)

	r := newAuthTestRouter(auth.NewLocalVerifier("secret"))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Token expired", body["error"])
}

func TestAuthRequiredValidTokenAttachesIdentity(t *testing.T) {
	token, err := auth.GenerateToken("secret", auth.Identity{Subject: "42", Name: "gasper"}, time.Hour)
	require.NoError(t, err)

	r := newAuthTestRouter(auth.NewLocalVerifier("secret"))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "42", body["subject"])
}
