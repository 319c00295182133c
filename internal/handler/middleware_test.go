package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"reviewdesk/internal/service"
	"reviewdesk/internal/utils/extractor"
)

func attestationToken(secret, appID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(appID))
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	ext := extractor.New()
	router := gin.New()
	router.Use(Attestation(ext, NewHMACVerifier(secret), zap.NewNop()))
	router.Use(BearerAuth(ext, zap.NewNop()))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": c.GetString("userId")})
	})
	return router
}

func TestAttestationRejectsMissingToken(t *testing.T) {
	router := newTestRouter("secret")

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("x-user-id", "user-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAttestationRejectsInvalidToken(t *testing.T) {
	router := newTestRouter("secret")

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("x-app-id", "portal-web")
	req.Header.Set("X-APPCHECK", attestationToken("wrong-secret", "portal-web"))
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("x-user-id", "user-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAttestationAcceptsValidToken(t *testing.T) {
	router := newTestRouter("secret")

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("x-app-id", "portal-web")
	req.Header.Set("X-APPCHECK", attestationToken("secret", "portal-web"))
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("x-user-id", "user-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestBearerAuthRejectsMissingToken(t *testing.T) {
	router := newTestRouter("secret")

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("x-app-id", "portal-web")
	req.Header.Set("X-APPCHECK", attestationToken("secret", "portal-web"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutRevokesTokenAtProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seenAuth string
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer provider.Close()
	viper.Set("identity.base_url", provider.URL)

	h := &Handler{
		identity:  service.NewIdentityClient(zap.NewNop()),
		extractor: extractor.New(),
		logger:    zap.NewNop(),
	}
	router := gin.New()
	router.POST("/auth/logout", h.logout)

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "Bearer tok-1", seenAuth)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/auth/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerAuthRejectsMissingIdentity(t *testing.T) {
	router := newTestRouter("secret")

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("x-app-id", "portal-web")
	req.Header.Set("X-APPCHECK", attestationToken("secret", "portal-web"))
	req.Header.Set("Authorization", "Bearer token")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
