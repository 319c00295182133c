package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reviewdesk/internal/utils/extractor"
	logging "reviewdesk/pkg/logger"
)

// AttestationVerifier checks that a request carries a valid proof of
// originating from the legitimate client application.
type AttestationVerifier interface {
	Verify(appID string, token string) bool
}

// hmacVerifier expects the token to be the hex HMAC-SHA256 of the app id
// under the shared attestation secret.
type hmacVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) AttestationVerifier {
	return &hmacVerifier{secret: []byte(secret)}
}

func (v *hmacVerifier) Verify(appID string, token string) bool {
	if appID == "" || token == "" {
		return false
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(appID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(token))
}

// Attestation rejects any request missing or failing app attestation before
// any processing happens.
func Attestation(ext extractor.Extractor, verifier AttestationVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ext.GetAttestation(c.Request.Header)
		appID := ext.GetAppID(c.Request.Header)
		if !verifier.Verify(appID, token) {
			logger.Warn("Rejected request failing attestation",
				zap.String("path", c.FullPath()),
				zap.String("appId", appID))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid client attestation"})
			return
		}
		c.Next()
	}
}

// BearerAuth requires a bearer token and the gateway-injected identity
// headers; the gateway owns token verification.
func BearerAuth(ext extractor.Extractor, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := ext.GetBearer(c.Request.Header); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		userID, err := ext.GetUserID(c.Request.Header)
		if err != nil {
			logger.Warn("Request without identity headers", zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
			return
		}
		c.Set("userId", userID)
		c.Next()
	}
}

// RequestID threads the inbound x-request-id into the request context so
// log entries can be correlated.
func RequestID(ext extractor.Extractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := ext.GetRequestID(c.Request.Header)
		if requestID != "" {
			c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), requestID))
		}
		c.Next()
	}
}
