package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mr1hm/disaster-reports/internal/apperr"
	"github.com/mr1hm/disaster-reports/internal/models"
)

const (
	identityKey = "identity"
	tokenKey    = "token"
)

// CORS allows browser clients from any origin. Credentials stay disabled
// because the origin is a wildcard.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}

var securityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"X-XSS-Protection":          "1; mode=block",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Content-Security-Policy":   "default-src 'self'",
}

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range securityHeaders {
			h.Set(k, v)
		}
		c.Next()
	}
}

// requireAuth resolves the bearer token into an Identity for later handlers.
func (h *Handler) requireAuth(c *gin.Context) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		writeError(c, apperr.Authentication("missing or malformed bearer token"))
		return
	}

	id, err := h.sessions.Authenticate(c.Request.Context(), token)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Set(identityKey, id)
	c.Set(tokenKey, token)
	c.Next()
}

func (h *Handler) requireAdmin(c *gin.Context) {
	if !currentIdentity(c).IsAdmin() {
		writeError(c, apperr.Authorization("admin access required"))
		return
	}
	c.Next()
}

func currentIdentity(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*models.Identity)
	return id
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
