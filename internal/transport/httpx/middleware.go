package httpx

import (
	"net/http"
	"strings"

	"commerce-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gin context keys for user info.
const (
	CtxUserID   = "user_id"
	CtxUserRole = "user_role"
)

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func parseToken(tokenStr, secret string) (*accessClaims, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func injectIdentity(c *gin.Context, claims *accessClaims) {
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return
	}
	ctx := service.WithUserID(c.Request.Context(), uid)
	if claims.Role != "" {
		ctx = service.WithRole(ctx, service.Role(claims.Role))
	}
	c.Request = c.Request.WithContext(ctx)
	c.Set(CtxUserID, uid.String())
	c.Set(CtxUserRole, claims.Role)
}

// AuthRequired validates the Bearer token and injects user identity into the
// request context.
func AuthRequired(secret string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := ExtractBearerToken(c.GetHeader("Authorization"))
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}
		claims, err := parseToken(token, secret)
		if err != nil {
			log.Warn("token validation failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		injectIdentity(c, claims)
		c.Next()
	}
}

// AuthOptional injects identity when a valid token is present and lets the
// request through otherwise. Checkout supports guests.
func AuthOptional(secret string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := ExtractBearerToken(c.GetHeader("Authorization"))
		if ok && token != "" {
			if claims, err := parseToken(token, secret); err == nil {
				injectIdentity(c, claims)
			} else {
				log.Debug("ignoring invalid optional token", zap.Error(err))
			}
		}
		c.Next()
	}
}

// RequireAdmin must run after AuthRequired.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CtxUserRole)
		if service.Role(role) != service.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

// ExtractBearerToken pulls the token out of an Authorization header value.
func ExtractBearerToken(authz string) (string, bool) {
	if authz == "" {
		return "", false
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
