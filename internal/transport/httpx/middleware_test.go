package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"commerce-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, uid uuid.UUID, role string) string {
	t.Helper()
	claims := accessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestExtractBearerToken(t *testing.T) {
	if tok, ok := ExtractBearerToken("Bearer abc"); !ok || tok != "abc" {
		t.Fatalf("expected abc got %q ok=%v", tok, ok)
	}
	if tok, ok := ExtractBearerToken("bearer abc"); !ok || tok != "abc" {
		t.Fatalf("scheme must be case-insensitive, got %q ok=%v", tok, ok)
	}
	if _, ok := ExtractBearerToken(""); ok {
		t.Fatal("empty header must not parse")
	}
	if _, ok := ExtractBearerToken("Basic abc"); ok {
		t.Fatal("non-bearer scheme must not parse")
	}
}

func newAuthTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	log := zap.NewNop()

	r.GET("/me", AuthRequired(testSecret, log), func(c *gin.Context) {
		uid, ok := service.UserIDFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no user in context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": uid.String()})
	})
	r.GET("/admin", AuthRequired(testSecret, log), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/open", AuthOptional(testSecret, log), func(c *gin.Context) {
		_, ok := service.UserIDFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})
	return r
}

func doGet(r *gin.Engine, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := newAuthTestRouter(t)
	uid := uuid.New()

	if w := doGet(r, "/me", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token expected 401 got %d", w.Code)
	}
	if w := doGet(r, "/me", "Bearer not-a-token"); w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token expected 401 got %d", w.Code)
	}
	if w := doGet(r, "/me", "Bearer "+signToken(t, uid, "customer")); w.Code != http.StatusOK {
		t.Fatalf("valid token expected 200 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestRequireAdmin(t *testing.T) {
	r := newAuthTestRouter(t)

	if w := doGet(r, "/admin", "Bearer "+signToken(t, uuid.New(), "customer")); w.Code != http.StatusForbidden {
		t.Fatalf("customer expected 403 got %d", w.Code)
	}
	if w := doGet(r, "/admin", "Bearer "+signToken(t, uuid.New(), "admin")); w.Code != http.StatusOK {
		t.Fatalf("admin expected 200 got %d", w.Code)
	}
}

func TestAuthOptional(t *testing.T) {
	r := newAuthTestRouter(t)

	w := doGet(r, "/open", "")
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous expected 200 got %d", w.Code)
	}

	// invalid tokens are ignored rather than rejected
	if w := doGet(r, "/open", "Bearer junk"); w.Code != http.StatusOK {
		t.Fatalf("invalid optional token expected 200 got %d", w.Code)
	}
}
