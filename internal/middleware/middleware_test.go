package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.JWTClaims{UserID: "u-1"}, nil
}

type stubResolver struct {
	perms *models.EffectivePermissions
	calls int
}

func (s *stubResolver) EffectivePermissions(ctx context.Context, userID string) (*models.EffectivePermissions, error) {
	s.calls++
	if s.perms == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return s.perms, nil
}

type denialCounter struct{ denied []string }

func (d *denialCounter) RecordDenial(permission string) { d.denied = append(d.denied, permission) }

type auditSink struct{ logs []*models.AuditLog }

func (a *auditSink) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/things", handlers...)
	return r
}

func serve(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/things", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	r := newRouter(JWT(stubValidator{}))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer bad").Code)
	assert.Equal(t, http.StatusOK, serve(r, "bearer good").Code)
}

func TestOptionalJWT(t *testing.T) {
	var seen *models.JWTClaims
	r := newRouter(OptionalJWT(stubValidator{}), func(c *gin.Context) { seen = Claims(c) })

	require.Equal(t, http.StatusOK, serve(r, "Bearer bad").Code)
	assert.Nil(t, seen)
	require.Equal(t, http.StatusOK, serve(r, "Bearer good").Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u-1", seen.UserID)
}

func TestRBACRequire(t *testing.T) {
	resolver := &stubResolver{perms: &models.EffectivePermissions{UserID: "u-1", Permissions: []string{"users.read"}}}
	denials := &denialCounter{}
	audit := &auditSink{}
	gate := NewRBAC(resolver, denials, audit)

	allowed := newRouter(JWT(stubValidator{}), gate.Require("users.read"))
	assert.Equal(t, http.StatusOK, serve(allowed, "Bearer good").Code)

	denied := newRouter(JWT(stubValidator{}), gate.Require("users.read", "users.delete"))
	assert.Equal(t, http.StatusForbidden, serve(denied, "Bearer good").Code)
	assert.Equal(t, []string{"users.delete"}, denials.denied)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionAccessDenied, audit.logs[0].Action)
}

func TestRBACRequireResolvesOncePerRequest(t *testing.T) {
	resolver := &stubResolver{perms: &models.EffectivePermissions{UserID: "u-1", Permissions: []string{"a.b", "c.d"}}}
	gate := NewRBAC(resolver, nil, nil)

	r := newRouter(JWT(stubValidator{}), gate.Require("a.b"), gate.Require("c.d"))
	assert.Equal(t, http.StatusOK, serve(r, "Bearer good").Code)
	assert.Equal(t, 1, resolver.calls)
}

func TestRBACSuperAdminPassesEverything(t *testing.T) {
	resolver := &stubResolver{perms: &models.EffectivePermissions{UserID: "u-1", SuperAdmin: true}}
	r := newRouter(JWT(stubValidator{}), NewRBAC(resolver, nil, nil).Require("anything.at_all"))
	assert.Equal(t, http.StatusOK, serve(r, "Bearer good").Code)
}

func TestRBACDeletedUserIsUnauthorized(t *testing.T) {
	r := newRouter(JWT(stubValidator{}), NewRBAC(&stubResolver{}, nil, nil).Require("users.read"))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer good").Code)

	noClaims := newRouter(NewRBAC(&stubResolver{}, nil, nil).Require("users.read"))
	assert.Equal(t, http.StatusUnauthorized, serve(noClaims, "").Code)
}

type observerFunc func(method, path string, status int, duration time.Duration)

func (f observerFunc) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	f(method, path, status, duration)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	var paths []string
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(observerFunc(func(method, path string, status int, _ time.Duration) {
		paths = append(paths, path)
	})))
	r.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, target := range []string{"/users/1", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}
	assert.Equal(t, []string{"/users/:id", "unmatched"}, paths)
}

func TestSetCacheHit(t *testing.T) {
	r := newRouter(WithResponseMeta(), func(c *gin.Context) {
		SetCacheHit(c, true)
		assert.Equal(t, true, ExtractMeta(c)[cacheHitKey])
	})
	w := serve(r, "")
	assert.Equal(t, "HIT", w.Header().Get(CacheHeader))
}
