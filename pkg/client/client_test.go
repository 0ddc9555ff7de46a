package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/contract"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/querycache"
)

func writeEnvelope(w http.ResponseWriter, status int, data interface{}, meta *pagination.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": status < 400, "data": data, "pagination": meta})
}

func writeError(w http.ResponseWriter, status int, code, message string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]interface{}{"code": code, "message": message, "fields": fields},
	})
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/api/v1", InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond})
	require.NoError(t, err)
	return c
}

func TestListUsersBuildsQueryAndCaches(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/v1/users", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "jane", q.Get("search"))
		assert.Equal(t, []string{"ACTIVE", "SUSPENDED"}, q["status"])
		assert.Equal(t, []string{"nyc"}, q["city"])
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "1", q.Get("limit"))
		writeEnvelope(w, http.StatusOK, []models.User{{ID: "u1", FirstName: "Jane"}},
			&pagination.Meta{Page: 2, Limit: 1, Total: 3, TotalPages: 3})
	}))

	filter := models.UserFilter{
		Search:   "jane",
		Statuses: []models.UserStatus{models.UserStatusActive, models.UserStatusSuspended},
		CityIDs:  []string{"nyc"},
		Page:     2,
		Limit:    1,
	}
	page, err := c.ListUsers(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "u1", page.Items[0].ID)
	assert.Equal(t, 3, page.TotalPages)

	_, err = c.ListUsers(context.Background(), filter)
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestMutationInvalidatesTaggedQueries(t *testing.T) {
	var listCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/rbac/roles", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeEnvelope(w, http.StatusCreated, models.Role{ID: "r2", Name: "Editor"}, nil)
			return
		}
		listCalls.Add(1)
		writeEnvelope(w, http.StatusOK, []models.Role{{ID: "r1", Name: "Admin"}}, &pagination.Meta{Page: 1, Limit: 10, Total: 1, TotalPages: 1})
	})
	mux.HandleFunc("/api/v1/properties", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, []models.Property{}, &pagination.Meta{Page: 1, Limit: 10})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	_, err := c.ListRoles(ctx, models.RoleFilter{})
	require.NoError(t, err)
	_, err = c.ListProperties(ctx, models.PropertyFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, c.Cache().Len())

	role, err := c.CreateRole(ctx, contract.CreateRoleRequest{Name: "Editor", PermissionIDs: []string{"p1"}})
	require.NoError(t, err)
	assert.Equal(t, "r2", role.ID)
	assert.Equal(t, 1, c.Cache().Len())

	_, err = c.ListRoles(ctx, models.RoleFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, listCalls.Load())
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeError(w, http.StatusServiceUnavailable, "INTERNAL_ERROR", "try later", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, models.Permission{ID: "p1", Name: "users.read"}, nil)
	}))

	perm, err := c.GetPermission(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "users.read", perm.Name)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGetGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusBadGateway, "", "", nil)
	}))

	_, err := c.GetRole(context.Background(), "r1")
	var srvErr *ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.Equal(t, http.StatusBadGateway, srvErr.Status)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusNotFound, "NOT_FOUND", "role not found", nil)
	}))

	_, err := c.GetRole(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.EqualValues(t, 1, calls.Load())
}

func TestMutationsAreNeverRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusServiceUnavailable, "INTERNAL_ERROR", "down", nil)
	}))

	err := c.DeleteRole(context.Background(), "r1")
	var srvErr *ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.Equal(t, "INTERNAL_ERROR", srvErr.Code)
	assert.EqualValues(t, 1, calls.Load())
}

func TestErrorEnvelopeMapping(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/rbac/permissions":
			writeError(w, http.StatusConflict, "DUPLICATE_NAME", "permission users.create already exists", nil)
		default:
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", map[string]string{"cityId": "is required"})
		}
	}))
	ctx := context.Background()

	_, err := c.CreatePermission(ctx, contract.CreatePermissionRequest{Name: "users.create"})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.True(t, appErrors.HasCode(err, "DUPLICATE_NAME"))

	_, err = c.CreateProperty(ctx, contract.PropertyRequest{Title: "Loft", Type: models.PropertyType("APARTMENT"), ListingType: models.ListingType("SALE"), CityID: "nyc"})
	require.Error(t, err)
	require.True(t, IsValidation(err))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "is required", appErr.Fields["cityId"])
}

func TestClientSideValidationBlocksSubmission(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	_, err := c.CreateUser(context.Background(), contract.CreateUserRequest{
		FirstName: "Jane",
		Email:     "not-an-email",
		Password:  "weak",
	})
	require.Error(t, err)
	require.True(t, IsValidation(err))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "lastName")
	assert.Contains(t, appErr.Fields, "email")
	assert.Contains(t, appErr.Fields, "password")
	assert.Contains(t, appErr.Fields, "roleId")
	assert.Contains(t, appErr.Fields, "cities")
	assert.EqualValues(t, 0, calls.Load())
}

func TestNetworkErrorIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	require.NoError(t, err)

	_, err = c.Cities(context.Background())
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, IsRetryable(err))
}

func TestConcurrentIdenticalGetsShareOneRequest(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		writeEnvelope(w, http.StatusOK, []models.City{{ID: "nyc", Name: "New York"}}, nil)
	}))

	var wg sync.WaitGroup
	results := make([][]models.City, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cities, err := c.Cities(context.Background())
			assert.NoError(t, err)
			results[i] = cities
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, cities := range results {
		require.Len(t, cities, 1)
	}
}

func TestSupersededListingIsDiscarded(t *testing.T) {
	var calls atomic.Int32
	arrived := make(chan struct{})
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			close(arrived)
			<-release
			writeEnvelope(w, http.StatusOK, []models.Property{{ID: "stale"}}, &pagination.Meta{Page: 1, Limit: 10, Total: 1, TotalPages: 1})
			return
		}
		writeEnvelope(w, http.StatusOK, []models.Property{{ID: "fresh"}}, &pagination.Meta{Page: 1, Limit: 10, Total: 1, TotalPages: 1})
	}))
	ctx := context.Background()
	filter := models.PropertyFilter{Search: "loft"}

	errA := make(chan error, 1)
	go func() {
		_, err := c.ListProperties(ctx, filter)
		errA <- err
	}()
	<-arrived

	c.Invalidate(querycache.ListTag("properties"))
	page, err := c.ListProperties(ctx, filter)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "fresh", page.Items[0].ID)

	close(release)
	assert.ErrorIs(t, <-errA, ErrSuperseded)

	cached, err := c.ListProperties(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, "fresh", cached.Items[0].ID)
	assert.EqualValues(t, 2, calls.Load())
}

func TestLoginSetsBearerToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "admin@example.com", req.Email)
		writeEnvelope(w, http.StatusOK, models.LoginResponse{AccessToken: "tok-1", TokenType: "Bearer"}, nil)
	})
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, models.UserInfo{ID: "u1", Email: "admin@example.com"}, nil)
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	_, err := c.Me(ctx)
	require.True(t, appErrors.HasCode(err, "UNAUTHORIZED"))

	resp, err := c.Login(ctx, "admin@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", resp.AccessToken)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", me.ID)
}

func TestExportUsersReadsFilename(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Config models.ExportConfig `json:"config"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, models.ExportFormat("csv"), body.Config.Format)
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="users-export-2026-03-14.csv"`)
		_, _ = w.Write([]byte("id,name\n"))
	}))

	file, err := c.ExportUsers(context.Background(), nil, models.ExportConfig{Format: "csv", Fields: models.ExportFields{Basic: true}})
	require.NoError(t, err)
	assert.Equal(t, "users-export-2026-03-14.csv", file.Filename)
	assert.Equal(t, "id,name\n", string(file.Data))
}
