package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/jwtauth"
	"github.com/indrealty/realty-cms/pkg/realtycms"
	"github.com/indrealty/realty-cms/pkg/realtycms/cache"
	repomemory "github.com/indrealty/realty-cms/pkg/realtycms/repo/memory"
	memorystorage "github.com/indrealty/realty-cms/pkg/realtycms/storage/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testEnv struct {
	handler     http.Handler
	svc         *realtycms.Services
	auth        *jwtauth.JWTAuth
	cache       *cache.Memory
	metrics     *MetricsSink
	adminToken  string
	readerToken string
}

// setupServerTest wires the full router over in-memory repositories with an
// admin ("admin") and a registered user ("reader").
func setupServerTest(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	ctx := context.Background()

	images, err := realtycms.NewImageService(memorystorage.New())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := NewMetricsSink(reg)
	sitemapCache := cache.NewMemory()

	svc, err := realtycms.NewServices(repomemory.NewRepositories(), images,
		realtycms.WithBaseURL("https://www.example.org"),
		realtycms.WithClock(tickingClock()),
		realtycms.WithEventSink(realtycms.MultiEventSink{
			metrics,
			cache.NewInvalidatingSink(sitemapCache, SitemapCacheKey, NewsSitemapCacheKey),
		}),
	)
	require.NoError(t, err)

	_, err = svc.Users.CreateUser(ctx, realtycms.CreateUserRequest{
		RegisterUserRequest: realtycms.RegisterUserRequest{UID: "uid-admin", Email: "admin@example.org", Username: "admin"},
		IsAdmin:             true,
	})
	require.NoError(t, err)
	_, err = svc.Users.Register(ctx, realtycms.RegisterUserRequest{UID: "uid-reader", Email: "reader@example.org", Username: "reader"})
	require.NoError(t, err)

	ja := NewJWTAuth(testSecret)
	base := []Option{
		WithJWTAuth(ja),
		WithRegistry(reg),
		WithSitemapCache(sitemapCache, time.Minute),
		WithRequestLogger(httplog.NewLogger("test", httplog.Options{Writer: io.Discard})),
		WithStoredImages(memorystorage.DefaultURLPrefix),
	}
	server, err := NewServer(svc, append(base, opts...)...)
	require.NoError(t, err)

	adminToken, err := IssueToken(ja, "admin", time.Hour)
	require.NoError(t, err)
	readerToken, err := IssueToken(ja, "reader", time.Hour)
	require.NoError(t, err)

	return &testEnv{
		handler:     server.Handler(),
		svc:         svc,
		auth:        ja,
		cache:       sitemapCache,
		metrics:     metrics,
		adminToken:  adminToken,
		readerToken: readerToken,
	}
}

func tickingClock() func() time.Time {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

// do sends a JSON request. body may be nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func propertyBody(title string) map[string]any {
	return map[string]any{
		"title":       title,
		"summary":     "Summary of " + title,
		"description": "Description of " + title,
		"imageUrl":    "https://img.example.org/p.jpg",
		"locations":   []string{"Goa"},
		"categories":  []string{"Residential"},
	}
}

// createProperty creates a property as admin and returns its id and slug.
func (e *testEnv) createProperty(t *testing.T, title string) (string, string) {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/properties", e.adminToken, propertyBody(title))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	property := decodeBody(t, rr)["property"].(map[string]any)
	return property["_id"].(string), property["seo"].(map[string]any)["slug"].(string)
}
