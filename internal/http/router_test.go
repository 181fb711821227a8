package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hkawai/go-quake-backend/internal/config"
	"github.com/hkawai/go-quake-backend/internal/domain"
	"github.com/hkawai/go-quake-backend/internal/normalizer"
	"github.com/hkawai/go-quake-backend/internal/repo"
	"github.com/hkawai/go-quake-backend/internal/secrets"
	"github.com/hkawai/go-quake-backend/internal/services"
	"github.com/hkawai/go-quake-backend/internal/slackx"
)

// --- fakes ---

type fakePuller struct {
	calls []domain.HealthSource
	err   error
}

func (p *fakePuller) RunPullPass(_ context.Context, source domain.HealthSource) error {
	p.calls = append(p.calls, source)
	return p.err
}

type nopNotifier struct{}

func (nopNotifier) PostMessage(context.Context, string, string, slackx.Message) (string, error) {
	return "1724000000.000001", nil
}

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestDeps(t *testing.T) (Deps, *fakePuller) {
	t.Helper()
	db := newTestDB(t)
	key, err := secrets.ParseKey(base64.StdEncoding.EncodeToString(make([]byte, 32)))
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	dispatcher := &services.DispatchService{DB: db, Notifier: nopNotifier{}, Key: key, Log: zerolog.Nop()}
	puller := &fakePuller{}
	return Deps{
		DB:     db,
		Puller: puller,
		Ingest: services.NewIngestService(db, normalizer.New(nil), dispatcher, zerolog.Nop()),
		Health: services.NewHealthService(db),
	}, puller
}

func baseConfig() config.Config {
	return config.Config{
		RateRPS:   100,
		RateBurst: 10,
		CORS:      config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:  config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:      config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newTestRouter(t *testing.T, cfg config.Config) (*gin.Engine, Deps, *fakePuller) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	deps, puller := newTestDeps(t)
	RegisterRoutes(r, deps, cfg)
	return r, deps, puller
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _, _ := newTestRouter(t, baseConfig())

	// /health works
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := baseConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r, _, _ := newTestRouter(t, cfg)

	// Any request runs through CORS middleware; header should reflect origin.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

// Smoke test that a request traverses auth + ratelimit + otel + security headers pipeline.
func TestPipeline_Smoke(t *testing.T) {
	cfg := baseConfig()
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour} // enabled (but only set on https)
	r, _, _ := newTestRouter(t, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	// simulate https so HSTS could be eligible if middleware checks scheme
	req.URL.Scheme = "https"
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	// RequestID header should be present (from RequestID middleware)
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

func TestCronRoute_OpenWithoutSecret(t *testing.T) {
	r, _, puller := newTestRouter(t, baseConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cron/fetch-earthquakes", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET cron route = %d, body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"success":true`) {
		t.Fatalf("body = %s, want success", w.Body.String())
	}
	if len(puller.calls) != 1 || puller.calls[0] != domain.SourceCron {
		t.Fatalf("puller calls = %v, want one cron pass", puller.calls)
	}
}

func TestCronRoute_SecretEnforced(t *testing.T) {
	cfg := baseConfig()
	cfg.CronSecret = "s3cret"
	r, _, puller := newTestRouter(t, cfg)

	// Missing secret → 401, pipeline not triggered.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cron/fetch-earthquakes", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized || len(puller.calls) != 0 {
		t.Fatalf("unauthenticated: code=%d calls=%v", w.Code, puller.calls)
	}

	// Correct bearer secret → 200.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/cron/fetch-earthquakes", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || len(puller.calls) != 1 {
		t.Fatalf("authenticated: code=%d calls=%v", w.Code, puller.calls)
	}
}

func TestLogEventRoute_InsertAndDuplicate(t *testing.T) {
	r, _, _ := newTestRouter(t, baseConfig())

	body := `{"event":{"event_id":"20260828120000","info_type":"intensity","title":"震源・震度に関する情報","max_intensity":"4"},"source":"websocket"}`

	post := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/earthquake-events/log", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := post()
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"inserted":true`) {
		t.Fatalf("first post: code=%d body=%s", w.Code, w.Body.String())
	}
	w = post()
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"inserted":false`) {
		t.Fatalf("duplicate post: code=%d body=%s", w.Code, w.Body.String())
	}
}

func TestLogEventRoute_BadRequests(t *testing.T) {
	r, _, _ := newTestRouter(t, baseConfig())

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing event", `{"source":"rest"}`},
		{"bad source", `{"event":{"event_id":"20260828120000"},"source":"carrier-pigeon"}`},
		{"missing event id", `{"event":{"title":"x"},"source":"rest"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/earthquake-events/log", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("code = %d, want 400; body=%s", w.Code, w.Body.String())
			}
		})
	}
}

func TestEventsRoute_PaginationAndETag(t *testing.T) {
	r, deps, _ := newTestRouter(t, baseConfig())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ev := &domain.EarthquakeEvent{
			ID:       uuid.NewString(),
			EventID:  fmt.Sprintf("2026082812%04d", i),
			InfoType: domain.InfoTypeIntensity,
			Title:    "震源・震度に関する情報",
		}
		if err := repo.CreateEvent(ctx, deps.DB, ev); err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/earthquake-events?page=1&page_size=2", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Events     []json.RawMessage `json:"events"`
		Pagination struct {
			Total   int64 `json:"total"`
			HasNext bool  `json:"has_next"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Events) != 2 || resp.Pagination.Total != 3 || !resp.Pagination.HasNext {
		t.Fatalf("page = %+v", resp)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag header")
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/earthquake-events", nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional request = %d, want 304", w.Code)
	}
}

func TestAdminHealthRoutes(t *testing.T) {
	r, deps, _ := newTestRouter(t, baseConfig())

	// Never-ran drivers report error state with HTTP 200.
	for _, path := range []string{"/api/admin/batch-health", "/api/admin/rest-poller-health"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"error"`) {
			t.Fatalf("GET %s = %d body=%s", path, w.Code, w.Body.String())
		}
	}

	if err := deps.Health.MarkRun(context.Background(), domain.SourceCron, "ok"); err != nil {
		t.Fatalf("MarkRun: %v", err)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/rest-poller-health", nil)
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `"status":"healthy"`) {
		t.Fatalf("after MarkRun: body=%s", w.Body.String())
	}
}
