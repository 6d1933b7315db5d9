package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-receipt-service/internal/config"
	"github.com/tbourn/go-receipt-service/internal/domain"
	"github.com/tbourn/go-receipt-service/internal/http/middleware"
	"github.com/tbourn/go-receipt-service/internal/pdf"
	"github.com/tbourn/go-receipt-service/internal/services"
	"github.com/tbourn/go-receipt-service/internal/storage"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:router-" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.ReceiptRecord{}, &domain.Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func baseConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		APIBasePath:    "/api/v1",
		StaticDir:      t.TempDir(),
		RateRPS:        100,
		RateBurst:      10,
		IdempotencyTTL: 24 * time.Hour,
		Storage:        config.StorageConfig{Backend: "local", Dir: t.TempDir(), PublicPath: "/receipts"},
		PDF:            config.PDFConfig{Engine: "basic", RenderTimeout: 10 * time.Second},
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

// newRouter wires the real receipt workflow with the browser-less renderer
// and a temp-dir store.
func newRouter(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	db := newTestDB(t)
	store := storage.NewLocal(cfg.Storage.Dir)
	receipts := services.NewReceiptService(&cfg, &pdf.BasicRenderer{}, store, nil, db, zerolog.Nop())
	appts := &services.AppointmentService{Path: filepath.Join(t.TempDir(), "appointments.jsonl"), Log: zerolog.Nop()}

	RegisterRoutes(r, Services{DB: db, Receipts: receipts, Files: store, Appointments: appts}, cfg)
	return r
}

func do(r http.Handler, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newRouter(t, baseConfig(t))

	// /health works
	w := do(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("GET /health = %d %s", w.Code, w.Body.String())
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("request id header missing")
	}

	// /metrics is wired
	w = do(r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → JSON 404 (no static file)
	w = do(r, http.MethodGet, "/api/v1/nope", "", nil)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"code":"not_found"`) {
		t.Fatalf("GET /api/v1/nope expected JSON 404, got %d %s", w.Code, w.Body.String())
	}

	// NoMethod → 405 (POST /health)
	w = do(r, http.MethodPost, "/health", "", nil)
	if w.Code != http.StatusMethodNotAllowed || !strings.Contains(w.Body.String(), "method_not_allowed") {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := baseConfig(t)
	cfg.APIBasePath = "/api/v2"
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r := newRouter(t, cfg)

	w := do(r, http.MethodGet, "/health", "", map[string]string{"Origin": "http://example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	w = do(r, http.MethodGet, "/health", "", map[string]string{"Origin": "http://evil.test"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unlisted origin must not be echoed, got %q", got)
	}
}

func TestStaticFallback_ServesIndex(t *testing.T) {
	cfg := baseConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.StaticDir, "index.html"), []byte("<h1>clinic</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.StaticDir, ".env"), []byte("SECRET=1"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := newRouter(t, cfg)

	w := do(r, http.MethodGet, "/", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "clinic") {
		t.Fatalf("GET / = %d %q", w.Code, w.Body.String())
	}
	w = do(r, http.MethodGet, "/.env", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("hidden file must 404, got %d", w.Code)
	}
}

func TestReceiptFlow_CreateDownloadMetadata(t *testing.T) {
	r := newRouter(t, baseConfig(t))

	w := do(r, http.MethodPost, "/api/v1/receipts",
		`{"name":"Ana <Test>","email":"ana@example.com","date":"2025-06-01 10:30"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/v1/receipts = %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		OK       bool   `json:"ok"`
		ID       string `json:"id"`
		URL      string `json:"url"`
		Download string `json:"download"`
		Emailed  bool   `json:"emailed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.Emailed || !strings.HasPrefix(resp.URL, "/receipts/") || resp.Download != resp.URL+"?download=1" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// Inline PDF, never gzipped
	w = do(r, http.MethodGet, resp.URL, "", map[string]string{"Accept-Encoding": "gzip"})
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("GET %s = %d %q", resp.URL, w.Code, w.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("body is not a PDF")
	}
	if w.Header().Get("Content-Encoding") != "" {
		t.Fatalf("PDF must not be compressed")
	}
	if !strings.HasPrefix(w.Header().Get("Content-Disposition"), "inline") {
		t.Fatalf("disposition = %q", w.Header().Get("Content-Disposition"))
	}

	w = do(r, http.MethodGet, resp.Download, "", nil)
	if !strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment") {
		t.Fatalf("download disposition = %q", w.Header().Get("Content-Disposition"))
	}

	w = do(r, http.MethodHead, resp.URL, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("HEAD %s = %d", resp.URL, w.Code)
	}

	// Metadata from the index
	w = do(r, http.MethodGet, "/api/v1/receipts/"+resp.ID, "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"email":"ana@example.com"`) {
		t.Fatalf("GET metadata = %d %s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodGet, "/api/v1/receipts/AGR-0-NOPE00", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown receipt expected 404, got %d", w.Code)
	}

	// Unknown and hidden file names
	for _, p := range []string{"/receipts/missing.pdf", "/receipts/.env"} {
		if w := do(r, http.MethodGet, p, "", nil); w.Code != http.StatusNotFound {
			t.Fatalf("GET %s expected 404, got %d", p, w.Code)
		}
	}
}

func TestGenerateReceiptAlias_Validation(t *testing.T) {
	r := newRouter(t, baseConfig(t))

	w := do(r, http.MethodPost, "/generate-receipt", `{"name":"  ","email":"a@b.c"}`, nil)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), `"code":"validation_failed"`) {
		t.Fatalf("alias validation = %d %s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodPost, "/generate-receipt", `{"name":"Ana","email":"a@b.c"}`, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("alias create = %d %s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodGet, "/generate-receipt", "", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET alias expected 405, got %d", w.Code)
	}
}

func TestReceiptCreate_IdempotentReplay(t *testing.T) {
	r := newRouter(t, baseConfig(t))
	hdr := map[string]string{middleware.HeaderIdempotencyKey: "form-submit-1"}
	body := `{"name":"Ana","email":"ana@example.com"}`

	first := do(r, http.MethodPost, "/api/v1/receipts", body, hdr)
	if first.Code != http.StatusOK {
		t.Fatalf("first = %d %s", first.Code, first.Body.String())
	}
	second := do(r, http.MethodPost, "/api/v1/receipts", body, hdr)
	if second.Code != http.StatusOK || second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("second = %d replayed=%q", second.Code, second.Header().Get("Idempotency-Replayed"))
	}

	var a, b map[string]any
	_ = json.Unmarshal(first.Body.Bytes(), &a)
	_ = json.Unmarshal(second.Body.Bytes(), &b)
	if a["id"] == nil || a["id"] != b["id"] || a["url"] != b["url"] {
		t.Fatalf("replay returned a different receipt: %v vs %v", a, b)
	}

	w := do(r, http.MethodPost, "/api/v1/receipts", body, map[string]string{middleware.HeaderIdempotencyKey: "bad key!"})
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "bad_idempotency_key") {
		t.Fatalf("malformed key = %d %s", w.Code, w.Body.String())
	}
}

func TestReceiptCreate_RateLimited(t *testing.T) {
	cfg := baseConfig(t)
	cfg.RateRPS = 0.001
	cfg.RateBurst = 1
	r := newRouter(t, cfg)

	body := `{"name":"","email":""}`
	if w := do(r, http.MethodPost, "/api/v1/receipts", body, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("first = %d", w.Code)
	}
	w := do(r, http.MethodPost, "/api/v1/receipts", body, nil)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("second = %d retry-after=%q", w.Code, w.Header().Get("Retry-After"))
	}
	// Reads are never limited.
	if w := do(r, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
}

func TestIntegrationsAndWebhook(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Integrations.MapsAPIKey = "maps-123"
	r := newRouter(t, cfg)

	w := do(r, http.MethodGet, "/maps-key", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "maps-123") {
		t.Fatalf("maps-key = %d %s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodPost, "/gemini-proxy", `{"contents":[]}`, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("gemini without key = %d", w.Code)
	}
	w = do(r, http.MethodPost, "/webhooks/appointments", `{"name":"Ana"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("webhook = %d %s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodPost, "/webhooks/appointments", `[1,2]`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("webhook non-object = %d", w.Code)
	}
}

func TestGzip_CompressesJSON(t *testing.T) {
	r := newRouter(t, baseConfig(t))
	w := do(r, http.MethodGet, "/health", "", map[string]string{"Accept-Encoding": "gzip"})
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip, got %q", w.Header().Get("Content-Encoding"))
	}
}

func TestSwagger_OnlyWhenEnabled(t *testing.T) {
	cfg := baseConfig(t)
	r := newRouter(t, cfg)
	if w := do(r, http.MethodGet, "/swagger/index.html", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger disabled expected 404, got %d", w.Code)
	}

	cfg.SwaggerEnabled = true
	r = newRouter(t, cfg)
	if w := do(r, http.MethodGet, "/swagger/index.html", "", nil); w.Code != http.StatusOK {
		t.Fatalf("swagger enabled expected 200, got %d", w.Code)
	}
	w := do(r, http.MethodGet, "/swagger/doc.json", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/receipts") {
		t.Fatalf("doc.json = %d", w.Code)
	}
}

func TestIdemStore_LookupSave(t *testing.T) {
	db := newTestDB(t)
	s := idemStore{db: db, ttl: time.Hour}
	ctx := context.Background()

	if _, found, err := s.Lookup(ctx, "1.2.3.4", "POST /receipts", "k", time.Now().UTC()); err != nil || found {
		t.Fatalf("empty lookup: found=%v err=%v", found, err)
	}
	if err := s.Save(ctx, "1.2.3.4", "POST /receipts", "k", "AGR-1-AAAAAA", 200); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Duplicate keeps the first row and is not an error.
	if err := s.Save(ctx, "1.2.3.4", "POST /receipts", "k", "AGR-2-BBBBBB", 200); err != nil {
		t.Fatalf("duplicate save: %v", err)
	}
	id, found, err := s.Lookup(ctx, "1.2.3.4", "POST /receipts", "k", time.Now().UTC())
	if err != nil || !found || id != "AGR-1-AAAAAA" {
		t.Fatalf("lookup = %q %v %v", id, found, err)
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

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := do(r, http.MethodGet, path, "", nil)
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}
}
