// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, receipt storage, PDF rendering, mail delivery, third-party
// integration keys, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// StorageConfig selects where generated receipt PDFs are persisted and the
// public path they are served from.
type StorageConfig struct {
	Backend    string // local|s3
	Dir        string // local directory (also the key prefix fallback for s3)
	PublicPath string // URL path prefix for stored receipts, e.g. /receipts
	S3Bucket   string
	S3Region   string
	S3Prefix   string
}

// PDFConfig controls the HTML to PDF engine.
type PDFConfig struct {
	Engine        string        // chrome|basic
	ChromePath    string        // optional browser executable
	RenderTimeout time.Duration // wraps the whole render call
}

// MailConfig selects the delivery backend for receipt emails. A provider API
// key wins over SMTP; with neither configured delivery is skipped.
type MailConfig struct {
	From         string
	Subject      string
	ResendAPIKey string

	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	SMTPSecure bool // implicit TLS (usually port 465)
}

// ProviderConfigured reports whether a transactional-email provider is set.
func (m MailConfig) ProviderConfigured() bool { return strings.TrimSpace(m.ResendAPIKey) != "" }

// SMTPConfigured reports whether an SMTP relay is set.
func (m MailConfig) SMTPConfigured() bool { return strings.TrimSpace(m.SMTPHost) != "" }

// IntegrationsConfig holds keys for the front-end integrations the server
// brokers (maps key exposure and the generative-language proxy).
type IntegrationsConfig struct {
	MapsAPIKey   string
	GeminiAPIKey string
	GeminiURL    string
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // must exceed PDF.RenderTimeout
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int    // bytes
	GinMode           string // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath           string // SQLite path for the receipt index
	StaticDir        string // front-end assets
	AppointmentsFile string // flat JSONL file for appointment webhooks

	Storage      StorageConfig
	PDF          PDFConfig
	Mail         MailConfig
	Integrations IntegrationsConfig

	// Rate limiting (applied to receipt creation and the AI proxy)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "5501"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:           getenv("DB_PATH", "data/receipts.db"),
		StaticDir:        getenv("STATIC_DIR", "public"),
		AppointmentsFile: getenv("APPOINTMENTS_FILE", "data/appointments.jsonl"),

		Storage: StorageConfig{
			Backend:    strings.ToLower(getenv("STORAGE_BACKEND", "local")),
			Dir:        getenv("STORAGE_DIR", "receipts"),
			PublicPath: normalizeBasePath(getenv("RECEIPTS_PUBLIC_PATH", "/receipts")),
			S3Bucket:   getenv("S3_BUCKET", ""),
			S3Region:   getenv("S3_REGION", getenv("AWS_REGION", "")),
			S3Prefix:   strings.Trim(getenv("S3_PREFIX", "receipts"), "/"),
		},
		PDF: PDFConfig{
			Engine:        strings.ToLower(getenv("PDF_ENGINE", "chrome")),
			ChromePath:    getenv("PUPPETEER_EXECUTABLE_PATH", getenv("CHROME_PATH", "")),
			RenderTimeout: getdur("PDF_RENDER_TIMEOUT", 45*time.Second),
		},
		Mail: MailConfig{
			From:         getenv("MAIL_FROM", ""),
			Subject:      getenv("MAIL_SUBJECT", "Your appointment receipt"),
			ResendAPIKey: getenv("RESEND_API_KEY", ""),
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     getint("SMTP_PORT", 587),
			SMTPUser:     getenv("SMTP_USER", ""),
			SMTPPass:     getenv("SMTP_PASS", ""),
			SMTPSecure:   getbool("SMTP_SECURE", false),
		},
		Integrations: IntegrationsConfig{
			MapsAPIKey:   getenv("MAPS_API_KEY", ""),
			GeminiAPIKey: getenv("GEMINI_API_KEY", ""),
			GeminiURL: getenv("GEMINI_URL",
				"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash-preview-05-20:generateContent"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 1.0),
		RateBurst: getint("RATE_BURST", 5),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-receipt-service"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Mail.SMTPSecure && cfg.Mail.SMTPPort == 587 {
		cfg.Mail.SMTPPort = 465
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.Storage.PublicPath == "/" || cfg.Storage.PublicPath == strings.TrimSuffix(cfg.APIBasePath, "/")+"/receipts" {
		return cfg, errors.New("RECEIPTS_PUBLIC_PATH must not be / or collide with API_BASE_PATH/receipts")
	}
	switch cfg.Storage.Backend {
	case "local":
		if strings.TrimSpace(cfg.Storage.Dir) == "" {
			return cfg, errors.New("STORAGE_DIR must not be empty")
		}
	case "s3":
		if strings.TrimSpace(cfg.Storage.S3Bucket) == "" {
			return cfg, errors.New("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return cfg, errors.New("STORAGE_BACKEND must be one of: local, s3")
	}
	switch cfg.PDF.Engine {
	case "chrome", "basic":
	default:
		return cfg, errors.New("PDF_ENGINE must be one of: chrome, basic")
	}
	if cfg.PDF.RenderTimeout <= 0 {
		return cfg, errors.New("PDF_RENDER_TIMEOUT must be > 0")
	}
	if (cfg.Mail.ProviderConfigured() || cfg.Mail.SMTPConfigured()) && strings.TrimSpace(cfg.Mail.From) == "" {
		return cfg, errors.New("MAIL_FROM is required when a mail backend is configured")
	}
	if cfg.Mail.SMTPPort <= 0 || cfg.Mail.SMTPPort > 65535 {
		return cfg, errors.New("SMTP_PORT must be in [1,65535]")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
