package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/touchline/internal/platform/logging"
	"github.com/riskibarqy/touchline/internal/platform/resilience"
)

// Config stores runtime configuration for the touchline device agent.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	HTTPAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	LogLevel       logging.Level

	// CORSAllowedOrigins lists web UIs allowed to call the control API.
	CORSAllowedOrigins []string

	DBDriver      string
	DBURL         string
	DBAutoMigrate bool

	RemoteBaseURL    string
	RemoteTimeout    time.Duration
	RemoteMaxRetries int
	RemoteCircuit    resilience.CircuitBreakerConfig
	AccessToken      string

	AnubisBaseURL       string
	AnubisIntrospectURL string
	AnubisAdminKey      string
	AnubisTimeout       time.Duration
	AnubisCacheTTL      time.Duration
	AnubisCircuit       resilience.CircuitBreakerConfig

	GuestIdentityPath string

	SyncEnabled     bool
	SyncPushWorkers int
	SyncPullWorkers int
	SyncDebounce    time.Duration
	SyncInterval    time.Duration
	LimitsCacheTTL  time.Duration

	ClockTickInterval time.Duration

	LiveBaseURL          string
	LiveHandshakeTimeout time.Duration
	LiveReadTimeout      time.Duration
	ViewerMatchID        string
	ViewerToken          string
	ViewerMaxBackoff     time.Duration

	PprofEnabled               bool
	PprofAddr                  string
	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	BetterStackEnabled         bool
	BetterStackEndpoint        string
	BetterStackToken           string
	BetterStackTimeout         time.Duration
	BetterStackMinLevel        logging.Level
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:              appEnv,
		ServiceName:         getEnv("APP_SERVICE_NAME", "touchline"),
		ServiceVersion:      getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:            strings.TrimSpace(getEnv("APP_HTTP_ADDR", "127.0.0.1:7420")),
		LogLevel:            logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
		CORSAllowedOrigins:  splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		DBDriver:            strings.ToLower(strings.TrimSpace(getEnv("DB_DRIVER", "sqlite3"))),
		DBURL:               strings.TrimSpace(getEnv("DB_URL", "file:touchline.db?_foreign_keys=on&_busy_timeout=5000")),
		RemoteBaseURL:       strings.TrimSpace(getEnv("REMOTE_BASE_URL", "")),
		AccessToken:         strings.TrimSpace(getEnv("TOUCHLINE_ACCESS_TOKEN", "")),
		AnubisBaseURL:       strings.TrimSpace(getEnv("ANUBIS_BASE_URL", "http://localhost:8081")),
		AnubisIntrospectURL: getEnv("ANUBIS_INTROSPECT_PATH", "/v1/auth/introspect"),
		AnubisAdminKey:      strings.TrimSpace(getEnv("ANUBIS_ADMIN_KEY", "")),
		GuestIdentityPath:   strings.TrimSpace(getEnv("GUEST_IDENTITY_PATH", "~/.config/touchline/identity.toml")),
		LiveBaseURL:         strings.TrimSpace(getEnv("LIVE_BASE_URL", "")),
		ViewerMatchID:       strings.TrimSpace(getEnv("VIEWER_MATCH_ID", "")),
		ViewerToken:         strings.TrimSpace(getEnv("VIEWER_TOKEN", "")),
		PprofAddr:           strings.TrimSpace(getEnv("PPROF_ADDR", "127.0.0.1:6060")),
		BetterStackEndpoint: strings.TrimSpace(getEnv("BETTERSTACK_ENDPOINT", "")),
		BetterStackToken:    strings.TrimSpace(getEnv("BETTERSTACK_TOKEN", "")),
		BetterStackMinLevel: logging.ParseLevel(getEnv("BETTERSTACK_MIN_LEVEL", "error")),

		PyroscopeServerAddress:     strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
	}
	if cfg.HTTPAddr == "" {
		return Config{}, fmt.Errorf("APP_HTTP_ADDR cannot be empty")
	}
	if cfg.DBDriver != "sqlite3" && cfg.DBDriver != "postgres" {
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q: valid values are sqlite3, postgres", cfg.DBDriver)
	}
	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL cannot be empty")
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"APP_READ_TIMEOUT", "10s", &cfg.ReadTimeout},
		{"APP_WRITE_TIMEOUT", "15s", &cfg.WriteTimeout},
		{"REMOTE_TIMEOUT", "15s", &cfg.RemoteTimeout},
		{"ANUBIS_TIMEOUT", "3s", &cfg.AnubisTimeout},
		{"ANUBIS_CACHE_TTL", "5m", &cfg.AnubisCacheTTL},
		{"SYNC_DEBOUNCE", "2s", &cfg.SyncDebounce},
		{"SYNC_INTERVAL", "5m", &cfg.SyncInterval},
		{"LIMITS_CACHE_TTL", "10m", &cfg.LimitsCacheTTL},
		{"CLOCK_TICK_INTERVAL", "1s", &cfg.ClockTickInterval},
		{"LIVE_HANDSHAKE_TIMEOUT", "10s", &cfg.LiveHandshakeTimeout},
		{"LIVE_READ_TIMEOUT", "60s", &cfg.LiveReadTimeout},
		{"VIEWER_MAX_BACKOFF", "30s", &cfg.ViewerMaxBackoff},
		{"BETTERSTACK_TIMEOUT", "3s", &cfg.BetterStackTimeout},
		{"PYROSCOPE_UPLOAD_RATE", "15s", &cfg.PyroscopeUploadRate},
	}
	for _, d := range durations {
		if *d.dst, err = getEnvAsDuration(d.key, d.fallback); err != nil {
			return Config{}, err
		}
	}

	flags := []struct {
		key      string
		fallback bool
		dst      *bool
	}{
		{"DB_AUTO_MIGRATE", true, &cfg.DBAutoMigrate},
		{"SYNC_ENABLED", true, &cfg.SyncEnabled},
		{"PPROF_ENABLED", false, &cfg.PprofEnabled},
		{"UPTRACE_ENABLED", false, &cfg.UptraceEnabled},
		{"UPTRACE_LOGS_ENABLED", true, &cfg.UptraceLogsEnabled},
		{"BETTERSTACK_ENABLED", false, &cfg.BetterStackEnabled},
		{"PYROSCOPE_ENABLED", false, &cfg.PyroscopeEnabled},
	}
	for _, f := range flags {
		if *f.dst, err = getEnvAsBool(f.key, f.fallback); err != nil {
			return Config{}, err
		}
	}

	if cfg.RemoteMaxRetries, err = getEnvAsInt("REMOTE_MAX_RETRIES", 2); err != nil {
		return Config{}, fmt.Errorf("parse REMOTE_MAX_RETRIES: %w", err)
	}
	if cfg.RemoteMaxRetries < 0 {
		return Config{}, fmt.Errorf("REMOTE_MAX_RETRIES must be >= 0")
	}
	if cfg.SyncPushWorkers, err = getEnvAsInt("SYNC_PUSH_WORKERS", 4); err != nil {
		return Config{}, fmt.Errorf("parse SYNC_PUSH_WORKERS: %w", err)
	}
	if cfg.SyncPushWorkers < 1 {
		return Config{}, fmt.Errorf("SYNC_PUSH_WORKERS must be >= 1")
	}
	if cfg.SyncPullWorkers, err = getEnvAsInt("SYNC_PULL_WORKERS", 4); err != nil {
		return Config{}, fmt.Errorf("parse SYNC_PULL_WORKERS: %w", err)
	}
	if cfg.SyncPullWorkers < 1 {
		return Config{}, fmt.Errorf("SYNC_PULL_WORKERS must be >= 1")
	}

	if cfg.RemoteCircuit, err = loadCircuit("REMOTE"); err != nil {
		return Config{}, err
	}
	if cfg.AnubisCircuit, err = loadCircuit("ANUBIS"); err != nil {
		return Config{}, err
	}

	if cfg.UptraceEnabled {
		cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
		if cfg.UptraceDSN == "" {
			cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
		}
		if cfg.UptraceDSN == "" {
			return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
		}
	}
	if cfg.BetterStackEnabled && cfg.BetterStackEndpoint == "" {
		return Config{}, fmt.Errorf("BETTERSTACK_ENDPOINT is required when BETTERSTACK_ENABLED=true")
	}
	if cfg.PprofEnabled && cfg.PprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if cfg.ViewerMatchID != "" && cfg.LiveBaseURL == "" {
		return Config{}, fmt.Errorf("LIVE_BASE_URL is required when VIEWER_MATCH_ID is set")
	}

	return cfg, nil
}

// loadCircuit reads <PREFIX>_CIRCUIT_* into a breaker config.
func loadCircuit(prefix string) (resilience.CircuitBreakerConfig, error) {
	cfg := resilience.DefaultCircuitBreakerConfig()
	var err error

	if cfg.Enabled, err = getEnvAsBool(prefix+"_CIRCUIT_ENABLED", cfg.Enabled); err != nil {
		return cfg, err
	}

	key := prefix + "_CIRCUIT_FAILURE_COUNT"
	if cfg.FailureThreshold, err = getEnvAsInt(key, cfg.FailureThreshold); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", key, err)
	}
	if cfg.FailureThreshold < 1 {
		return cfg, fmt.Errorf("%s must be >= 1", key)
	}

	if cfg.OpenTimeout, err = getEnvAsDuration(prefix+"_CIRCUIT_OPEN_TIMEOUT", cfg.OpenTimeout.String()); err != nil {
		return cfg, err
	}

	key = prefix + "_CIRCUIT_HALF_OPEN_MAX_REQ"
	if cfg.HalfOpenMaxReq, err = getEnvAsInt(key, cfg.HalfOpenMaxReq); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", key, err)
	}
	if cfg.HalfOpenMaxReq < 1 {
		return cfg, fmt.Errorf("%s must be >= 1", key)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	out, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return out, nil
}

// getEnvAsDuration rejects zero and negative durations.
func getEnvAsDuration(key, fallback string) (time.Duration, error) {
	out, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return out, nil
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}
