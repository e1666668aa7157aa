package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/radflow-backend/internal/data/db"
	"github.com/yungbote/radflow-backend/internal/platform/envutil"
	"github.com/yungbote/radflow-backend/internal/platform/events"
	"github.com/yungbote/radflow-backend/internal/platform/kafkaintake"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
	"github.com/yungbote/radflow-backend/internal/platform/objectstore"
)

const (
	SigningModeRemote = "remote"
	SigningModeLocal  = "local"
)

type Config struct {
	LogMode  string
	HTTPAddr string

	DB db.Config

	JWTSecretKey   string
	EnforceRoles   bool
	AllowedOrigins []string
	MaxUploadBytes int64

	SigningMode       string
	SigningBaseURL    string
	SigningAPIKey     string
	SigningTimeout    time.Duration
	SigningMaxRetries int
	// SigningLocalUsers provisions "userID:pin" keys when SigningMode is local.
	SigningLocalUsers []string

	Events  events.Config
	Archive objectstore.Config
	Kafka   kafkaintake.Config

	MetricsAddr string
	ServiceName string
}

// settings resolves a key from the environment first, then the YAML overlay.
type settings struct {
	file map[string]string
}

func (s settings) def(name, fallback string) string {
	if v, ok := s.file[name]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func (s settings) String(name, def string) string {
	return envutil.String(name, s.def(name, def))
}

func (s settings) Int(name string, def int) int {
	if raw, ok := s.file[name]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			def = n
		}
	}
	return envutil.Int(name, def)
}

func (s settings) Bool(name string, def bool) bool {
	if raw, ok := s.file[name]; ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			def = b
		}
	}
	return envutil.Bool(name, def)
}

func (s settings) Seconds(name string, def time.Duration) time.Duration {
	if raw, ok := s.file[name]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n >= 0 {
			def = time.Duration(n) * time.Second
		}
	}
	return envutil.Seconds(name, def)
}

func (s settings) List(name string, def []string) []string {
	if raw, ok := s.file[name]; ok && strings.TrimSpace(raw) != "" {
		def = splitList(raw)
	}
	return envutil.List(name, def)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadOverlay reads a flat YAML document keyed by environment variable name.
// Sequences are joined with commas.
func loadOverlay(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(doc))
	for k, v := range doc {
		key := strings.ToUpper(strings.TrimSpace(k))
		switch val := v.(type) {
		case nil:
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ",")
		default:
			out[key] = fmt.Sprint(val)
		}
	}
	return out, nil
}

func LoadConfig(log *logger.Logger) (Config, error) {
	overlay, err := loadOverlay(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}
	s := settings{file: overlay}

	cfg := Config{
		LogMode:  s.String("LOG_MODE", "development"),
		HTTPAddr: s.String("HTTP_ADDR", ":8080"),
		DB: db.Config{
			Driver:     s.String("DB_DRIVER", db.DriverPostgres),
			Host:       s.String("POSTGRES_HOST", "localhost"),
			Port:       s.String("POSTGRES_PORT", "5432"),
			User:       s.String("POSTGRES_USER", "postgres"),
			Password:   s.String("POSTGRES_PASSWORD", ""),
			Name:       s.String("POSTGRES_NAME", "radflow"),
			SQLitePath: s.String("SQLITE_PATH", ""),
		},
		JWTSecretKey:   s.String("JWT_SECRET_KEY", ""),
		EnforceRoles:   s.Bool("AUTH_ENFORCE_ROLES", false),
		AllowedOrigins: s.List("CORS_ALLOWED_ORIGINS", nil),
		MaxUploadBytes: int64(s.Int("MAX_UPLOAD_MB", 512)) << 20,

		SigningMode:       strings.ToLower(s.String("SIGNING_MODE", SigningModeRemote)),
		SigningBaseURL:    s.String("SIGNING_BASE_URL", ""),
		SigningAPIKey:     s.String("SIGNING_API_KEY", ""),
		SigningTimeout:    s.Seconds("SIGNING_TIMEOUT_SECONDS", 10*time.Second),
		SigningMaxRetries: s.Int("SIGNING_MAX_RETRIES", 1),
		SigningLocalUsers: s.List("SIGNING_LOCAL_USERS", nil),

		Events: events.Config{
			Backend:      events.Backend(s.String("EVENTS_BACKEND", string(events.BackendNone))),
			RedisAddr:    s.String("REDIS_ADDR", "localhost:6379"),
			RedisChannel: s.String("REDIS_CHANNEL", "radflow.study-events"),
			SQSQueueURL:  s.String("SQS_QUEUE_URL", ""),
			AWSRegion:    s.String("AWS_REGION", "us-east-1"),
			AWSEndpoint:  s.String("AWS_ENDPOINT_URL", ""),
		},
		Archive: objectstore.Config{
			Backend:      objectstore.Backend(s.String("ARCHIVE_BACKEND", string(objectstore.BackendLocal))),
			Bucket:       s.String("ARCHIVE_BUCKET", ""),
			Dir:          s.String("ARCHIVE_DIR", "./data/archive"),
			Region:       s.String("AWS_REGION", "us-east-1"),
			Endpoint:     s.String("AWS_ENDPOINT_URL", ""),
			EmulatorHost: s.String("STORAGE_EMULATOR_HOST", ""),
		},
		Kafka: kafkaintake.Config{
			Brokers: s.List("KAFKA_BROKERS", nil),
			Topic:   s.String("KAFKA_TOPIC", "radflow.acquisitions"),
			GroupID: s.String("KAFKA_GROUP_ID", "radflow-intake"),
		},

		MetricsAddr: s.String("METRICS_ADDR", ":9090"),
		ServiceName: s.String("OTEL_SERVICE_NAME", "radflow"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if log != nil {
		log.Info("Configuration loaded",
			"config_file", os.Getenv("CONFIG_FILE"),
			"db_driver", cfg.DB.Driver,
			"signing_mode", cfg.SigningMode,
			"events_backend", cfg.Events.Backend,
			"archive_backend", cfg.Archive.Backend,
		)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	switch c.SigningMode {
	case SigningModeRemote:
		if strings.TrimSpace(c.SigningBaseURL) == "" {
			return fmt.Errorf("SIGNING_BASE_URL is required when SIGNING_MODE=remote")
		}
	case SigningModeLocal:
	default:
		return fmt.Errorf("unsupported SIGNING_MODE %q", c.SigningMode)
	}
	if c.SigningMaxRetries < 0 {
		return fmt.Errorf("SIGNING_MAX_RETRIES must be >= 0")
	}
	return nil
}
