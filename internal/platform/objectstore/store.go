package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("objectstore: object not found")

// Store archives raw acquisition files.
type Store interface {
	// Put writes r under key and returns the location to persist on the instance.
	Put(ctx context.Context, key string, r io.Reader, size int64) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type Backend string

const (
	BackendLocal       Backend = "local"
	BackendMemory      Backend = "memory"
	BackendS3          Backend = "s3"
	BackendGCS         Backend = "gcs"
	BackendGCSEmulator Backend = "gcs_emulator"
)

type Config struct {
	Backend Backend
	// Bucket is required for s3 and gcs backends.
	Bucket string
	// Dir is the root for the local backend.
	Dir string
	// Region and Endpoint override the AWS defaults (Endpoint enables path-style).
	Region   string
	Endpoint string
	// EmulatorHost is required for gcs_emulator.
	EmulatorHost string
}

type ConfigErrorCode string

const (
	ConfigErrorInvalidBackend      ConfigErrorCode = "invalid_backend"
	ConfigErrorMissingBucket       ConfigErrorCode = "missing_bucket"
	ConfigErrorMissingDir          ConfigErrorCode = "missing_dir"
	ConfigErrorInvalidEmulatorHost ConfigErrorCode = "invalid_emulator_host"
)

type ConfigError struct {
	Code    ConfigErrorCode
	Backend string
	Value   string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid object storage config"
	}
	switch e.Code {
	case ConfigErrorInvalidBackend:
		return fmt.Sprintf("invalid ARCHIVE_BACKEND=%q (allowed: %q, %q, %q, %q, %q)",
			e.Backend, BackendLocal, BackendMemory, BackendS3, BackendGCS, BackendGCSEmulator)
	case ConfigErrorMissingBucket:
		return fmt.Sprintf("ARCHIVE_BACKEND=%q requires ARCHIVE_BUCKET", e.Backend)
	case ConfigErrorMissingDir:
		return fmt.Sprintf("ARCHIVE_BACKEND=%q requires ARCHIVE_DIR", e.Backend)
	case ConfigErrorInvalidEmulatorHost:
		return fmt.Sprintf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://fake-gcs:4443", e.Value)
	default:
		return "invalid object storage config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func Validate(cfg Config) error {
	b := string(cfg.Backend)
	switch cfg.Backend {
	case BackendMemory:
		return nil
	case BackendLocal:
		if strings.TrimSpace(cfg.Dir) == "" {
			return &ConfigError{Code: ConfigErrorMissingDir, Backend: b}
		}
		return nil
	case BackendS3, BackendGCS:
		if strings.TrimSpace(cfg.Bucket) == "" {
			return &ConfigError{Code: ConfigErrorMissingBucket, Backend: b}
		}
		return nil
	case BackendGCSEmulator:
		if strings.TrimSpace(cfg.Bucket) == "" {
			return &ConfigError{Code: ConfigErrorMissingBucket, Backend: b}
		}
		u, err := url.Parse(strings.TrimSpace(cfg.EmulatorHost))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ConfigError{Code: ConfigErrorInvalidEmulatorHost, Backend: b, Value: cfg.EmulatorHost, Cause: err}
		}
		return nil
	default:
		return &ConfigError{Code: ConfigErrorInvalidBackend, Backend: b}
	}
}

// New builds the configured backend.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Store, error) {
	cfg.Backend = Backend(strings.ToLower(strings.TrimSpace(string(cfg.Backend))))
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if log != nil {
		log.With("service", "ObjectStore").Info("Object storage initialized",
			"backend", cfg.Backend,
			"bucket", cfg.Bucket,
			"dir", cfg.Dir,
			"endpoint", cfg.Endpoint,
		)
	}
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendLocal:
		return NewLocalStore(cfg.Dir)
	case BackendS3:
		return NewS3Store(ctx, cfg)
	default:
		return NewGCSStore(ctx, cfg)
	}
}

// StudyKey is the archive key of one acquisition file.
func StudyKey(studyUID, seriesUID, sopUID string) string {
	return fmt.Sprintf("studies/%s/%s/%s.dcm", cleanSegment(studyUID), cleanSegment(seriesUID), cleanSegment(sopUID))
}

func cleanSegment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
	if s == "" {
		return "_"
	}
	return s
}

// normalizeKey rejects keys that would escape the archive root.
func normalizeKey(key string) (string, error) {
	k := strings.TrimLeft(strings.TrimSpace(key), "/")
	if k == "" {
		return "", errors.New("objectstore: empty key")
	}
	clean := path.Clean(k)
	if clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", fmt.Errorf("objectstore: invalid key %q", key)
	}
	return clean, nil
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".dcm"):
		return "application/dicom"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
