package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/radflow-backend/internal/platform/logger"
	"github.com/yungbote/radflow-backend/internal/platform/objectstore"
)

var newArchiveStore = objectstore.New

type ArchiveBootstrapErrorCode string

const (
	ArchiveBootstrapErrorInvalidConfig ArchiveBootstrapErrorCode = "invalid_config"
	ArchiveBootstrapErrorConnectFailed ArchiveBootstrapErrorCode = "connect_failed"
)

type ArchiveBootstrapError struct {
	Code    ArchiveBootstrapErrorCode
	Backend string
	Bucket  string
	Cause   error
}

func (e *ArchiveBootstrapError) Error() string {
	if e == nil {
		return "archive bootstrap failed"
	}
	return fmt.Sprintf(
		"archive bootstrap failed (code=%s backend=%q bucket=%q): %v",
		e.Code,
		e.Backend,
		e.Bucket,
		e.Cause,
	)
}

func (e *ArchiveBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func resolveArchive(ctx context.Context, log *logger.Logger, cfg objectstore.Config) (objectstore.Store, error) {
	log.Info("Selecting archive backend", "backend", cfg.Backend, "bucket", cfg.Bucket, "dir", cfg.Dir)

	store, err := newArchiveStore(ctx, cfg, log)
	if err != nil {
		classified := classifyArchiveBootstrapError(cfg, err)
		log.Error("Archive bootstrap failed",
			"backend", cfg.Backend,
			"bucket", cfg.Bucket,
			"error_code", archiveBootstrapErrorCode(classified),
			"error", classified,
		)
		return nil, classified
	}
	return store, nil
}

func classifyArchiveBootstrapError(cfg objectstore.Config, err error) error {
	code := ArchiveBootstrapErrorConnectFailed
	var cfgErr *objectstore.ConfigError
	if errors.As(err, &cfgErr) {
		code = ArchiveBootstrapErrorInvalidConfig
	}
	return &ArchiveBootstrapError{
		Code:    code,
		Backend: string(cfg.Backend),
		Bucket:  cfg.Bucket,
		Cause:   err,
	}
}

func archiveBootstrapErrorCode(err error) ArchiveBootstrapErrorCode {
	var bootstrapErr *ArchiveBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return ArchiveBootstrapErrorConnectFailed
}
