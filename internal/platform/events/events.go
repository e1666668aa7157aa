package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

const (
	TypeInstanceIngested = "study.instance_ingested"
	TypeStatusChanged    = "study.status_changed"
)

// Event is the JSON document published after a study write commits.
type Event struct {
	ID               uuid.UUID  `json:"id"`
	Type             string     `json:"type"`
	StudyID          uuid.UUID  `json:"study_id"`
	StudyInstanceUID string     `json:"study_instance_uid,omitempty"`
	Status           string     `json:"status,omitempty"`
	SignatureType    string     `json:"signature_type,omitempty"`
	SeriesID         *uuid.UUID `json:"series_id,omitempty"`
	InstanceID       *uuid.UUID `json:"instance_id,omitempty"`
	OccurredAt       time.Time  `json:"occurred_at"`
}

// Publisher delivers events at most once; callers treat failures as best effort.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type Backend string

const (
	BackendNone  Backend = "none"
	BackendRedis Backend = "redis"
	BackendSQS   Backend = "sqs"
)

type Config struct {
	Backend      Backend
	RedisAddr    string
	RedisChannel string
	SQSQueueURL  string
	AWSRegion    string
	AWSEndpoint  string
}

// New builds the configured publisher. An empty backend means none.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Publisher, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	switch Backend(strings.ToLower(strings.TrimSpace(string(cfg.Backend)))) {
	case "", BackendNone:
		return Noop{}, nil
	case BackendRedis:
		return NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisChannel, log)
	case BackendSQS:
		return NewSQSPublisher(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("invalid EVENTS_BACKEND=%q (allowed: none, redis, sqs)", cfg.Backend)
	}
}

func normalize(ev Event) Event {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	return ev
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, normalize(ev))
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.Events...)
}
