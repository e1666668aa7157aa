package kafkaintake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

const (
	HeaderOrderID      = "order_id"
	HeaderMachineID    = "machine_id"
	HeaderPatientID    = "patient_id"
	HeaderTechnicianID = "technician_id"
)

// Message is one acquisition pulled off the topic.
type Message struct {
	OrderID      uuid.UUID
	MachineID    uuid.UUID
	PatientID    uuid.UUID
	TechnicianID uuid.UUID
	Data         []byte
	Key          string
	Partition    int
	Offset       int64
}

// Reader is the subset of *kafka.Reader the worker needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
}

func NewReader(cfg Config) (*kafka.Reader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("missing KAFKA_BROKERS")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("missing KAFKA_TOPIC")
	}
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = 1
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 64 << 20
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	}), nil
}

type WorkerOptions struct {
	// Retryable reports whether a handler error should be retried in place.
	Retryable   func(error) bool
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
}

// Worker commits an offset after the handler succeeds or fails for good.
// A retryable failure is retried in place; once attempts run out Run
// returns without committing, so the message is redelivered on restart.
type Worker struct {
	log    *logger.Logger
	reader Reader
	handle func(ctx context.Context, msg Message) error
	opts   WorkerOptions
}

func NewWorker(log *logger.Logger, reader Reader, handle func(ctx context.Context, msg Message) error, opts WorkerOptions) *Worker {
	if opts.Retryable == nil {
		opts.Retryable = func(error) bool { return false }
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	return &Worker{
		log:    log.With("service", "KafkaIntakeWorker"),
		reader: reader,
		handle: handle,
		opts:   opts,
	}
}

// Run consumes until ctx is cancelled or a message exhausts its retries.
func (w *Worker) Run(ctx context.Context) error {
	for {
		km, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}
		if err := w.process(ctx, km); err != nil {
			return err
		}
	}
}

func (w *Worker) process(ctx context.Context, km kafka.Message) error {
	log := w.log.With("partition", km.Partition, "offset", km.Offset)

	msg, err := Decode(km)
	if err != nil {
		log.Warn("Dropping malformed acquisition message", "error", err)
		return w.commit(ctx, km)
	}

	backoff := w.opts.Backoff
	for attempt := 1; ; attempt++ {
		err := w.handle(ctx, msg)
		if err == nil {
			return w.commit(ctx, km)
		}
		if !w.opts.Retryable(err) {
			log.Warn("Acquisition rejected; committing", "error", err)
			return w.commit(ctx, km)
		}
		if attempt >= w.opts.MaxAttempts {
			return fmt.Errorf("acquisition at offset %d failed after %d attempts: %w", km.Offset, attempt, err)
		}
		log.Warn("Acquisition failed; retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > w.opts.MaxBackoff {
			backoff = w.opts.MaxBackoff
		}
	}
}

func (w *Worker) commit(ctx context.Context, km kafka.Message) error {
	if err := w.reader.CommitMessages(ctx, km); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("commit offset %d: %w", km.Offset, err)
	}
	return nil
}

// Decode reads the acquisition headers. order_id, machine_id and patient_id
// are required; technician_id is optional.
func Decode(km kafka.Message) (Message, error) {
	if len(km.Value) == 0 {
		return Message{}, errors.New("empty message value")
	}
	headers := map[string]string{}
	for _, h := range km.Headers {
		headers[strings.ToLower(strings.TrimSpace(h.Key))] = strings.TrimSpace(string(h.Value))
	}
	msg := Message{
		Data:      km.Value,
		Key:       string(km.Key),
		Partition: km.Partition,
		Offset:    km.Offset,
	}
	var err error
	if msg.OrderID, err = requiredUUID(headers, HeaderOrderID); err != nil {
		return Message{}, err
	}
	if msg.MachineID, err = requiredUUID(headers, HeaderMachineID); err != nil {
		return Message{}, err
	}
	if msg.PatientID, err = requiredUUID(headers, HeaderPatientID); err != nil {
		return Message{}, err
	}
	if raw := headers[HeaderTechnicianID]; raw != "" {
		if msg.TechnicianID, err = uuid.Parse(raw); err != nil {
			return Message{}, fmt.Errorf("invalid %s header: %w", HeaderTechnicianID, err)
		}
	}
	return msg, nil
}

func requiredUUID(headers map[string]string, key string) (uuid.UUID, error) {
	raw := headers[key]
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s header", key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s header: %w", key, err)
	}
	return id, nil
}
