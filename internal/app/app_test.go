package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
	"github.com/yungbote/radflow-backend/internal/platform/kafkaintake"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
	"github.com/yungbote/radflow-backend/internal/platform/objectstore"
	"github.com/yungbote/radflow-backend/internal/services"
	"github.com/yungbote/radflow-backend/internal/signing"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	return log
}

func TestResolveArchiveClassifiesErrors(t *testing.T) {
	log := testLogger(t)

	_, err := resolveArchive(context.Background(), log, objectstore.Config{Backend: objectstore.BackendS3})
	var got *ArchiveBootstrapError
	if !errors.As(err, &got) || got.Code != ArchiveBootstrapErrorInvalidConfig {
		t.Fatalf("missing bucket: want invalid_config got=%v", err)
	}

	orig := newArchiveStore
	t.Cleanup(func() { newArchiveStore = orig })
	newArchiveStore = func(context.Context, objectstore.Config, *logger.Logger) (objectstore.Store, error) {
		return nil, errors.New("dial tcp: refused")
	}
	_, err = resolveArchive(context.Background(), log, objectstore.Config{Backend: objectstore.BackendGCS, Bucket: "b"})
	if archiveBootstrapErrorCode(err) != ArchiveBootstrapErrorConnectFailed {
		t.Fatalf("connect failure: got=%v", err)
	}

	newArchiveStore = orig
	store, err := resolveArchive(context.Background(), log, objectstore.Config{Backend: objectstore.BackendMemory})
	if err != nil || store == nil {
		t.Fatalf("memory archive: store=%v err=%v", store, err)
	}
}

func TestBuildLocalSignerProvisionsUsers(t *testing.T) {
	log := testLogger(t)
	userID := uuid.New()
	signer, err := buildSigner(log, Config{SigningMode: SigningModeLocal, SigningLocalUsers: []string{userID.String() + ":2468"}})
	if err != nil {
		t.Fatalf("buildSigner: %v", err)
	}
	_, err = signer.Sign(context.Background(), signing.SignRequest{UserID: userID, PIN: "0000", Payload: []byte("x")})
	if !errors.Is(err, signing.ErrInvalidPIN) {
		t.Fatalf("provisioned user with wrong pin: want ErrInvalidPIN got=%v", err)
	}

	if _, err := buildSigner(log, Config{SigningMode: SigningModeLocal, SigningLocalUsers: []string{"nobody"}}); err == nil {
		t.Fatalf("malformed entry must fail")
	}
	if _, err := buildSigner(log, Config{SigningMode: SigningModeRemote, SigningBaseURL: "http://signing:8080"}); err != nil {
		t.Fatalf("remote signer: %v", err)
	}
}

type recordingIntake struct {
	got services.Acquisition
	err error
}

func (r *recordingIntake) Accept(_ context.Context, acq services.Acquisition) (domainagg.IngestResult, error) {
	r.got = acq
	return domainagg.IngestResult{}, r.err
}

func TestIntakeHandlerForwardsMessage(t *testing.T) {
	intake := &recordingIntake{}
	msg := kafkaintake.Message{OrderID: uuid.New(), MachineID: uuid.New(), PatientID: uuid.New(), Data: []byte("DICM")}
	if err := intakeHandler(intake)(context.Background(), msg); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if intake.got.OrderID != msg.OrderID || string(intake.got.Data) != "DICM" {
		t.Fatalf("acquisition: %+v", intake.got)
	}

	intake.err = domainagg.NewError(domainagg.CodeRetryable, "test", "archive down", nil)
	if err := intakeHandler(intake)(context.Background(), msg); !services.IsRetryable(err) {
		t.Fatalf("retryable error must surface unchanged: %v", err)
	}
}
