package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/radflow-backend/internal/data/aggregates"
	"github.com/yungbote/radflow-backend/internal/data/repos"
	repotest "github.com/yungbote/radflow-backend/internal/data/repos/testutil"
	types "github.com/yungbote/radflow-backend/internal/domain"
	"github.com/yungbote/radflow-backend/internal/observability"
	"github.com/yungbote/radflow-backend/internal/platform/events"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
	"github.com/yungbote/radflow-backend/internal/signing"
)

const stackPIN = "1357"

// stack wires the services over a fresh SQLite database.
type stack struct {
	ctx         context.Context
	db          *gorm.DB
	log         *logger.Logger
	repos       repos.Set
	clinical    repotest.Clinical
	events      *events.Recorder
	metrics     *observability.Metrics
	signer      *signing.LocalSigner
	technician  uuid.UUID
	radiologist uuid.UUID

	ingestion IngestionService
	signoff   SignoffService
	verifier  SignatureVerifier
	query     StudyQueryService
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	set := repos.NewSet(db, log)
	rec := &events.Recorder{}
	metrics := observability.New()

	signer := signing.NewLocalSigner().WithBcryptCost(bcrypt.MinCost)
	tech, rad := uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{tech, rad} {
		if _, err := signer.Provision(id, stackPIN); err != nil {
			t.Fatalf("Provision: %v", err)
		}
	}

	base := aggregates.BaseDeps{DB: db, Log: log, Hooks: aggregates.NewObservabilityHooks(metrics)}
	gate := aggregates.NewOrderValidationGate(aggregates.OrderGateDeps{
		Base: base, Orders: set.Order, Modalities: set.Modality, Machines: set.Machine,
	})
	ingestor := aggregates.NewHierarchyIngestor(aggregates.IngestionDeps{
		Base: base, Gate: gate, Studies: set.Study, Series: set.Series, Instances: set.Instance,
	})
	signoffAgg := aggregates.NewStudySignoffAggregate(aggregates.SignoffDeps{
		Base:       base,
		Studies:    set.Study,
		Signatures: set.StudySignature,
		Signer:     NewInstrumentedSigner(signer, metrics),
	})
	query := NewStudyQueryService(log, set.Study)

	return &stack{
		ctx:         ctx,
		db:          db,
		log:         log,
		repos:       set,
		clinical:    repotest.SeedClinical(t, ctx, db, "CT"),
		events:      rec,
		metrics:     metrics,
		signer:      signer,
		technician:  tech,
		radiologist: rad,
		ingestion:   NewIngestionService(log, ingestor, rec, metrics),
		signoff:     NewSignoffService(log, signoffAgg, query, rec, metrics),
		verifier:    NewSignatureVerifier(log, set.Study, set.StudySignature, metrics),
		query:       query,
	}
}

func (s *stack) command(studyUID, seriesUID, sopUID string) IngestCommand {
	return IngestCommand{
		OrderID:      s.clinical.Order.ID,
		MachineID:    s.clinical.Machine.ID,
		PatientID:    s.clinical.PatientID,
		TechnicianID: s.technician,
		FilePath:     "mem://" + sopUID,
		Metadata:     repotest.Metadata("CT", studyUID, seriesUID, sopUID),
	}
}

// ingestStudy creates a study with one instance and returns it.
func (s *stack) ingestStudy(t *testing.T) *types.Study {
	t.Helper()
	res, err := s.ingestion.Ingest(s.ctx, s.command("T."+uuid.NewString(), "S."+uuid.NewString(), "I."+uuid.NewString()))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	return res.Study
}
