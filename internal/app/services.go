package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/radflow-backend/internal/data/aggregates"
	"github.com/yungbote/radflow-backend/internal/data/repos"
	"github.com/yungbote/radflow-backend/internal/dicomx"
	"github.com/yungbote/radflow-backend/internal/observability"
	"github.com/yungbote/radflow-backend/internal/platform/events"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
	"github.com/yungbote/radflow-backend/internal/platform/objectstore"
	"github.com/yungbote/radflow-backend/internal/services"
	"github.com/yungbote/radflow-backend/internal/signing"
)

type Services struct {
	Ingestion services.IngestionService
	Intake    services.IntakeService
	Signoff   services.SignoffService
	Verifier  services.SignatureVerifier
	Studies   services.StudyQueryService
}

type serviceDeps struct {
	DB        *gorm.DB
	Log       *logger.Logger
	Cfg       Config
	Repos     repos.Set
	Metrics   *observability.Metrics
	Signer    signing.Signer
	Publisher events.Publisher
	Archive   objectstore.Store
}

func wireServices(d serviceDeps) Services {
	d.Log.Info("Wiring services...")
	base := aggregates.BaseDeps{
		DB:    d.DB,
		Log:   d.Log,
		Hooks: aggregates.NewObservabilityHooks(d.Metrics),
	}
	gate := aggregates.NewOrderValidationGate(aggregates.OrderGateDeps{
		Base:       base,
		Orders:     d.Repos.Order,
		Modalities: d.Repos.Modality,
		Machines:   d.Repos.Machine,
	})
	ingestor := aggregates.NewHierarchyIngestor(aggregates.IngestionDeps{
		Base:      base,
		Gate:      gate,
		Studies:   d.Repos.Study,
		Series:    d.Repos.Series,
		Instances: d.Repos.Instance,
	})
	signoff := aggregates.NewStudySignoffAggregate(aggregates.SignoffDeps{
		Base:        base,
		Studies:     d.Repos.Study,
		Signatures:  d.Repos.StudySignature,
		Signer:      services.NewInstrumentedSigner(d.Signer, d.Metrics),
		SignTimeout: d.Cfg.SigningTimeout,
	})

	studies := services.NewStudyQueryService(d.Log, d.Repos.Study)
	ingestion := services.NewIngestionService(d.Log, ingestor, d.Publisher, d.Metrics)
	return Services{
		Ingestion: ingestion,
		Intake:    services.NewIntakeService(d.Log, dicomx.NewExtractor(d.Cfg.MaxUploadBytes), d.Archive, ingestion),
		Signoff:   services.NewSignoffService(d.Log, signoff, studies, d.Publisher, d.Metrics),
		Verifier:  services.NewSignatureVerifier(d.Log, d.Repos.Study, d.Repos.StudySignature, d.Metrics),
		Studies:   studies,
	}
}
