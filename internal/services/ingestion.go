package services

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/radflow-backend/internal/domain"
	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
	"github.com/yungbote/radflow-backend/internal/observability"
	"github.com/yungbote/radflow-backend/internal/platform/events"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

type IngestCommand struct {
	OrderID      uuid.UUID
	MachineID    uuid.UUID
	PatientID    uuid.UUID
	TechnicianID uuid.UUID
	FilePath     string
	Metadata     types.Metadata
}

type IngestionService interface {
	Ingest(ctx context.Context, cmd IngestCommand) (domainagg.IngestResult, error)
}

type ingestionService struct {
	log       *logger.Logger
	ingestor  domainagg.HierarchyIngestor
	publisher events.Publisher
	metrics   *observability.Metrics
}

func NewIngestionService(baseLog *logger.Logger, ingestor domainagg.HierarchyIngestor, publisher events.Publisher, metrics *observability.Metrics) IngestionService {
	return &ingestionService{
		log:       baseLog.With("service", "IngestionService"),
		ingestor:  ingestor,
		publisher: publisher,
		metrics:   metrics,
	}
}

func (s *ingestionService) Ingest(ctx context.Context, cmd IngestCommand) (out domainagg.IngestResult, err error) {
	const op = "services.ingestion.ingest"
	ctx, span := observability.StartSpan(ctx, "ingestion.ingest",
		attribute.String("order_id", cmd.OrderID.String()),
		attribute.String("study_instance_uid", cmd.Metadata.StudyInstanceUID()),
		attribute.String("sop_instance_uid", cmd.Metadata.SOPInstanceUID()),
	)
	defer func() { observability.EndSpan(span, err) }()

	if verr := cmd.Metadata.Validate(); verr != nil {
		s.metrics.IncIngestFailure(string(domainagg.CodeValidation))
		return domainagg.IngestResult{}, domainagg.NewError(domainagg.CodeValidation, op, verr.Error(), verr)
	}

	res, err := s.ingestor.Ingest(ctx, domainagg.IngestInput{
		OrderID:                cmd.OrderID,
		MachineID:              cmd.MachineID,
		PatientID:              cmd.PatientID,
		PerformingTechnicianID: cmd.TechnicianID,
		FilePath:               cmd.FilePath,
		Metadata:               cmd.Metadata,
	})
	if err != nil {
		code := domainagg.CodeOf(err)
		s.metrics.IncIngestFailure(string(code))
		s.log.Warn("Ingestion rejected",
			"code", code,
			"order_id", cmd.OrderID,
			"sop_instance_uid", cmd.Metadata.SOPInstanceUID(),
			"error", err,
		)
		return domainagg.IngestResult{}, err
	}

	s.metrics.IncInstanceIngested(cmd.Metadata.Modality(), res.StudyCreated, res.SeriesCreated)
	s.log.Info("Instance ingested",
		"study_id", res.Study.ID,
		"series_number", res.Series.SeriesNumber,
		"instance_number", res.Instance.InstanceNumber,
		"study_created", res.StudyCreated,
		"series_created", res.SeriesCreated,
	)

	seriesID, instanceID := res.Series.ID, res.Instance.ID
	publishEvent(ctx, s.log, s.publisher, s.metrics, events.Event{
		Type:             events.TypeInstanceIngested,
		StudyID:          res.Study.ID,
		StudyInstanceUID: res.Study.StudyInstanceUID,
		Status:           string(res.Study.Status),
		SeriesID:         &seriesID,
		InstanceID:       &instanceID,
	})
	return res, nil
}
