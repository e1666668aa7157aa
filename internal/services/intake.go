package services

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	types "github.com/yungbote/radflow-backend/internal/domain"
	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
	"github.com/yungbote/radflow-backend/internal/platform/objectstore"
)

// Acquisition is one raw DICOM file plus the clinical context it was acquired under.
type Acquisition struct {
	OrderID      uuid.UUID
	MachineID    uuid.UUID
	PatientID    uuid.UUID
	TechnicianID uuid.UUID
	Data         []byte
}

type MetadataExtractor interface {
	Extract(r io.Reader, size int64) (types.Metadata, error)
}

type IntakeService interface {
	Accept(ctx context.Context, acq Acquisition) (domainagg.IngestResult, error)
}

type intakeService struct {
	log       *logger.Logger
	extractor MetadataExtractor
	archive   objectstore.Store
	ingestion IngestionService
}

func NewIntakeService(baseLog *logger.Logger, extractor MetadataExtractor, archive objectstore.Store, ingestion IngestionService) IntakeService {
	return &intakeService{
		log:       baseLog.With("service", "IntakeService"),
		extractor: extractor,
		archive:   archive,
		ingestion: ingestion,
	}
}

// Accept archives the file before ingesting it. A failed ingestion leaves the
// archived object in place; the key is derived from the SOP Instance UID, so
// a retry overwrites it.
func (s *intakeService) Accept(ctx context.Context, acq Acquisition) (domainagg.IngestResult, error) {
	const op = "services.intake.accept"
	md, err := s.extractor.Extract(bytes.NewReader(acq.Data), int64(len(acq.Data)))
	if err != nil {
		return domainagg.IngestResult{}, domainagg.NewError(domainagg.CodeValidation, op, "unreadable DICOM file: "+err.Error(), err)
	}
	if err := md.Validate(); err != nil {
		return domainagg.IngestResult{}, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}

	key := objectstore.StudyKey(md.StudyInstanceUID(), md.SeriesInstanceUID(), md.SOPInstanceUID())
	location, err := s.archive.Put(ctx, key, bytes.NewReader(acq.Data), int64(len(acq.Data)))
	if err != nil {
		return domainagg.IngestResult{}, domainagg.NewError(domainagg.CodeRetryable, op, fmt.Sprintf("archive %s: %v", key, err), err)
	}

	res, err := s.ingestion.Ingest(ctx, IngestCommand{
		OrderID:      acq.OrderID,
		MachineID:    acq.MachineID,
		PatientID:    acq.PatientID,
		TechnicianID: acq.TechnicianID,
		FilePath:     location,
		Metadata:     md,
	})
	if err != nil {
		s.log.Warn("Archived file has no instance", "location", location, "code", domainagg.CodeOf(err))
		return domainagg.IngestResult{}, err
	}
	return res, nil
}
