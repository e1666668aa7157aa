package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/radflow-backend/internal/domain/clinical"
	"github.com/yungbote/radflow-backend/internal/domain/imaging"
)

var OrderValidationGateContract = Contract{
	Name:             "Imaging.OrderValidationGate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Read-only order/modality/machine/patient consistency checks. Runs inside the " +
		"caller's transaction so validation and the subsequent write see the same snapshot.",
}

// OrderValidationGate confirms an order, its procedure modality, the machine and the patient agree.
//
// Failures carry ErrOrderNotFound, ErrModalityNotFound, ErrModalityMismatch, ErrMachineNotFound,
// ErrMachineModalityMismatch or ErrPatientMismatch. Ingestion runs the same checks
// inside its own write transaction.
type OrderValidationGate interface {
	Aggregate

	Validate(ctx context.Context, in ValidateOrderInput) (ValidateOrderResult, error)
}

type ValidateOrderInput struct {
	OrderID   uuid.UUID
	MachineID uuid.UUID
	PatientID uuid.UUID
	Metadata  imaging.Metadata
}

type ValidateOrderResult struct {
	Order    *clinical.Order
	Modality *clinical.Modality
	Machine  *clinical.Machine
}

var HierarchyIngestorContract = Contract{
	Name:             "Imaging.HierarchyIngestor",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Owns atomic creation/extension of study/series/instance rows and the " +
		"number_of_series/number_of_instances counters.",
}

// HierarchyIngestor materializes one acquisition into the Study/Series/Instance hierarchy.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeMismatch, CodeInvariantViolation, CodeRetryable, CodeInternal.
type HierarchyIngestor interface {
	Aggregate

	Ingest(ctx context.Context, in IngestInput) (IngestResult, error)
}

type IngestInput struct {
	OrderID                uuid.UUID
	MachineID              uuid.UUID
	PatientID              uuid.UUID
	PerformingTechnicianID uuid.UUID
	FilePath               string
	Metadata               imaging.Metadata
}

type IngestResult struct {
	Study    *imaging.Study
	Series   *imaging.Series
	Instance *imaging.Instance

	StudyCreated  bool
	SeriesCreated bool
}
