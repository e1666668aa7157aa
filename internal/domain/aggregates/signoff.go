package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/radflow-backend/internal/domain/imaging"
)

var StudySignoffAggregateContract = Contract{
	Name:             "Imaging.StudySignoffAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Owns signature-gated study status transitions. The remote sign call runs inside the " +
		"transaction with the study row locked and a bounded timeout.",
}

// StudySignoffAggregate advances a Study through its signed transitions.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodePreconditionFailed, CodeUnauthenticated,
// CodeRetryable, CodeInternal.
type StudySignoffAggregate interface {
	Aggregate

	TechnicianVerify(ctx context.Context, in SignoffInput) (SignoffResult, error)
	RadiologistApprove(ctx context.Context, in SignoffInput) (SignoffResult, error)
}

type SignoffInput struct {
	StudyID uuid.UUID
	UserID  uuid.UUID
	PIN     string
}

type SignoffResult struct {
	StudyID       uuid.UUID
	Status        imaging.StudyStatus
	SignatureType imaging.SignatureType
	SignatureID   uuid.UUID
	SignedAt      time.Time
}
