package domain

import (
	"github.com/yungbote/radflow-backend/internal/domain/clinical"
	"github.com/yungbote/radflow-backend/internal/domain/imaging"
)

const (
	StudyStatusScanned            = imaging.StudyStatusScanned
	StudyStatusTechnicianVerified = imaging.StudyStatusTechnicianVerified
	StudyStatusPendingApproval    = imaging.StudyStatusPendingApproval
	StudyStatusReading            = imaging.StudyStatusReading
	StudyStatusApproved           = imaging.StudyStatusApproved
	StudyStatusResultPrinted      = imaging.StudyStatusResultPrinted
	StudyStatusRejected           = imaging.StudyStatusRejected

	SignatureTypeTechnicianVerify   = imaging.SignatureTypeTechnicianVerify
	SignatureTypeRadiologistApprove = imaging.SignatureTypeRadiologistApprove
)

type Study = imaging.Study
type Series = imaging.Series
type Instance = imaging.Instance
type StudySignature = imaging.StudySignature
type StudyStatus = imaging.StudyStatus
type SignatureType = imaging.SignatureType
type Metadata = imaging.Metadata

type Order = clinical.Order
type Procedure = clinical.Procedure
type Modality = clinical.Modality
type Machine = clinical.Machine

// AllModels lists every table owned or read by this service, in migration order.
func AllModels() []any {
	return []any{
		&clinical.Modality{},
		&clinical.Procedure{},
		&clinical.Order{},
		&clinical.Machine{},
		&imaging.Study{},
		&imaging.Series{},
		&imaging.Instance{},
		&imaging.StudySignature{},
	}
}
