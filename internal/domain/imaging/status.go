package imaging

import "strings"

// StudyStatus is the clinical lifecycle state of a Study.
type StudyStatus string

const (
	StudyStatusScanned            StudyStatus = "SCANNED"
	StudyStatusTechnicianVerified StudyStatus = "TECHNICIAN_VERIFIED"
	StudyStatusPendingApproval    StudyStatus = "PENDING_APPROVAL"
	StudyStatusReading            StudyStatus = "READING"
	StudyStatusApproved           StudyStatus = "APPROVED"
	StudyStatusResultPrinted      StudyStatus = "RESULT_PRINTED"
	StudyStatusRejected           StudyStatus = "REJECTED"
)

func (s StudyStatus) Valid() bool {
	switch s {
	case StudyStatusScanned,
		StudyStatusTechnicianVerified,
		StudyStatusPendingApproval,
		StudyStatusReading,
		StudyStatusApproved,
		StudyStatusResultPrinted,
		StudyStatusRejected:
		return true
	default:
		return false
	}
}

// SignatureType identifies which sign-off a StudySignature attests.
type SignatureType string

const (
	SignatureTypeTechnicianVerify   SignatureType = "TECHNICIAN_VERIFY"
	SignatureTypeRadiologistApprove SignatureType = "RADIOLOGIST_APPROVE"
)

func ParseSignatureType(raw string) (SignatureType, bool) {
	switch SignatureType(strings.ToUpper(strings.TrimSpace(raw))) {
	case SignatureTypeTechnicianVerify:
		return SignatureTypeTechnicianVerify, true
	case SignatureTypeRadiologistApprove:
		return SignatureTypeRadiologistApprove, true
	default:
		return "", false
	}
}

// SignoffTransition describes one signature-gated status change.
type SignoffTransition struct {
	SignatureType SignatureType
	From          StudyStatus
	To            StudyStatus
	// UserColumn is the study column that records the signer.
	UserColumn string
}

var (
	TechnicianVerifyTransition = SignoffTransition{
		SignatureType: SignatureTypeTechnicianVerify,
		From:          StudyStatusScanned,
		To:            StudyStatusTechnicianVerified,
		UserColumn:    "performing_technician_id",
	}
	RadiologistApproveTransition = SignoffTransition{
		SignatureType: SignatureTypeRadiologistApprove,
		From:          StudyStatusTechnicianVerified,
		To:            StudyStatusApproved,
		UserColumn:    "verifying_radiologist_id",
	}
)
