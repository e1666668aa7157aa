package imaging

import (
	"time"

	"github.com/google/uuid"
)

// StudySignature is the persisted attestation for one sign-off of a Study.
// At most one row exists per (study_id, signature_type).
type StudySignature struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	StudyID       uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_study_signature_type,priority:1" json:"study_id"`
	SignatureType SignatureType `gorm:"column:signature_type;type:varchar(32);not null;uniqueIndex:idx_study_signature_type,priority:2" json:"signature_type"`
	UserID        uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`

	// SignedData is the exact canonical payload bytes that were signed.
	SignedData        string `gorm:"column:signed_data;type:text;not null" json:"signed_data"`
	SignatureValue    string `gorm:"column:signature_value;type:text;not null" json:"signature_value"`
	PublicKey         string `gorm:"column:public_key;type:text;not null" json:"public_key"`
	CertificateSerial string `gorm:"column:certificate_serial" json:"certificate_serial"`
	Algorithm         string `gorm:"column:algorithm;not null" json:"algorithm"`
	RemoteSignatureID string `gorm:"column:remote_signature_id;index" json:"remote_signature_id"`

	SignedAt  time.Time `gorm:"column:signed_at;not null" json:"signed_at"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (StudySignature) TableName() string { return "study_signature" }
