package imaging

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Study is one imaging encounter, keyed externally by StudyInstanceUID.
// NumberOfSeries is a derived counter maintained by the ingestion write path.
type Study struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	StudyInstanceUID string `gorm:"column:study_instance_uid;not null;uniqueIndex" json:"study_instance_uid"`

	PatientID         uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	OrderID           uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ModalityMachineID uuid.UUID `gorm:"type:uuid;not null;index" json:"modality_machine_id"`

	NumberOfSeries int         `gorm:"column:number_of_series;not null;default:0" json:"number_of_series"`
	Status         StudyStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`

	StudyDate        *time.Time `gorm:"column:study_date" json:"study_date,omitempty"`
	StudyTime        string     `gorm:"column:study_time" json:"study_time,omitempty"`
	StudyDescription string     `gorm:"column:study_description" json:"study_description,omitempty"`
	AccessionNumber  string     `gorm:"column:accession_number;index" json:"accession_number,omitempty"`

	ReferringPhysicianID   *uuid.UUID `gorm:"type:uuid" json:"referring_physician_id,omitempty"`
	PerformingTechnicianID *uuid.UUID `gorm:"type:uuid" json:"performing_technician_id,omitempty"`
	VerifyingRadiologistID *uuid.UUID `gorm:"type:uuid" json:"verifying_radiologist_id,omitempty"`

	Series     []*Series         `gorm:"foreignKey:StudyID" json:"series,omitempty"`
	Signatures []*StudySignature `gorm:"foreignKey:StudyID" json:"signatures,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Study) TableName() string { return "study" }
