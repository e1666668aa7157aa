// Package clinical holds read models of the order and equipment aggregates
// that imaging ingestion validates against. They are owned elsewhere; this
// service only reads them.
package clinical

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Modality struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModalityCode string    `gorm:"column:modality_code;not null;uniqueIndex" json:"modality_code"`
	Name         string    `gorm:"column:name" json:"name"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Modality) TableName() string { return "modality" }

// Procedure fixes the modality and body part an order is performed with.
type Procedure struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string     `gorm:"column:name" json:"name"`
	ModalityID uuid.UUID  `gorm:"type:uuid;not null;index" json:"modality_id"`
	BodyPartID *uuid.UUID `gorm:"type:uuid" json:"body_part_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Procedure) TableName() string { return "procedure" }

type Order struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PatientID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"patient_id"`
	ProcedureID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"procedure_id"`
	OrderingPhysicianID *uuid.UUID `gorm:"type:uuid" json:"ordering_physician_id,omitempty"`
	Notes               string     `gorm:"column:notes" json:"notes,omitempty"`

	Procedure *Procedure `gorm:"foreignKey:ProcedureID" json:"procedure,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Order) TableName() string { return "imaging_order" }

// Machine is one piece of acquisition equipment bound to a single modality.
type Machine struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"column:name" json:"name"`
	ModalityID uuid.UUID `gorm:"type:uuid;not null;index" json:"modality_id"`
	AETitle    string    `gorm:"column:ae_title" json:"ae_title,omitempty"`

	Modality *Modality `gorm:"foreignKey:ModalityID" json:"modality,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Machine) TableName() string { return "modality_machine" }
