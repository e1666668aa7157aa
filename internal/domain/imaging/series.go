package imaging

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Series is one homogeneous acquisition run inside a Study.
// SeriesNumber is the 1-based ordinal within the Study at creation time.
type Series struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	SeriesInstanceUID string `gorm:"column:series_instance_uid;not null;uniqueIndex" json:"series_instance_uid"`

	StudyID      uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_series_study_number,priority:1" json:"study_id"`
	SeriesNumber int       `gorm:"column:series_number;not null;uniqueIndex:idx_series_study_number,priority:2" json:"series_number"`

	NumberOfInstances int `gorm:"column:number_of_instances;not null;default:0" json:"number_of_instances"`

	Modality          string `gorm:"column:modality" json:"modality"`
	SeriesDescription string `gorm:"column:series_description" json:"series_description,omitempty"`
	BodyPartExamined  string `gorm:"column:body_part_examined" json:"body_part_examined,omitempty"`

	Instances []*Instance `gorm:"foreignKey:SeriesID" json:"instances,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Series) TableName() string { return "series" }
