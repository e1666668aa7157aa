package imaging

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Instance is the leaf of the hierarchy. It is append-only.
type Instance struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	SOPInstanceUID string `gorm:"column:sop_instance_uid;not null;uniqueIndex" json:"sop_instance_uid"`
	SOPClassUID    string `gorm:"column:sop_class_uid" json:"sop_class_uid"`

	SeriesID       uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_instance_series_number,priority:1" json:"series_id"`
	InstanceNumber int       `gorm:"column:instance_number;not null;uniqueIndex:idx_instance_series_number,priority:2" json:"instance_number"`

	FilePath string `gorm:"column:file_path;not null" json:"file_path"`

	Rows                    int     `gorm:"column:rows" json:"rows,omitempty"`
	Columns                 int     `gorm:"column:columns" json:"columns,omitempty"`
	PixelSpacing            string  `gorm:"column:pixel_spacing" json:"pixel_spacing,omitempty"`
	SliceThickness          float64 `gorm:"column:slice_thickness" json:"slice_thickness,omitempty"`
	ImagePositionPatient    string  `gorm:"column:image_position_patient" json:"image_position_patient,omitempty"`
	ImageOrientationPatient string  `gorm:"column:image_orientation_patient" json:"image_orientation_patient,omitempty"`

	// Attributes is the full extracted metadata map.
	Attributes datatypes.JSON `gorm:"column:attributes" json:"attributes,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Instance) TableName() string { return "instance" }
