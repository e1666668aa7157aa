package imaging

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Attribute keywords carried in a Metadata map.
const (
	TagModality                = "Modality"
	TagStudyInstanceUID        = "StudyInstanceUID"
	TagSeriesInstanceUID       = "SeriesInstanceUID"
	TagSOPInstanceUID          = "SOPInstanceUID"
	TagSOPClassUID             = "SOPClassUID"
	TagPatientID               = "PatientID"
	TagPatientName             = "PatientName"
	TagStudyDate               = "StudyDate"
	TagStudyTime               = "StudyTime"
	TagStudyDescription        = "StudyDescription"
	TagAccessionNumber         = "AccessionNumber"
	TagSeriesDescription       = "SeriesDescription"
	TagSeriesNumber            = "SeriesNumber"
	TagBodyPartExamined        = "BodyPartExamined"
	TagInstanceNumber          = "InstanceNumber"
	TagRows                    = "Rows"
	TagColumns                 = "Columns"
	TagPixelSpacing            = "PixelSpacing"
	TagSliceThickness          = "SliceThickness"
	TagImagePositionPatient    = "ImagePositionPatient"
	TagImageOrientationPatient = "ImageOrientationPatient"
)

// RequiredTags must be present and non-empty for an acquisition to be ingested.
var RequiredTags = []string{
	TagModality,
	TagStudyInstanceUID,
	TagSeriesInstanceUID,
	TagSOPInstanceUID,
}

// Metadata is the flat attribute map extracted from one acquisition file.
type Metadata map[string]string

func (m Metadata) Get(tag string) string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[tag])
}

func (m Metadata) Modality() string          { return strings.ToUpper(m.Get(TagModality)) }
func (m Metadata) StudyInstanceUID() string  { return m.Get(TagStudyInstanceUID) }
func (m Metadata) SeriesInstanceUID() string { return m.Get(TagSeriesInstanceUID) }
func (m Metadata) SOPInstanceUID() string    { return m.Get(TagSOPInstanceUID) }
func (m Metadata) SOPClassUID() string       { return m.Get(TagSOPClassUID) }

// Validate reports the first missing required attribute.
func (m Metadata) Validate() error {
	var missing []string
	for _, tag := range RequiredTags {
		if m.Get(tag) == "" {
			missing = append(missing, tag)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("metadata missing required attributes: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (m Metadata) Int(tag string) int {
	n, err := strconv.Atoi(m.Get(tag))
	if err != nil {
		return 0
	}
	return n
}

func (m Metadata) Float(tag string) float64 {
	f, err := strconv.ParseFloat(m.Get(tag), 64)
	if err != nil {
		return 0
	}
	return f
}

// StudyDate parses the DA value (YYYYMMDD). Returns nil when absent or malformed.
func (m Metadata) StudyDate() *time.Time {
	raw := m.Get(TagStudyDate)
	if raw == "" {
		return nil
	}
	raw = strings.ReplaceAll(raw, ".", "")
	raw = strings.ReplaceAll(raw, "-", "")
	t, err := time.Parse("20060102", raw)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// Clone returns a copy safe to mutate.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
