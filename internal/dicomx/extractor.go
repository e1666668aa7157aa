package dicomx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gradienthealth/dicom"
	"github.com/gradienthealth/dicom/dicomtag"

	"github.com/yungbote/radflow-backend/internal/domain/imaging"
)

// Metadata is the flat keyword->value attribute map produced by Extract.
type Metadata = imaging.Metadata

// ErrEmptyInput is returned when there are no bytes to decode.
var ErrEmptyInput = errors.New("dicomx: empty input")

// keywords maps the attributes kept on an Instance to their tags.
var keywords = map[dicomtag.Tag]string{
	{Group: 0x0008, Element: 0x0016}: imaging.TagSOPClassUID,
	{Group: 0x0008, Element: 0x0018}: imaging.TagSOPInstanceUID,
	{Group: 0x0008, Element: 0x0020}: imaging.TagStudyDate,
	{Group: 0x0008, Element: 0x0030}: imaging.TagStudyTime,
	{Group: 0x0008, Element: 0x0050}: imaging.TagAccessionNumber,
	{Group: 0x0008, Element: 0x0060}: imaging.TagModality,
	{Group: 0x0008, Element: 0x1030}: imaging.TagStudyDescription,
	{Group: 0x0008, Element: 0x103E}: imaging.TagSeriesDescription,
	{Group: 0x0010, Element: 0x0010}: imaging.TagPatientName,
	{Group: 0x0010, Element: 0x0020}: imaging.TagPatientID,
	{Group: 0x0018, Element: 0x0015}: imaging.TagBodyPartExamined,
	{Group: 0x0018, Element: 0x0050}: imaging.TagSliceThickness,
	{Group: 0x0020, Element: 0x000D}: imaging.TagStudyInstanceUID,
	{Group: 0x0020, Element: 0x000E}: imaging.TagSeriesInstanceUID,
	{Group: 0x0020, Element: 0x0011}: imaging.TagSeriesNumber,
	{Group: 0x0020, Element: 0x0013}: imaging.TagInstanceNumber,
	{Group: 0x0020, Element: 0x0032}: imaging.TagImagePositionPatient,
	{Group: 0x0020, Element: 0x0037}: imaging.TagImageOrientationPatient,
	{Group: 0x0028, Element: 0x0010}: imaging.TagRows,
	{Group: 0x0028, Element: 0x0011}: imaging.TagColumns,
	{Group: 0x0028, Element: 0x0030}: imaging.TagPixelSpacing,
}

// Extractor decodes DICOM Part 10 files into Metadata. Pixel data is never
// loaded.
type Extractor struct {
	// MaxBytes rejects inputs larger than this when > 0.
	MaxBytes int64
}

func NewExtractor(maxBytes int64) *Extractor {
	return &Extractor{MaxBytes: maxBytes}
}

// Extract parses size bytes from r. The result is not validated; callers
// decide whether missing identifiers are fatal.
func (e *Extractor) Extract(r io.Reader, size int64) (Metadata, error) {
	if r == nil || size <= 0 {
		return nil, ErrEmptyInput
	}
	if e != nil && e.MaxBytes > 0 && size > e.MaxBytes {
		return nil, fmt.Errorf("dicomx: input of %d bytes exceeds limit of %d", size, e.MaxBytes)
	}
	p, err := dicom.NewParser(r, size, nil)
	if err != nil {
		return nil, fmt.Errorf("dicomx: open parser: %w", err)
	}
	ds, err := p.Parse(dicom.ParseOptions{DropPixelData: true})
	if err != nil {
		return nil, fmt.Errorf("dicomx: parse: %w", err)
	}
	return FromDataSet(ds), nil
}

// ExtractBytes is Extract over an in-memory file.
func (e *Extractor) ExtractBytes(raw []byte) (Metadata, error) {
	return e.Extract(bytes.NewReader(raw), int64(len(raw)))
}

// FromDataSet flattens the known attributes of ds. Multi-valued attributes
// are joined with a backslash, as they appear on the wire.
func FromDataSet(ds *dicom.DataSet) Metadata {
	md := Metadata{}
	if ds == nil {
		return md
	}
	for _, el := range ds.Elements {
		if el == nil {
			continue
		}
		kw, ok := keywords[el.Tag]
		if !ok {
			continue
		}
		if v := formatValues(el.Value); v != "" {
			md[kw] = v
		}
	}
	return md
}

func formatValues(values []interface{}) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		var s string
		switch x := v.(type) {
		case string:
			s = x
		case []byte:
			s = string(x)
		default:
			s = fmt.Sprint(x)
		}
		// Strings are padded to even length with spaces or NULs.
		s = strings.TrimRight(strings.TrimSpace(s), "\x00")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, `\`)
}
