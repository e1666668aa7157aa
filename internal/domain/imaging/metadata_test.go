package imaging

import (
	"strings"
	"testing"
)

func TestMetadataValidate(t *testing.T) {
	md := Metadata{
		TagModality:          "ct",
		TagStudyInstanceUID:  "1.2.3",
		TagSeriesInstanceUID: "1.2.3.4",
		TagSOPInstanceUID:    "1.2.3.4.5",
	}
	if err := md.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := md.Modality(); got != "CT" {
		t.Fatalf("Modality: want=CT got=%q", got)
	}

	delete(md, TagSeriesInstanceUID)
	md[TagSOPInstanceUID] = "  "
	err := md.Validate()
	if err == nil {
		t.Fatalf("Validate: expected error")
	}
	if !strings.Contains(err.Error(), TagSeriesInstanceUID) || !strings.Contains(err.Error(), TagSOPInstanceUID) {
		t.Fatalf("Validate: unexpected message %q", err.Error())
	}
}

func TestMetadataStudyDate(t *testing.T) {
	cases := map[string]bool{
		"20240131":   true,
		"2024.01.31": true,
		"2024-01-31": true,
		"":           false,
		"31/01/2024": false,
	}
	for raw, ok := range cases {
		got := Metadata{TagStudyDate: raw}.StudyDate()
		if (got != nil) != ok {
			t.Fatalf("StudyDate(%q): want ok=%v got=%v", raw, ok, got)
		}
		if got != nil && (got.Year() != 2024 || got.Month() != 1 || got.Day() != 31) {
			t.Fatalf("StudyDate(%q): got=%v", raw, got)
		}
	}
}

func TestParseSignatureType(t *testing.T) {
	if st, ok := ParseSignatureType(" technician_verify "); !ok || st != SignatureTypeTechnicianVerify {
		t.Fatalf("ParseSignatureType: got=%q ok=%v", st, ok)
	}
	if _, ok := ParseSignatureType("cosign"); ok {
		t.Fatalf("ParseSignatureType: expected unknown type to fail")
	}
}
