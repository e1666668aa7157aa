package signing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Payload is the canonical document a clinical signature covers. Field order
// is fixed by the struct, so encoding is deterministic.
type Payload struct {
	StudyID          uuid.UUID `json:"studyId"`
	StudyInstanceUID string    `json:"studyInstanceUid"`
	PatientID        uuid.UUID `json:"patientId"`
	StudyDate        string    `json:"studyDate"`
	SignatureType    string    `json:"signatureType"`
	Timestamp        string    `json:"timestamp"`
}

func NewPayload(studyID uuid.UUID, studyUID string, patientID uuid.UUID, studyDate *time.Time, signatureType string, at time.Time) Payload {
	p := Payload{
		StudyID:          studyID,
		StudyInstanceUID: studyUID,
		PatientID:        patientID,
		SignatureType:    signatureType,
		Timestamp:        at.UTC().Format(time.RFC3339Nano),
	}
	if studyDate != nil {
		p.StudyDate = studyDate.UTC().Format("2006-01-02")
	}
	return p
}

func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// ParsePayload decodes a payload previously produced by Marshal.
func ParsePayload(b []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return Payload{}, fmt.Errorf("decode signed payload: %w", err)
	}
	return p, nil
}

// SignedAt is the payload timestamp.
func (p Payload) SignedAt() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, p.Timestamp)
}

// IdempotencyKey identifies one sign-off attempt: the same user moving the
// same study out of the same status. It excludes the payload timestamp so a
// retried transition maps to the original remote signature.
func IdempotencyKey(studyID uuid.UUID, signatureType string, userID uuid.UUID, fromStatus string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		studyID.String(),
		signatureType,
		userID.String(),
		fromStatus,
	}, "|")))
	return hex.EncodeToString(sum[:])
}
