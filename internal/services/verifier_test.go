package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/radflow-backend/internal/domain"
	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
)

func signedStudy(t *testing.T, s *stack) *types.Study {
	t.Helper()
	study := s.ingestStudy(t)
	if _, err := s.signoff.TechnicianVerify(s.ctx, study.ID, s.technician, stackPIN); err != nil {
		t.Fatalf("TechnicianVerify: %v", err)
	}
	if _, err := s.signoff.RadiologistApprove(s.ctx, study.ID, s.radiologist, stackPIN); err != nil {
		t.Fatalf("RadiologistApprove: %v", err)
	}
	return study
}

func TestVerifierAcceptsStoredSignature(t *testing.T) {
	s := newStack(t)
	study := signedStudy(t, s)

	res, err := s.verifier.Verify(s.ctx, study.ID, types.SignatureTypeTechnicianVerify)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Valid || res.UserID != s.technician || res.CertificateSerial == "" || res.SignedAt.IsZero() {
		t.Fatalf("result: %+v", res)
	}
}

func TestVerifierDetectsTamperedData(t *testing.T) {
	s := newStack(t)
	study := signedStudy(t, s)

	var sig types.StudySignature
	if err := s.db.Where("study_id = ? AND signature_type = ?", study.ID, types.SignatureTypeRadiologistApprove).First(&sig).Error; err != nil {
		t.Fatalf("load signature: %v", err)
	}
	tampered := []byte(sig.SignedData)
	tampered[len(tampered)/2] ^= 0x01
	if err := s.db.Model(&types.StudySignature{}).Where("id = ?", sig.ID).Update("signed_data", string(tampered)).Error; err != nil {
		t.Fatalf("tamper: %v", err)
	}

	res, err := s.verifier.Verify(s.ctx, study.ID, types.SignatureTypeRadiologistApprove)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Valid {
		t.Fatalf("tampered signature verified")
	}

	all, err := s.verifier.VerifyStudy(s.ctx, study.ID)
	if err != nil {
		t.Fatalf("VerifyStudy: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("VerifyStudy: want=2 got=%d", len(all))
	}
	valid := map[types.SignatureType]bool{}
	for _, r := range all {
		valid[r.SignatureType] = r.Valid
	}
	if !valid[types.SignatureTypeTechnicianVerify] || valid[types.SignatureTypeRadiologistApprove] {
		t.Fatalf("VerifyStudy validity: %v", valid)
	}
}

func TestVerifierUnusableKey(t *testing.T) {
	s := newStack(t)
	study := signedStudy(t, s)
	if err := s.db.Model(&types.StudySignature{}).
		Where("study_id = ? AND signature_type = ?", study.ID, types.SignatureTypeTechnicianVerify).
		Update("public_key", "not a key").Error; err != nil {
		t.Fatalf("corrupt key: %v", err)
	}
	res, err := s.verifier.Verify(s.ctx, study.ID, types.SignatureTypeTechnicianVerify)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Valid || res.Reason == "" {
		t.Fatalf("unusable key: %+v", res)
	}
}

func TestVerifierNotFound(t *testing.T) {
	s := newStack(t)
	study := s.ingestStudy(t)

	_, err := s.verifier.Verify(s.ctx, study.ID, types.SignatureTypeTechnicianVerify)
	if !errors.Is(err, domainagg.ErrSignatureNotFound) || !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unsigned study: want ErrSignatureNotFound got=%v", err)
	}
	if _, err := s.verifier.VerifyStudy(s.ctx, uuid.New()); !errors.Is(err, domainagg.ErrStudyNotFound) {
		t.Fatalf("unknown study: want ErrStudyNotFound got=%v", err)
	}
	res, err := s.verifier.VerifyStudy(s.ctx, study.ID)
	if err != nil || len(res) != 0 {
		t.Fatalf("unsigned study VerifyStudy: res=%v err=%v", res, err)
	}
}
