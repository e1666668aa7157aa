package aggregates_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/radflow-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/radflow-backend/internal/data/aggregates/testutil"
	repotest "github.com/yungbote/radflow-backend/internal/data/repos/testutil"
	types "github.com/yungbote/radflow-backend/internal/domain"
	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
	"github.com/yungbote/radflow-backend/internal/platform/dbctx"
	"github.com/yungbote/radflow-backend/internal/signing"
)

type signoffFixture struct {
	ingestFixture
	signer      *signing.LocalSigner
	technician  uuid.UUID
	radiologist uuid.UUID
	study       *types.Study
}

const testPIN = "2468"

func newSignoffFixture(t *testing.T, signer signing.Signer, timeout time.Duration) (signoffFixture, domainagg.StudySignoffAggregate) {
	t.Helper()
	f := newIngestFixture(t, nil)
	local := signing.NewLocalSigner().WithBcryptCost(bcrypt.MinCost)
	tech, rad := uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{tech, rad} {
		if _, err := local.Provision(id, testPIN); err != nil {
			t.Fatalf("Provision: %v", err)
		}
	}
	if signer == nil {
		signer = local
	}
	res, err := f.ingestor.Ingest(f.ctx, f.input(uid("T"), uid("S"), uid("SOP")))
	if err != nil {
		t.Fatalf("seed ingest: %v", err)
	}
	agg := aggregates.NewStudySignoffAggregate(aggregates.SignoffDeps{
		Base:        aggregates.BaseDeps{DB: f.db, Log: repotest.Logger(t), Hooks: f.hooks},
		Studies:     f.repos.Study,
		Signatures:  f.repos.StudySignature,
		Signer:      signer,
		SignTimeout: timeout,
	})
	return signoffFixture{
		ingestFixture: f,
		signer:        local,
		technician:    tech,
		radiologist:   rad,
		study:         res.Study,
	}, agg
}

func (f signoffFixture) status(t *testing.T) types.StudyStatus {
	t.Helper()
	s, err := f.repos.Study.GetByID(dbctx.Context{Ctx: f.ctx}, f.study.ID)
	if err != nil || s == nil {
		t.Fatalf("reload study: err=%v", err)
	}
	return s.Status
}

func (f signoffFixture) signatureCount(t *testing.T) int64 {
	return countRows(t, f.db, &types.StudySignature{}, "study_id = ?", f.study.ID)
}

func TestSignoffVerifyThenApprove(t *testing.T) {
	f, agg := newSignoffFixture(t, nil, 0)

	verified, err := agg.TechnicianVerify(f.ctx, domainagg.SignoffInput{StudyID: f.study.ID, UserID: f.technician, PIN: testPIN})
	if err != nil {
		t.Fatalf("TechnicianVerify: %v", err)
	}
	if verified.Status != types.StudyStatusTechnicianVerified || verified.SignatureType != types.SignatureTypeTechnicianVerify {
		t.Fatalf("TechnicianVerify result: %+v", verified)
	}
	if got := f.status(t); got != types.StudyStatusTechnicianVerified {
		t.Fatalf("status after verify: want=%s got=%s", types.StudyStatusTechnicianVerified, got)
	}

	approved, err := agg.RadiologistApprove(f.ctx, domainagg.SignoffInput{StudyID: f.study.ID, UserID: f.radiologist, PIN: testPIN})
	if err != nil {
		t.Fatalf("RadiologistApprove: %v", err)
	}
	if approved.Status != types.StudyStatusApproved {
		t.Fatalf("RadiologistApprove status: %s", approved.Status)
	}

	study, err := f.repos.Study.GetWithHierarchy(dbctx.Context{Ctx: f.ctx}, f.study.ID)
	if err != nil || study == nil {
		t.Fatalf("GetWithHierarchy: err=%v", err)
	}
	if study.Status != types.StudyStatusApproved {
		t.Fatalf("status: want=APPROVED got=%s", study.Status)
	}
	if study.PerformingTechnicianID == nil || *study.PerformingTechnicianID != f.technician {
		t.Fatalf("performing technician not recorded")
	}
	if study.VerifyingRadiologistID == nil || *study.VerifyingRadiologistID != f.radiologist {
		t.Fatalf("verifying radiologist not recorded")
	}
	if len(study.Signatures) != 2 {
		t.Fatalf("signatures: want=2 got=%d", len(study.Signatures))
	}
	for _, sig := range study.Signatures {
		ok, err := signing.Verify(sig.Algorithm, sig.PublicKey, []byte(sig.SignedData), sig.SignatureValue)
		if err != nil || !ok {
			t.Fatalf("stored %s signature does not verify: ok=%v err=%v", sig.SignatureType, ok, err)
		}
		if sig.CertificateSerial == "" || sig.RemoteSignatureID == "" {
			t.Fatalf("signature key info missing: %+v", sig)
		}
		ok, err = signing.Verify(sig.Algorithm, sig.PublicKey, []byte(sig.SignedData+" "), sig.SignatureValue)
		if err != nil || ok {
			t.Fatalf("tampered data verified: ok=%v err=%v", ok, err)
		}
	}
}

func TestSignoffRejectsSecondSignature(t *testing.T) {
	f, agg := newSignoffFixture(t, nil, 0)
	in := domainagg.SignoffInput{StudyID: f.study.ID, UserID: f.technician, PIN: testPIN}
	if _, err := agg.TechnicianVerify(f.ctx, in); err != nil {
		t.Fatalf("first verify: %v", err)
	}

	_, err := agg.TechnicianVerify(f.ctx, in)
	if !errors.Is(err, domainagg.ErrAlreadySigned) {
		t.Fatalf("second verify: want ErrAlreadySigned got=%v", err)
	}
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("code: want=conflict got=%s", domainagg.CodeOf(err))
	}
	if got := f.status(t); got != types.StudyStatusTechnicianVerified {
		t.Fatalf("status changed: %s", got)
	}
	if n := f.signatureCount(t); n != 1 {
		t.Fatalf("signatures: want=1 got=%d", n)
	}
}

func TestSignoffApproveBeforeVerify(t *testing.T) {
	f, agg := newSignoffFixture(t, nil, 0)

	_, err := agg.RadiologistApprove(f.ctx, domainagg.SignoffInput{StudyID: f.study.ID, UserID: f.radiologist, PIN: testPIN})
	if !errors.Is(err, domainagg.ErrInvalidStateTransition) {
		t.Fatalf("want ErrInvalidStateTransition got=%v", err)
	}
	if got := f.status(t); got != types.StudyStatusScanned {
		t.Fatalf("status: want=SCANNED got=%s", got)
	}
	if n := f.signatureCount(t); n != 0 {
		t.Fatalf("signatures: want=0 got=%d", n)
	}
}

func TestSignoffSignerFailuresRollBack(t *testing.T) {
	cases := []struct {
		name    string
		signer  signing.Signer
		pin     string
		reason  error
		code    domainagg.ErrorCode
		timeout time.Duration
	}{
		{name: "wrong pin", pin: "0000", reason: domainagg.ErrAuthenticationFailed, code: domainagg.CodeUnauthenticated},
		{name: "no key", signer: failingSigner{signErr: signing.ErrKeyNotFound}, pin: testPIN, reason: domainagg.ErrSigningKeyNotProvisioned, code: domainagg.CodePreconditionFailed},
		{name: "unavailable", signer: failingSigner{signErr: signing.ErrUnavailable}, pin: testPIN, reason: domainagg.ErrSigningFailed, code: domainagg.CodeRetryable},
		{name: "key lookup fails", signer: failingSigner{getErr: &signing.HTTPError{StatusCode: 503}}, pin: testPIN, reason: domainagg.ErrSigningFailed, code: domainagg.CodeRetryable},
		{name: "timeout", signer: failingSigner{block: true}, pin: testPIN, reason: domainagg.ErrSigningFailed, code: domainagg.CodeRetryable, timeout: 20 * time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, agg := newSignoffFixture(t, tc.signer, tc.timeout)

			_, err := agg.TechnicianVerify(f.ctx, domainagg.SignoffInput{StudyID: f.study.ID, UserID: f.technician, PIN: tc.pin})
			if !errors.Is(err, tc.reason) {
				t.Fatalf("want %v got=%v", tc.reason, err)
			}
			if !domainagg.IsCode(err, tc.code) {
				t.Fatalf("code: want=%s got=%s", tc.code, domainagg.CodeOf(err))
			}
			if got := f.status(t); got != types.StudyStatusScanned {
				t.Fatalf("status: want=SCANNED got=%s", got)
			}
			if n := f.signatureCount(t); n != 0 {
				t.Fatalf("signatures: want=0 got=%d", n)
			}
		})
	}
}

func TestSignoffUnknownUserKey(t *testing.T) {
	f, agg := newSignoffFixture(t, nil, 0)
	_, err := agg.TechnicianVerify(f.ctx, domainagg.SignoffInput{StudyID: f.study.ID, UserID: uuid.New(), PIN: testPIN})
	if !errors.Is(err, domainagg.ErrSigningKeyNotProvisioned) {
		t.Fatalf("want ErrSigningKeyNotProvisioned got=%v", err)
	}
}

func TestSignoffStudyNotFound(t *testing.T) {
	f, agg := newSignoffFixture(t, nil, 0)
	_, err := agg.TechnicianVerify(f.ctx, domainagg.SignoffInput{StudyID: uuid.New(), UserID: f.technician, PIN: testPIN})
	if !errors.Is(err, domainagg.ErrStudyNotFound) || !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("want ErrStudyNotFound got=%v", err)
	}
}

func TestSignoffValidatesInput(t *testing.T) {
	f, agg := newSignoffFixture(t, nil, 0)
	for _, in := range []domainagg.SignoffInput{
		{UserID: f.technician, PIN: testPIN},
		{StudyID: f.study.ID, PIN: testPIN},
		{StudyID: f.study.ID, UserID: f.technician, PIN: "  "},
	} {
		if _, err := agg.TechnicianVerify(f.ctx, in); !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("input %+v: want validation got=%v", in, err)
		}
	}
}

func TestSignoffCommitFailureLeavesNoSignature(t *testing.T) {
	f, _ := newSignoffFixture(t, nil, 0)
	runner := &aggtest.InjectedTxRunner{
		Inner:      aggregates.NewGormTxRunner(f.db),
		FailCommit: errors.New("commit lost"),
	}
	agg := aggregates.NewStudySignoffAggregate(aggregates.SignoffDeps{
		Base:       aggregates.BaseDeps{DB: f.db, Runner: runner},
		Studies:    f.repos.Study,
		Signatures: f.repos.StudySignature,
		Signer:     f.signer,
	})

	if _, err := agg.TechnicianVerify(f.ctx, domainagg.SignoffInput{StudyID: f.study.ID, UserID: f.technician, PIN: testPIN}); err == nil {
		t.Fatalf("expected commit failure")
	}
	if got := f.status(t); got != types.StudyStatusScanned {
		t.Fatalf("status: want=SCANNED got=%s", got)
	}
	if n := f.signatureCount(t); n != 0 {
		t.Fatalf("signatures: want=0 got=%d", n)
	}
}

func TestSignoffRetryAfterLostCommitReusesRemoteSignature(t *testing.T) {
	f, _ := newSignoffFixture(t, nil, 0)
	rec := &recordingSigner{inner: f.signer}
	first := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	deps := func(runner aggregates.TxRunner, at time.Time) aggregates.SignoffDeps {
		return aggregates.SignoffDeps{
			Base:       aggregates.BaseDeps{DB: f.db, Runner: runner},
			Studies:    f.repos.Study,
			Signatures: f.repos.StudySignature,
			Signer:     rec,
			Now:        func() time.Time { return at },
		}
	}
	lost := &aggtest.InjectedTxRunner{Inner: aggregates.NewGormTxRunner(f.db), FailCommit: errors.New("commit lost")}
	in := domainagg.SignoffInput{StudyID: f.study.ID, UserID: f.technician, PIN: testPIN}

	if _, err := aggregates.NewStudySignoffAggregate(deps(lost, first)).TechnicianVerify(f.ctx, in); err == nil {
		t.Fatalf("expected commit failure")
	}
	res, err := aggregates.NewStudySignoffAggregate(deps(aggregates.NewGormTxRunner(f.db), first.Add(time.Minute))).TechnicianVerify(f.ctx, in)
	if err != nil {
		t.Fatalf("TechnicianVerify(retry): %v", err)
	}

	if len(rec.keys) != 2 || rec.keys[0] != rec.keys[1] {
		t.Fatalf("idempotency keys: want two equal got=%v", rec.keys)
	}
	if len(rec.ids) != 2 || rec.ids[0] != rec.ids[1] {
		t.Fatalf("remote signature ids: want two equal got=%v", rec.ids)
	}
	if !res.SignedAt.Equal(first) {
		t.Fatalf("SignedAt: want=%v got=%v", first, res.SignedAt)
	}

	sig, err := f.repos.StudySignature.GetByStudyAndType(dbctx.Context{Ctx: f.ctx}, f.study.ID, types.SignatureTypeTechnicianVerify)
	if err != nil || sig == nil {
		t.Fatalf("GetByStudyAndType: sig=%v err=%v", sig, err)
	}
	if sig.RemoteSignatureID != rec.ids[0] {
		t.Fatalf("RemoteSignatureID: want=%s got=%s", rec.ids[0], sig.RemoteSignatureID)
	}
	ok, err := signing.Verify(sig.Algorithm, sig.PublicKey, []byte(sig.SignedData), sig.SignatureValue)
	if err != nil || !ok {
		t.Fatalf("replayed signature does not verify against stored data: ok=%v err=%v", ok, err)
	}
	if n := f.signatureCount(t); n != 1 {
		t.Fatalf("signatures: want=1 got=%d", n)
	}
}

// recordingSigner records the idempotency key and returned signature id of
// every Sign call.
type recordingSigner struct {
	inner signing.Signer
	keys  []string
	ids   []string
}

func (s *recordingSigner) Sign(ctx context.Context, req signing.SignRequest) (signing.SignResult, error) {
	res, err := s.inner.Sign(ctx, req)
	s.keys = append(s.keys, req.IdempotencyKey)
	if err == nil {
		s.ids = append(s.ids, res.SignatureID)
	}
	return res, err
}

func (s *recordingSigner) GetSignature(ctx context.Context, signatureID string) (signing.KeyInfo, error) {
	return s.inner.GetSignature(ctx, signatureID)
}

// failingSigner fails Sign or GetSignature with a fixed error, or blocks
// until the context ends.
type failingSigner struct {
	signErr error
	getErr  error
	block   bool
}

func (s failingSigner) Sign(ctx context.Context, req signing.SignRequest) (signing.SignResult, error) {
	if s.block {
		<-ctx.Done()
		return signing.SignResult{}, ctx.Err()
	}
	if s.signErr != nil {
		return signing.SignResult{}, s.signErr
	}
	return signing.SignResult{SignatureID: "sig-1", Signature: "AAAA", PublicKey: "pem"}, nil
}

func (s failingSigner) GetSignature(ctx context.Context, signatureID string) (signing.KeyInfo, error) {
	if s.getErr != nil {
		return signing.KeyInfo{}, s.getErr
	}
	return signing.KeyInfo{CertificateSerial: "01", Algorithm: signing.AlgEd25519}, nil
}
