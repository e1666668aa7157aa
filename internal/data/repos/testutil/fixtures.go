package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/radflow-backend/internal/domain"
	"github.com/yungbote/radflow-backend/internal/domain/imaging"
)

func SeedModality(tb testing.TB, ctx context.Context, tx *gorm.DB, code string) *types.Modality {
	tb.Helper()
	m := &types.Modality{
		ID:           uuid.New(),
		ModalityCode: code,
		Name:         code + " modality",
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed modality: %v", err)
	}
	return m
}

func SeedMachine(tb testing.TB, ctx context.Context, tx *gorm.DB, modalityID uuid.UUID) *types.Machine {
	tb.Helper()
	m := &types.Machine{
		ID:         uuid.New(),
		Name:       "scanner",
		ModalityID: modalityID,
		AETitle:    "SCANNER1",
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed machine: %v", err)
	}
	return m
}

func SeedOrder(tb testing.TB, ctx context.Context, tx *gorm.DB, modalityID, patientID uuid.UUID) *types.Order {
	tb.Helper()
	p := &types.Procedure{
		ID:         uuid.New(),
		Name:       "procedure",
		ModalityID: modalityID,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed procedure: %v", err)
	}
	o := &types.Order{
		ID:                  uuid.New(),
		PatientID:           patientID,
		ProcedureID:         p.ID,
		OrderingPhysicianID: PtrUUID(uuid.New()),
	}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed order: %v", err)
	}
	o.Procedure = p
	return o
}

// Clinical is a consistent order/machine/patient triple for one modality.
type Clinical struct {
	Modality  *types.Modality
	Machine   *types.Machine
	Order     *types.Order
	PatientID uuid.UUID
}

func SeedClinical(tb testing.TB, ctx context.Context, tx *gorm.DB, code string) Clinical {
	tb.Helper()
	mod := SeedModality(tb, ctx, tx, code)
	patientID := uuid.New()
	return Clinical{
		Modality:  mod,
		Machine:   SeedMachine(tb, ctx, tx, mod.ID),
		Order:     SeedOrder(tb, ctx, tx, mod.ID, patientID),
		PatientID: patientID,
	}
}

func SeedStudy(tb testing.TB, ctx context.Context, tx *gorm.DB, c Clinical, studyUID string) *types.Study {
	tb.Helper()
	s := &types.Study{
		ID:                uuid.New(),
		StudyInstanceUID:  studyUID,
		PatientID:         c.PatientID,
		OrderID:           c.Order.ID,
		ModalityMachineID: c.Machine.ID,
		Status:            imaging.StudyStatusScanned,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed study: %v", err)
	}
	return s
}

// Metadata returns a minimal valid metadata map.
func Metadata(modality, studyUID, seriesUID, sopUID string) types.Metadata {
	return types.Metadata{
		imaging.TagModality:          modality,
		imaging.TagStudyInstanceUID:  studyUID,
		imaging.TagSeriesInstanceUID: seriesUID,
		imaging.TagSOPInstanceUID:    sopUID,
		imaging.TagSOPClassUID:       "1.2.840.10008.5.1.4.1.1.2",
		imaging.TagStudyDate:         "20240131",
		imaging.TagStudyDescription:  "CHEST",
		imaging.TagRows:              "512",
		imaging.TagColumns:           "512",
	}
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }
