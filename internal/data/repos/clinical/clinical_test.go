package clinical

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/radflow-backend/internal/data/repos/testutil"
	types "github.com/yungbote/radflow-backend/internal/domain"
	"github.com/yungbote/radflow-backend/internal/platform/dbctx"
)

func TestClinicalRepos(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)

	c := testutil.SeedClinical(t, ctx, tx, "CT")

	orders := NewOrderRepo(db, log)
	o, err := orders.GetByID(dbc, c.Order.ID)
	if err != nil || o == nil {
		t.Fatalf("Order.GetByID: err=%v row=%v", err, o)
	}
	if o.PatientID != c.PatientID {
		t.Fatalf("Order.GetByID: patient want=%s got=%s", c.PatientID, o.PatientID)
	}
	p, err := orders.GetProcedure(dbc, o.ProcedureID)
	if err != nil || p == nil || p.ModalityID != c.Modality.ID {
		t.Fatalf("GetProcedure: err=%v row=%v", err, p)
	}
	if missing, err := orders.GetByID(dbc, uuid.New()); err != nil || missing != nil {
		t.Fatalf("Order.GetByID(missing): err=%v row=%v", err, missing)
	}

	machines := NewMachineRepo(db, log)
	m, err := machines.GetByID(dbc, c.Machine.ID)
	if err != nil || m == nil {
		t.Fatalf("Machine.GetByID: err=%v row=%v", err, m)
	}
	if m.Modality == nil || m.Modality.ModalityCode != "CT" {
		t.Fatalf("Machine.GetByID: modality not preloaded: %+v", m.Modality)
	}

	// Soft-deleted rows are invisible.
	if err := tx.WithContext(ctx).Delete(&types.Modality{}, "id = ?", c.Modality.ID).Error; err != nil {
		t.Fatalf("soft delete modality: %v", err)
	}
	modalities := NewModalityRepo(db, log)
	if got, err := modalities.GetByID(dbc, c.Modality.ID); err != nil || got != nil {
		t.Fatalf("Modality.GetByID(deleted): err=%v row=%v", err, got)
	}
	m, err = machines.GetByID(dbc, c.Machine.ID)
	if err != nil || m == nil {
		t.Fatalf("Machine.GetByID after modality delete: err=%v row=%v", err, m)
	}
	if m.Modality != nil {
		t.Fatalf("Machine.GetByID: expected nil modality after soft delete")
	}
}
