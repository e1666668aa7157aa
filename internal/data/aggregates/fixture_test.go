package aggregates_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/radflow-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/radflow-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/radflow-backend/internal/data/repos"
	repotest "github.com/yungbote/radflow-backend/internal/data/repos/testutil"
	types "github.com/yungbote/radflow-backend/internal/domain"
	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
)

type ingestFixture struct {
	ctx      context.Context
	db       *gorm.DB
	repos    repos.Set
	clinical repotest.Clinical
	hooks    *aggtest.HooksRecorder
	gate     *aggregates.OrderValidationGate
	ingestor domainagg.HierarchyIngestor
}

func newIngestFixture(t *testing.T, runner aggregates.TxRunner) ingestFixture {
	t.Helper()
	ctx := context.Background()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	set := repos.NewSet(db, log)
	hooks := &aggtest.HooksRecorder{}

	base := aggregates.BaseDeps{DB: db, Log: log, Hooks: hooks, Runner: runner}
	gate := aggregates.NewOrderValidationGate(aggregates.OrderGateDeps{
		Base:       base,
		Orders:     set.Order,
		Modalities: set.Modality,
		Machines:   set.Machine,
	})
	return ingestFixture{
		ctx:      ctx,
		db:       db,
		repos:    set,
		clinical: repotest.SeedClinical(t, ctx, db, "CT"),
		hooks:    hooks,
		gate:     gate,
		ingestor: aggregates.NewHierarchyIngestor(aggregates.IngestionDeps{
			Base:      base,
			Gate:      gate,
			Studies:   set.Study,
			Series:    set.Series,
			Instances: set.Instance,
		}),
	}
}

// input builds an ingestion for the fixture's consistent order/machine/patient.
func (f ingestFixture) input(studyUID, seriesUID, sopUID string) domainagg.IngestInput {
	return domainagg.IngestInput{
		OrderID:                f.clinical.Order.ID,
		MachineID:              f.clinical.Machine.ID,
		PatientID:              f.clinical.PatientID,
		PerformingTechnicianID: uuid.New(),
		FilePath:               "studies/" + studyUID + "/" + seriesUID + "/" + sopUID + ".dcm",
		Metadata:               repotest.Metadata("CT", studyUID, seriesUID, sopUID),
	}
}

func uid(prefix string) string { return prefix + "." + uuid.NewString() }

func countRows(t *testing.T, db *gorm.DB, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func studyByUID(t *testing.T, f ingestFixture, studyUID string) *types.Study {
	t.Helper()
	var s types.Study
	if err := f.db.Where("study_instance_uid = ?", studyUID).Limit(1).Find(&s).Error; err != nil {
		t.Fatalf("load study: %v", err)
	}
	if s.ID == uuid.Nil {
		return nil
	}
	return &s
}
