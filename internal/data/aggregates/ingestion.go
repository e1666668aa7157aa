package aggregates

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/radflow-backend/internal/data/repos"
	types "github.com/yungbote/radflow-backend/internal/domain"
	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
	"github.com/yungbote/radflow-backend/internal/domain/imaging"
	"github.com/yungbote/radflow-backend/internal/platform/dbctx"
)

type IngestionDeps struct {
	Base      BaseDeps
	Gate      *OrderValidationGate
	Studies   repos.StudyRepo
	Series    repos.SeriesRepo
	Instances repos.InstanceRepo
}

type hierarchyIngestor struct {
	deps IngestionDeps
}

func NewHierarchyIngestor(deps IngestionDeps) domainagg.HierarchyIngestor {
	deps.Base = deps.Base.withDefaults()
	return &hierarchyIngestor{deps: deps}
}

func (a *hierarchyIngestor) Contract() domainagg.Contract {
	return domainagg.HierarchyIngestorContract
}

// Ingest validates the order chain and then creates or extends the
// study/series/instance rows in one transaction. The study row is locked
// before any counter is read, so concurrent ingestions into one study
// serialize on it and counters advance by exactly one per call.
func (a *hierarchyIngestor) Ingest(ctx context.Context, in domainagg.IngestInput) (domainagg.IngestResult, error) {
	const op = "imaging.hierarchy.ingest"
	if err := in.Metadata.Validate(); err != nil {
		return domainagg.IngestResult{}, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}
	if strings.TrimSpace(in.FilePath) == "" {
		return domainagg.IngestResult{}, domainagg.NewError(domainagg.CodeValidation, op, "file_path is required", nil)
	}

	var out domainagg.IngestResult
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		res, err := a.ingestTx(dbc, op, in)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return domainagg.IngestResult{}, err
	}
	return out, nil
}

func (a *hierarchyIngestor) ingestTx(dbc dbctx.Context, op string, in domainagg.IngestInput) (domainagg.IngestResult, error) {
	md := in.Metadata
	gate, err := a.deps.Gate.Check(dbc, domainagg.ValidateOrderInput{
		OrderID:   in.OrderID,
		MachineID: in.MachineID,
		PatientID: in.PatientID,
		Metadata:  md,
	})
	if err != nil {
		return domainagg.IngestResult{}, err
	}

	exists, err := a.deps.Instances.ExistsBySOPUID(dbc, md.SOPInstanceUID())
	if err != nil {
		return domainagg.IngestResult{}, err
	}
	if exists {
		return domainagg.IngestResult{}, domainagg.Fail(domainagg.CodeConflict, op, domainagg.ErrDuplicateInstance, md.SOPInstanceUID())
	}

	study, studyCreated, err := a.resolveStudy(dbc, op, in, gate)
	if err != nil {
		return domainagg.IngestResult{}, err
	}

	series, err := a.deps.Series.LockByUID(dbc, md.SeriesInstanceUID())
	if err != nil {
		return domainagg.IngestResult{}, err
	}

	if series == nil {
		deleted, err := a.deps.Series.GetDeletedByUID(dbc, md.SeriesInstanceUID())
		if err != nil {
			return domainagg.IngestResult{}, err
		}
		if deleted != nil {
			return domainagg.IngestResult{}, domainagg.Fail(domainagg.CodeConflict, op, domainagg.ErrSeriesDeleted, md.SeriesInstanceUID())
		}
	}

	seriesCreated := series == nil
	instanceNumber := 0
	if seriesCreated {
		seriesNumber, err := a.deps.Studies.IncrementSeriesCount(dbc, study.ID)
		if err != nil {
			return domainagg.IngestResult{}, err
		}
		series, err = a.deps.Series.Create(dbc, &types.Series{
			ID:                uuid.New(),
			SeriesInstanceUID: md.SeriesInstanceUID(),
			StudyID:           study.ID,
			SeriesNumber:      seriesNumber,
			NumberOfInstances: 1,
			Modality:          md.Modality(),
			SeriesDescription: md.Get(imaging.TagSeriesDescription),
			BodyPartExamined:  md.Get(imaging.TagBodyPartExamined),
		})
		if err != nil {
			switch {
			case uniqueViolationOn(err, "series_number"):
				return domainagg.IngestResult{}, InvariantError(fmt.Sprintf("series_number %d already taken in study %s", seriesNumber, study.ID))
			case uniqueViolationOn(err, "series_instance_uid"):
				return domainagg.IngestResult{}, RetryableError("series " + md.SeriesInstanceUID() + " created concurrently under another study")
			}
			return domainagg.IngestResult{}, err
		}
		instanceNumber = 1
	} else {
		if series.StudyID != study.ID {
			return domainagg.IngestResult{}, domainagg.Fail(domainagg.CodeMismatch, op, domainagg.ErrSeriesStudyMismatch, md.SeriesInstanceUID())
		}
		instanceNumber, err = a.deps.Series.IncrementInstanceCount(dbc, series.ID)
		if err != nil {
			return domainagg.IngestResult{}, err
		}
	}

	attrs, err := json.Marshal(md)
	if err != nil {
		return domainagg.IngestResult{}, err
	}
	instance, err := a.deps.Instances.Create(dbc, &types.Instance{
		ID:                      uuid.New(),
		SOPInstanceUID:          md.SOPInstanceUID(),
		SOPClassUID:             md.SOPClassUID(),
		SeriesID:                series.ID,
		InstanceNumber:          instanceNumber,
		FilePath:                strings.TrimSpace(in.FilePath),
		Rows:                    md.Int(imaging.TagRows),
		Columns:                 md.Int(imaging.TagColumns),
		PixelSpacing:            md.Get(imaging.TagPixelSpacing),
		SliceThickness:          md.Float(imaging.TagSliceThickness),
		ImagePositionPatient:    md.Get(imaging.TagImagePositionPatient),
		ImageOrientationPatient: md.Get(imaging.TagImageOrientationPatient),
		Attributes:              datatypes.JSON(attrs),
	})
	if err != nil {
		switch {
		case uniqueViolationOn(err, "sop_instance_uid"):
			return domainagg.IngestResult{}, domainagg.Fail(domainagg.CodeConflict, op, domainagg.ErrDuplicateInstance, md.SOPInstanceUID())
		case uniqueViolationOn(err, "instance_number"):
			return domainagg.IngestResult{}, InvariantError(fmt.Sprintf("instance_number %d already taken in series %s", instanceNumber, series.ID))
		}
		return domainagg.IngestResult{}, err
	}

	// Re-read the counters as committed by this transaction.
	study, err = a.deps.Studies.GetByID(dbc, study.ID)
	if err != nil {
		return domainagg.IngestResult{}, err
	}
	if study == nil {
		return domainagg.IngestResult{}, InvariantError("study vanished during ingestion")
	}
	series, err = a.deps.Series.GetByID(dbc, series.ID)
	if err != nil {
		return domainagg.IngestResult{}, err
	}
	if series == nil {
		return domainagg.IngestResult{}, InvariantError("series vanished during ingestion")
	}
	if series.NumberOfInstances != instance.InstanceNumber {
		return domainagg.IngestResult{}, InvariantError(fmt.Sprintf(
			"series %s number_of_instances=%d but assigned instance_number=%d",
			series.ID, series.NumberOfInstances, instance.InstanceNumber))
	}
	if study.NumberOfSeries < series.SeriesNumber {
		return domainagg.IngestResult{}, InvariantError(fmt.Sprintf(
			"study %s number_of_series=%d below series_number=%d",
			study.ID, study.NumberOfSeries, series.SeriesNumber))
	}

	return domainagg.IngestResult{
		Study:         study,
		Series:        series,
		Instance:      instance,
		StudyCreated:  studyCreated,
		SeriesCreated: seriesCreated,
	}, nil
}

// resolveStudy inserts the study if absent and returns it locked. An existing
// study must belong to the same order and patient.
func (a *hierarchyIngestor) resolveStudy(dbc dbctx.Context, op string, in domainagg.IngestInput, gate domainagg.ValidateOrderResult) (*types.Study, bool, error) {
	md := in.Metadata
	candidate := &types.Study{
		ID:                uuid.New(),
		StudyInstanceUID:  md.StudyInstanceUID(),
		PatientID:         in.PatientID,
		OrderID:           gate.Order.ID,
		ModalityMachineID: gate.Machine.ID,
		NumberOfSeries:    0,
		Status:            imaging.StudyStatusScanned,
		StudyDate:         md.StudyDate(),
		StudyTime:         md.Get(imaging.TagStudyTime),
		StudyDescription:  md.Get(imaging.TagStudyDescription),
		AccessionNumber:   md.Get(imaging.TagAccessionNumber),
	}
	if gate.Order.OrderingPhysicianID != nil {
		id := *gate.Order.OrderingPhysicianID
		candidate.ReferringPhysicianID = &id
	}
	if in.PerformingTechnicianID != uuid.Nil {
		id := in.PerformingTechnicianID
		candidate.PerformingTechnicianID = &id
	}

	created, err := a.deps.Studies.CreateIfAbsent(dbc, candidate)
	if err != nil {
		return nil, false, err
	}
	study, err := a.deps.Studies.LockByUID(dbc, md.StudyInstanceUID())
	if err != nil {
		return nil, false, err
	}
	if study == nil {
		deleted, err := a.deps.Studies.GetDeletedByUID(dbc, md.StudyInstanceUID())
		if err != nil {
			return nil, false, err
		}
		if deleted != nil {
			return nil, false, domainagg.Fail(domainagg.CodeConflict, op, domainagg.ErrStudyDeleted, md.StudyInstanceUID())
		}
		return nil, false, InvariantError("study missing after insert for " + md.StudyInstanceUID())
	}
	if created && study.ID != candidate.ID {
		return nil, false, InvariantError("study insert reported created but a different row was found")
	}
	if !created && (study.OrderID != in.OrderID || study.PatientID != in.PatientID) {
		return nil, false, domainagg.Fail(domainagg.CodeMismatch, op, domainagg.ErrStudyOrderMismatch, md.StudyInstanceUID())
	}
	return study, created, nil
}
