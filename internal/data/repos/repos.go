package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/radflow-backend/internal/data/repos/clinical"
	"github.com/yungbote/radflow-backend/internal/data/repos/imaging"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

type StudyRepo = imaging.StudyRepo
type SeriesRepo = imaging.SeriesRepo
type InstanceRepo = imaging.InstanceRepo
type StudySignatureRepo = imaging.StudySignatureRepo

type OrderRepo = clinical.OrderRepo
type ModalityRepo = clinical.ModalityRepo
type MachineRepo = clinical.MachineRepo

// Set bundles every table repo the service uses.
type Set struct {
	Study          StudyRepo
	Series         SeriesRepo
	Instance       InstanceRepo
	StudySignature StudySignatureRepo

	Order    OrderRepo
	Modality ModalityRepo
	Machine  MachineRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Study:          imaging.NewStudyRepo(db, log),
		Series:         imaging.NewSeriesRepo(db, log),
		Instance:       imaging.NewInstanceRepo(db, log),
		StudySignature: imaging.NewStudySignatureRepo(db, log),

		Order:    clinical.NewOrderRepo(db, log),
		Modality: clinical.NewModalityRepo(db, log),
		Machine:  clinical.NewMachineRepo(db, log),
	}
}
