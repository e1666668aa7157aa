package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/radflow-backend/internal/data/repos"
	types "github.com/yungbote/radflow-backend/internal/domain"
	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
	"github.com/yungbote/radflow-backend/internal/platform/dbctx"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

type StudyQueryService interface {
	StudyLookup
	// GetStudy returns the study with series, instances and signatures.
	GetStudy(ctx context.Context, studyID uuid.UUID) (*types.Study, error)
}

type studyQueryService struct {
	log     *logger.Logger
	studies repos.StudyRepo
}

func NewStudyQueryService(baseLog *logger.Logger, studies repos.StudyRepo) StudyQueryService {
	return &studyQueryService{
		log:     baseLog.With("service", "StudyQueryService"),
		studies: studies,
	}
}

func (s *studyQueryService) GetStudy(ctx context.Context, studyID uuid.UUID) (*types.Study, error) {
	const op = "services.study.get"
	study, err := s.studies.GetWithHierarchy(dbctx.Context{Ctx: ctx}, studyID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if study == nil {
		return nil, domainagg.Fail(domainagg.CodeNotFound, op, domainagg.ErrStudyNotFound, studyID.String())
	}
	return study, nil
}

func (s *studyQueryService) GetStudyUID(ctx context.Context, studyID uuid.UUID) (string, error) {
	study, err := s.studies.GetByID(dbctx.Context{Ctx: ctx}, studyID)
	if err != nil {
		return "", err
	}
	if study == nil {
		return "", domainagg.Fail(domainagg.CodeNotFound, "services.study.uid", domainagg.ErrStudyNotFound, studyID.String())
	}
	return study.StudyInstanceUID, nil
}
