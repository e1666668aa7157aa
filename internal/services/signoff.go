package services

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/radflow-backend/internal/domain"
	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
	"github.com/yungbote/radflow-backend/internal/observability"
	"github.com/yungbote/radflow-backend/internal/platform/events"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

type SignoffService interface {
	TechnicianVerify(ctx context.Context, studyID, userID uuid.UUID, pin string) (domainagg.SignoffResult, error)
	RadiologistApprove(ctx context.Context, studyID, userID uuid.UUID, pin string) (domainagg.SignoffResult, error)
}

type signoffService struct {
	log       *logger.Logger
	agg       domainagg.StudySignoffAggregate
	studies   StudyLookup
	publisher events.Publisher
	metrics   *observability.Metrics
}

// StudyLookup resolves the study UID for published events.
type StudyLookup interface {
	GetStudyUID(ctx context.Context, studyID uuid.UUID) (string, error)
}

func NewSignoffService(baseLog *logger.Logger, agg domainagg.StudySignoffAggregate, studies StudyLookup, publisher events.Publisher, metrics *observability.Metrics) SignoffService {
	return &signoffService{
		log:       baseLog.With("service", "SignoffService"),
		agg:       agg,
		studies:   studies,
		publisher: publisher,
		metrics:   metrics,
	}
}

func (s *signoffService) TechnicianVerify(ctx context.Context, studyID, userID uuid.UUID, pin string) (domainagg.SignoffResult, error) {
	return s.run(ctx, types.SignatureTypeTechnicianVerify, studyID, userID, pin, s.agg.TechnicianVerify)
}

func (s *signoffService) RadiologistApprove(ctx context.Context, studyID, userID uuid.UUID, pin string) (domainagg.SignoffResult, error) {
	return s.run(ctx, types.SignatureTypeRadiologistApprove, studyID, userID, pin, s.agg.RadiologistApprove)
}

func (s *signoffService) run(
	ctx context.Context,
	sigType types.SignatureType,
	studyID, userID uuid.UUID,
	pin string,
	fn func(context.Context, domainagg.SignoffInput) (domainagg.SignoffResult, error),
) (out domainagg.SignoffResult, err error) {
	ctx, span := observability.StartSpan(ctx, "signoff."+string(sigType),
		attribute.String("study_id", studyID.String()),
		attribute.String("signature_type", string(sigType)),
	)
	defer func() { observability.EndSpan(span, err) }()

	res, err := fn(ctx, domainagg.SignoffInput{StudyID: studyID, UserID: userID, PIN: pin})
	if err != nil {
		code := domainagg.CodeOf(err)
		s.metrics.IncSignoff(string(sigType), string(code))
		s.log.Warn("Sign-off failed", "signature_type", sigType, "study_id", studyID, "user_id", userID, "code", code, "error", err)
		return domainagg.SignoffResult{}, err
	}
	s.metrics.IncSignoff(string(sigType), "success")
	s.log.Info("Study signed", "signature_type", sigType, "study_id", studyID, "status", res.Status)

	ev := events.Event{
		Type:          events.TypeStatusChanged,
		StudyID:       res.StudyID,
		Status:        string(res.Status),
		SignatureType: string(res.SignatureType),
		OccurredAt:    res.SignedAt,
	}
	if s.studies != nil {
		if uid, lerr := s.studies.GetStudyUID(ctx, res.StudyID); lerr == nil {
			ev.StudyInstanceUID = uid
		}
	}
	publishEvent(ctx, s.log, s.publisher, s.metrics, ev)
	return res, nil
}
