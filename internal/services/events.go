package services

import (
	"context"
	"time"

	"github.com/yungbote/radflow-backend/internal/observability"
	"github.com/yungbote/radflow-backend/internal/platform/events"
	"github.com/yungbote/radflow-backend/internal/platform/logger"
)

const publishTimeout = 5 * time.Second

// publishEvent runs after commit. A failure is logged and never returned:
// the write it describes has already happened.
func publishEvent(ctx context.Context, log *logger.Logger, pub events.Publisher, metrics *observability.Metrics, ev events.Event) {
	if pub == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := pub.Publish(pctx, ev); err != nil {
		metrics.IncEventPublished(ev.Type, "error")
		log.Warn("Event publish failed", "type", ev.Type, "study_id", ev.StudyID, "error", err)
		return
	}
	metrics.IncEventPublished(ev.Type, "ok")
}
