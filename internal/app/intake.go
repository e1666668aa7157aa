package app

import (
	"context"
	"fmt"

	"github.com/yungbote/radflow-backend/internal/platform/kafkaintake"
	"github.com/yungbote/radflow-backend/internal/services"
)

// RunIntake consumes acquisition messages from Kafka until ctx is cancelled.
func (a *App) RunIntake(ctx context.Context) error {
	reader, err := kafkaintake.NewReader(a.Cfg.Kafka)
	if err != nil {
		return fmt.Errorf("init kafka reader: %w", err)
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			a.Log.Warn("Kafka reader close failed", "error", cerr)
		}
	}()

	worker := kafkaintake.NewWorker(a.Log, reader, intakeHandler(a.Services.Intake), kafkaintake.WorkerOptions{
		Retryable: services.IsRetryable,
	})
	a.Log.Info("Acquisition intake started", "topic", a.Cfg.Kafka.Topic, "group_id", a.Cfg.Kafka.GroupID)
	return worker.Run(ctx)
}

func intakeHandler(intake services.IntakeService) func(ctx context.Context, msg kafkaintake.Message) error {
	return func(ctx context.Context, msg kafkaintake.Message) error {
		_, err := intake.Accept(ctx, services.Acquisition{
			OrderID:      msg.OrderID,
			MachineID:    msg.MachineID,
			PatientID:    msg.PatientID,
			TechnicianID: msg.TechnicianID,
			Data:         msg.Data,
		})
		return err
	}
}
