package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/radflow-backend/internal/app"
	"github.com/yungbote/radflow-backend/internal/platform/shutdown"
)

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Printf("failed to initialize intake: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start(ctx)
	if err := a.RunIntake(ctx); err != nil {
		a.Log.Error("Intake worker exited", "error", err)
		a.Close()
		os.Exit(1)
	}
}
