package warmup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step is one build-time preparation task, such as fetching the model or seeding the catalog.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Run executes steps in order and stops at the first failure; later steps never run.
func Run(ctx context.Context, logger *zap.Logger, steps ...Step) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("warm-up interrupted before %s: %w", step.Name, err)
		}

		start := time.Now()
		logger.Info("warm-up step started",
			zap.String("step", step.Name),
			zap.Int("index", i+1),
			zap.Int("total", len(steps)))

		if err := step.Run(ctx); err != nil {
			logger.Error("warm-up step failed", zap.String("step", step.Name), zap.Error(err))
			return fmt.Errorf("%s: %w", step.Name, err)
		}

		logger.Info("warm-up step finished",
			zap.String("step", step.Name),
			zap.Duration("elapsed", time.Since(start)))
	}
	return nil
}
