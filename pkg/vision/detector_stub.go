//go:build !gocv
// +build !gocv

package vision

import (
	"context"

	"go.uber.org/zap"

	"github.com/xhad/vision-sync/internal/models"
)

// Detector is a placeholder used when the binary is built without OpenCV.
type Detector struct {
	config DetectorConfig
	logger *zap.Logger
}

func NewDetector(config DetectorConfig, logger *zap.Logger) *Detector {
	config.applyDefaults()
	return &Detector{config: config, logger: newLogger(logger)}
}

// Detect enforces the size limit and then reports that detection is unavailable.
func (d *Detector) Detect(ctx context.Context, data []byte) ([]models.DetectedObject, string, error) {
	if err := CheckSize(data, d.config.MaxImageBytes); err != nil {
		return nil, "", err
	}
	return nil, "", ErrUnavailable
}

func (d *Detector) Close() error {
	return nil
}
