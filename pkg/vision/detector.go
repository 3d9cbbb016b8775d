package vision

import "go.uber.org/zap"

type DetectorConfig struct {
	ModelPath     string
	InputSize     int
	Confidence    float64
	IoU           float64
	MaxImageBytes int
}

func (c *DetectorConfig) applyDefaults() {
	if c.ModelPath == "" {
		c.ModelPath = "models/yolov8n.onnx"
	}
	if c.InputSize == 0 {
		c.InputSize = 640
	}
	if c.Confidence == 0 {
		c.Confidence = 0.25
	}
	if c.IoU == 0 {
		c.IoU = 0.7
	}
	if c.MaxImageBytes == 0 {
		c.MaxImageBytes = 10 * 1024 * 1024
	}
}

func newLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named("vision")
}
