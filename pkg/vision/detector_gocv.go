//go:build gocv
// +build gocv

package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"sync"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/xhad/vision-sync/internal/models"
)

var (
	boxColor  = color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 255}
	textColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	padColor  = color.RGBA{R: 114, G: 114, B: 114, A: 255}
)

// Detector runs a YOLOv8 ONNX export through the OpenCV DNN module.
type Detector struct {
	config DetectorConfig
	logger *zap.Logger

	once    sync.Once
	net     gocv.Net
	loaded  bool
	loadErr error

	// gocv.Net is not safe for concurrent Forward calls.
	mu sync.Mutex
}

func NewDetector(config DetectorConfig, logger *zap.Logger) *Detector {
	config.applyDefaults()
	return &Detector{config: config, logger: newLogger(logger)}
}

// load reads the network on first use; the result, including failure, is kept for the process lifetime.
func (d *Detector) load() error {
	d.once.Do(func() {
		d.logger.Info("loading detection model", zap.String("path", d.config.ModelPath))
		d.net = gocv.ReadNetFromONNX(d.config.ModelPath)
		if d.net.Empty() {
			d.net.Close()
			d.loadErr = fmt.Errorf("failed to load model from %s", d.config.ModelPath)
			return
		}
		d.loaded = true
		d.logger.Info("detection model loaded")
	})
	return d.loadErr
}

// Detect finds relevant objects in an encoded image and returns them with a base64 JPEG of the annotated image.
func (d *Detector) Detect(ctx context.Context, data []byte) ([]models.DetectedObject, string, error) {
	if err := CheckSize(data, d.config.MaxImageBytes); err != nil {
		return nil, "", err
	}

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || img.Empty() {
		img.Close()
		return nil, "", ErrInvalidImage
	}
	defer img.Close()

	if err := d.load(); err != nil {
		return nil, "", err
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	dets, err := d.infer(img)
	if err != nil {
		return nil, "", err
	}
	dets = Relevant(dets)

	for _, det := range dets {
		annotate(&img, det)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{int(gocv.IMWriteJpegQuality), 85})
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode annotated image: %w", err)
	}
	defer buf.Close()

	d.logger.Info("detected relevant objects", zap.Int("count", len(dets)))
	return ToObjects(dets), base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}

func (d *Detector) infer(img gocv.Mat) ([]Detection, error) {
	size := d.config.InputSize
	scale := NewScale(img.Cols(), img.Rows(), size)

	input := letterbox(img, scale, size)
	defer input.Close()

	blob := gocv.BlobFromImage(input, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.mu.Unlock()
	defer out.Close()

	shape, err := ParseShape(out.Size())
	if err != nil {
		return nil, err
	}
	values, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read model output: %w", err)
	}

	dets, err := Decode(values, shape, scale, float32(d.config.Confidence))
	if err != nil {
		return nil, err
	}
	return NMS(dets, d.config.IoU), nil
}

// letterbox resizes img keeping its aspect ratio and pads it with gray to a size x size square.
func letterbox(img gocv.Mat, scale Scale, size int) gocv.Mat {
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Pt(scale.ResizedWidth, scale.ResizedHeight), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMat()
	gocv.CopyMakeBorder(resized, &padded,
		scale.PadY, size-scale.ResizedHeight-scale.PadY,
		scale.PadX, size-scale.ResizedWidth-scale.PadX,
		gocv.BorderConstant, padColor)
	return padded
}

func annotate(img *gocv.Mat, det Detection) {
	x1, y1 := int(det.Box[0]), int(det.Box[1])
	x2, y2 := int(det.Box[2]), int(det.Box[3])
	gocv.Rectangle(img, image.Rect(x1, y1, x2, y2), boxColor, 2)

	text := Caption(det)
	ts := gocv.GetTextSize(text, gocv.FontHersheySimplex, 0.6, 1)
	gocv.Rectangle(img, image.Rect(x1, y1-ts.Y-8, x1+ts.X+4, y1), boxColor, -1)
	gocv.PutTextWithParams(img, text, image.Pt(x1+2, y1-4), gocv.FontHersheySimplex, 0.6, textColor, 1, gocv.LineAA, false)
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.loaded {
		return nil
	}
	d.loaded = false
	return d.net.Close()
}
