package vision

import (
	"fmt"
	"math"
	"sort"

	"github.com/xhad/vision-sync/internal/models"
)

// Detection is a single box decoded from the model output, in source image pixels.
type Detection struct {
	ClassID int
	Score   float32
	Box     [4]float64 // x1, y1, x2, y2
}

// OutputShape describes a YOLOv8 detection head output of shape [1, 4+classes, anchors].
type OutputShape struct {
	Classes int
	Anchors int
}

// ParseShape validates the dimensions reported by the inference backend.
func ParseShape(dims []int) (OutputShape, error) {
	if len(dims) != 3 || dims[0] != 1 || dims[1] <= 4 || dims[2] <= 0 {
		return OutputShape{}, fmt.Errorf("unexpected model output shape %v", dims)
	}
	return OutputShape{Classes: dims[1] - 4, Anchors: dims[2]}, nil
}

// Scale describes the letterbox that fits a source image into the square model input:
// a uniform resize by Gain, then padding on both sides to fill the square.
type Scale struct {
	Gain                        float64
	PadX, PadY                  int // left and top padding in model input pixels
	ResizedWidth, ResizedHeight int
	Width, Height               float64 // source image size, used for clipping
}

func NewScale(imgWidth, imgHeight, inputSize int) Scale {
	gain := math.Min(float64(inputSize)/float64(imgWidth), float64(inputSize)/float64(imgHeight))
	rw := int(math.Round(float64(imgWidth) * gain))
	rh := int(math.Round(float64(imgHeight) * gain))
	return Scale{
		Gain:          gain,
		PadX:          (inputSize - rw) / 2,
		PadY:          (inputSize - rh) / 2,
		ResizedWidth:  rw,
		ResizedHeight: rh,
		Width:         float64(imgWidth),
		Height:        float64(imgHeight),
	}
}

// source maps a model input point back to source image pixels, clipped to the image.
func (s Scale) source(x, y float64) (float64, float64) {
	return clamp((x-float64(s.PadX))/s.Gain, 0, s.Width),
		clamp((y-float64(s.PadY))/s.Gain, 0, s.Height)
}

// Decode turns the channel-major output tensor into candidate detections above threshold.
func Decode(data []float32, shape OutputShape, scale Scale, threshold float32) ([]Detection, error) {
	if want := (shape.Classes + 4) * shape.Anchors; len(data) != want {
		return nil, fmt.Errorf("model output has %d values, expected %d", len(data), want)
	}

	n := shape.Anchors
	var dets []Detection
	for i := 0; i < n; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < shape.Classes; c++ {
			if s := data[(4+c)*n+i]; s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < threshold {
			continue
		}

		cx, cy := float64(data[i]), float64(data[n+i])
		w, h := float64(data[2*n+i]), float64(data[3*n+i])
		x1, y1 := scale.source(cx-w/2, cy-h/2)
		x2, y2 := scale.source(cx+w/2, cy+h/2)
		dets = append(dets, Detection{
			ClassID: best,
			Score:   bestScore,
			Box:     [4]float64{x1, y1, x2, y2},
		})
	}
	return dets, nil
}

// NMS applies per-class non-maximum suppression and returns the kept boxes by descending score.
func NMS(dets []Detection, iouThreshold float64) []Detection {
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	kept := make([]Detection, 0, len(sorted))
	suppressed := make([]bool, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if !suppressed[j] && sorted[j].ClassID == sorted[i].ClassID && IoU(sorted[i].Box, sorted[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

// IoU is the intersection over union of two x1,y1,x2,y2 boxes.
func IoU(a, b [4]float64) float64 {
	ix := math.Max(0, math.Min(a[2], b[2])-math.Max(a[0], b[0]))
	iy := math.Max(0, math.Min(a[3], b[3])-math.Max(a[1], b[1]))
	inter := ix * iy
	union := area(a) + area(b) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func area(b [4]float64) float64 {
	return math.Max(0, b[2]-b[0]) * math.Max(0, b[3]-b[1])
}

// Relevant keeps detections of furniture and room objects, in input order.
func Relevant(dets []Detection) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if IsRelevant(Label(d.ClassID)) {
			out = append(out, d)
		}
	}
	return out
}

// ToObjects converts detections to their API shape with rounded values.
func ToObjects(dets []Detection) []models.DetectedObject {
	objects := make([]models.DetectedObject, 0, len(dets))
	for _, d := range dets {
		objects = append(objects, models.DetectedObject{
			Label:      Label(d.ClassID),
			Confidence: round(float64(d.Score), 3),
			BBox: []float64{
				round(d.Box[0], 1),
				round(d.Box[1], 1),
				round(d.Box[2], 1),
				round(d.Box[3], 1),
			},
		})
	}
	return objects
}

// Caption is the text drawn above a box, e.g. "chair 87%".
func Caption(d Detection) string {
	return fmt.Sprintf("%s %.0f%%", Label(d.ClassID), float64(d.Score)*100)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
