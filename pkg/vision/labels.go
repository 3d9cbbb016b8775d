package vision

// cocoLabels are the 80 class names in YOLOv8's output order.
var cocoLabels = [...]string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}

// relevantLabels are the furniture and room objects reported to clients.
var relevantLabels = map[string]bool{
	"chair":        true,
	"couch":        true,
	"bed":          true,
	"dining table": true,
	"tv":           true,
	"laptop":       true,
	"refrigerator": true,
	"oven":         true,
	"microwave":    true,
	"sink":         true,
	"toilet":       true,
	"potted plant": true,
	"clock":        true,
	"vase":         true,
	"book":         true,
	"bottle":       true,
}

// Label returns the COCO name for a class index.
func Label(classID int) string {
	if classID < 0 || classID >= len(cocoLabels) {
		return ""
	}
	return cocoLabels[classID]
}

func IsRelevant(label string) bool {
	return relevantLabels[label]
}
