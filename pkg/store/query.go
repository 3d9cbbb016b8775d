package store

import (
	"strings"

	"github.com/xhad/vision-sync/pkg/llm"
)

// labelTerms maps detector labels to the words catalog entries use for the same things.
var labelTerms = map[string]string{
	"toilet":       "bathroom",
	"sink":         "basin vanity",
	"couch":        "sofa",
	"tv":           "media console",
	"dining table": "dining",
	"potted plant": "indoor plant",
	"book":         "bookshelf shelving",
	"bottle":       "wine rack",
	"clock":        "wall clock",
	"vase":         "decorative vase",
	"laptop":       "desk",
	"chair":        "seating",
	"bed":          "bedroom",
	"refrigerator": "kitchen",
	"oven":         "kitchen",
	"microwave":    "kitchen",
}

// QueryText builds the vector search text for a set of labels: each label with its
// catalog terms, then the room the labels point to.
func QueryText(labels []string) string {
	parts := make([]string, 0, len(labels)*2+1)
	for _, l := range labels {
		parts = append(parts, l)
		if terms, ok := labelTerms[l]; ok {
			parts = append(parts, terms)
		}
	}
	if room, ok := llm.RoomHint(labels); ok {
		parts = append(parts, room)
	}
	return strings.Join(parts, ", ")
}
