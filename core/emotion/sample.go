package emotion

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultLabel is used when a classification carries no label.
	DefaultLabel = "neutral"

	// ConfidenceThreshold is the exclusive lower bound a sample's confidence must exceed to count.
	ConfidenceThreshold = 0.35
)

var (
	negativeLabels = map[string]bool{"angry": true, "sad": true, "fear": true}
	positiveLabels = map[string]bool{"happy": true, "neutral": true, "calm": true, "surprise": true}
)

// Sample is one emotion classification result.
type Sample struct {
	Emotion    string    `json:"emotion"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewSample builds a Sample the permissive way:
// an empty label becomes "neutral", labels are lower-cased & a non-finite confidence becomes 0.
func NewSample(label string, confidence float64, at time.Time) Sample {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		label = DefaultLabel
	}
	if math.IsNaN(confidence) || math.IsInf(confidence, 0) {
		confidence = 0
	}
	return Sample{Emotion: label, Confidence: confidence, Timestamp: at}
}

// CoerceConfidence converts a loosely typed payload value into a confidence, defaulting to 0.
func CoerceConfidence(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		f, _ := val.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// IsNegative reports whether the sample counts towards a calming transition.
func (s Sample) IsNegative() bool {
	return negativeLabels[s.Emotion] && s.Confidence > ConfidenceThreshold
}

// IsPositive reports whether the sample counts towards returning to learning.
func (s Sample) IsPositive() bool {
	return positiveLabels[s.Emotion] && s.Confidence > ConfidenceThreshold
}
