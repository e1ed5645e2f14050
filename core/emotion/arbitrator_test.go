package emotion

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samples(pairs ...interface{}) []Sample {
	now := time.Now()
	out := make([]Sample, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, NewSample(pairs[i].(string), pairs[i+1].(float64), now.Add(time.Duration(i)*time.Second)))
	}
	return out
}

func TestArbitrator_Evaluate(t *testing.T) {
	arb := NewArbitrator()

	tests := []struct {
		name        string
		window      []Sample
		current     Mode
		wantMode    Mode
		wantChanged bool
	}{
		{
			name:        "three confident negatives",
			window:      samples("angry", 0.5, "sad", 0.4, "fear", 0.9),
			current:     ModeLearning,
			wantMode:    ModeCalming,
			wantChanged: true,
		},
		{
			name:        "three confident positives while calming",
			window:      samples("happy", 0.9, "neutral", 0.5, "calm", 0.6),
			current:     ModeCalming,
			wantMode:    ModeLearning,
			wantChanged: true,
		},
		{
			name:     "negatives below threshold",
			window:   samples("angry", 0.2, "sad", 0.3, "fear", 0.1),
			current:  ModeLearning,
			wantMode: ModeLearning,
		},
		{
			name:     "confidence exactly at threshold does not count",
			window:   samples("angry", 0.35, "sad", 0.9, "fear", 0.9),
			current:  ModeLearning,
			wantMode: ModeLearning,
		},
		{
			name:     "mixed window",
			window:   samples("angry", 0.9, "happy", 0.9, "sad", 0.9),
			current:  ModeLearning,
			wantMode: ModeLearning,
		},
		{
			name:     "insufficient history",
			window:   samples("angry", 0.9, "fear", 0.9),
			current:  ModeLearning,
			wantMode: ModeLearning,
		},
		{
			name:     "negatives while already calming",
			window:   samples("angry", 0.9, "sad", 0.9, "fear", 0.9),
			current:  ModeCalming,
			wantMode: ModeCalming,
		},
		{
			name:     "positives while already learning",
			window:   samples("happy", 0.9, "calm", 0.9, "surprise", 0.9),
			current:  ModeLearning,
			wantMode: ModeLearning,
		},
		{
			name:        "only the last three count",
			window:      samples("happy", 0.9, "happy", 0.9, "angry", 0.9, "sad", 0.9, "fear", 0.9),
			current:     ModeLearning,
			wantMode:    ModeCalming,
			wantChanged: true,
		},
		{
			name:     "unknown labels are neutral evidence",
			window:   samples("stressed", 0.9, "disgust", 0.9, "angry", 0.9),
			current:  ModeLearning,
			wantMode: ModeLearning,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, changed := arb.Evaluate(tt.window, tt.current)
			assert.Equal(t, tt.wantMode, mode)
			assert.Equal(t, tt.wantChanged, changed)
		})
	}
}

func TestNewSample(t *testing.T) {
	at := time.Now()
	s := NewSample("", 0.7, at)
	assert.Equal(t, "neutral", s.Emotion)
	assert.True(t, s.IsPositive())

	s = NewSample("  ANGRY ", 0.7, at)
	assert.Equal(t, "angry", s.Emotion)
	assert.True(t, s.IsNegative())
	assert.False(t, s.IsPositive())

	assert.Equal(t, 0.0, CoerceConfidence("oops"))
	assert.Equal(t, 0.0, CoerceConfidence(nil))
	assert.Equal(t, 0.42, CoerceConfidence("0.42"))
	assert.Equal(t, 1.0, CoerceConfidence(1))
}

func TestSmoother(t *testing.T) {
	sm := NewSmoother(SmootherCapacity)
	assert.Empty(t, sm.RecentWindow(3))

	all := samples("a", 0.1, "b", 0.2, "c", 0.3, "d", 0.4, "e", 0.5, "f", 0.6, "g", 0.7)
	for _, s := range all {
		sm.Record(s)
	}
	assert.Equal(t, SmootherCapacity, sm.Len())

	window := sm.RecentWindow(3)
	assert.Equal(t, all[4:], window)

	// a window is a copy
	window[0].Emotion = "changed"
	assert.Equal(t, "e", sm.RecentWindow(3)[0].Emotion)

	assert.Equal(t, all[2:], sm.RecentWindow(10))

	sm.Reset()
	assert.Equal(t, 0, sm.Len())
}

func TestMode_JSON(t *testing.T) {
	for _, m := range []Mode{ModeLearning, ModeCalming} {
		data, err := json.Marshal(m)
		require.NoError(t, err)
		var got Mode
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, m, got)
	}
	var m Mode
	assert.Error(t, json.Unmarshal([]byte(`"panic"`), &m))
}
