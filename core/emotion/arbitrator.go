package emotion

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Mode is the coarse UI state gating which activity is shown to the child.
type Mode int

const (
	ModeLearning Mode = iota
	ModeCalming
)

func (m Mode) String() string {
	switch m {
	case ModeCalming:
		return "calming"
	default:
		return "learning"
	}
}

func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "learning":
		*m = ModeLearning
	case "calming":
		*m = ModeCalming
	default:
		return errors.Errorf("unknown mode %q", s)
	}
	return nil
}

// Arbitrator turns a window of samples into a mode decision.
type Arbitrator struct {
	// Window is how many of the most recent samples are considered.
	Window int
	// Required is how many of them must qualify for a transition.
	Required int
}

func NewArbitrator() Arbitrator {
	return Arbitrator{Window: DecisionWindow, Required: DecisionWindow}
}

// Evaluate returns the mode to be in given the window and the current mode, and whether it differs from current.
// A window shorter than a.Window is insufficient evidence: no transition.
func (a Arbitrator) Evaluate(window []Sample, current Mode) (Mode, bool) {
	if len(window) < a.Window {
		return current, false
	}
	recent := window[len(window)-a.Window:]

	var negatives, positives int
	for _, s := range recent {
		switch {
		case s.IsNegative():
			negatives++
		case s.IsPositive():
			positives++
		}
	}

	switch current {
	case ModeLearning:
		if negatives >= a.Required {
			return ModeCalming, true
		}
	case ModeCalming:
		if positives >= a.Required {
			return ModeLearning, true
		}
	}
	return current, false
}
