package emotion

const (
	// SmootherCapacity is how many samples are kept.
	SmootherCapacity = 5
	// DecisionWindow is how many of the most recent samples arbitration looks at.
	DecisionWindow = 3
)

// Smoother keeps a bounded, recency-ordered history of samples.
// It is not safe for concurrent use; Controller serializes access.
type Smoother struct {
	capacity int
	samples  []Sample
}

func NewSmoother(capacity int) *Smoother {
	if capacity <= 0 {
		capacity = SmootherCapacity
	}
	return &Smoother{
		capacity: capacity,
		samples:  make([]Sample, 0, capacity),
	}
}

// Record appends s, dropping the oldest sample once capacity is exceeded.
func (sm *Smoother) Record(s Sample) {
	sm.samples = append(sm.samples, s)
	if over := len(sm.samples) - sm.capacity; over > 0 {
		sm.samples = append(sm.samples[:0], sm.samples[over:]...)
	}
}

// RecentWindow returns a copy of the last n samples, oldest first.
func (sm *Smoother) RecentWindow(n int) []Sample {
	if n <= 0 {
		return []Sample{}
	}
	start := len(sm.samples) - n
	if start < 0 {
		start = 0
	}
	window := make([]Sample, len(sm.samples)-start)
	copy(window, sm.samples[start:])
	return window
}

func (sm *Smoother) Len() int {
	return len(sm.samples)
}

func (sm *Smoother) Reset() {
	sm.samples = sm.samples[:0]
}
