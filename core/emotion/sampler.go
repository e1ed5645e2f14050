package emotion

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultSampleInterval  = 2 * time.Second
	DefaultClassifyTimeout = 10 * time.Second
	DefaultMinAudioBytes   = 1000
)

// ErrFrameNotReady is returned by a MediaCapture that has no frame to give yet (or anymore).
var ErrFrameNotReady = errors.New("frame not ready")

type (
	// MediaCapture is the source of camera frames & microphone chunks.
	MediaCapture interface {
		// Frame returns a JPEG frame captured since the previous call, ErrFrameNotReady if there is none.
		Frame() ([]byte, error)
		// DrainAudio returns & forgets the audio chunks captured since the last call.
		DrainAudio() [][]byte
		Close() error
	}

	// Result is what a Classifier infers from one frame (and optional audio).
	Result struct {
		Emotion    string
		Confidence float64
	}

	Classifier interface {
		// Classify must honor ctx cancellation. audio may be nil.
		Classify(ctx context.Context, image, audio []byte) (Result, error)
	}

	SamplerOptions struct {
		Interval        time.Duration
		ClassifyTimeout time.Duration
		MinAudioBytes   int
		// SampleWhileCalming keeps the loop running in calming mode, for hosts without their own detector there.
		SampleWhileCalming bool
		// OnError is called with the error of a skipped cycle. Optional.
		OnError func(err error)
	}
)

// Sampler periodically captures media, classifies it and feeds the result to a Controller.
// At most one classification is in flight at any time.
type Sampler struct {
	ctrl       *Controller
	capture    MediaCapture
	classifier Classifier
	opts       SamplerOptions

	inFlight atomic.Bool
	stopped  atomic.Bool
	done     chan struct{}
	stopOnce sync.Once

	// mu orders wg.Add against Stop so that Wait never races a new cycle.
	mu sync.Mutex
	wg sync.WaitGroup
}

func NewSampler(ctrl *Controller, capture MediaCapture, classifier Classifier, opts SamplerOptions) *Sampler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultSampleInterval
	}
	if opts.ClassifyTimeout <= 0 {
		opts.ClassifyTimeout = DefaultClassifyTimeout
	}
	if opts.MinAudioBytes <= 0 {
		opts.MinAudioBytes = DefaultMinAudioBytes
	}
	return &Sampler{
		ctrl:       ctrl,
		capture:    capture,
		classifier: classifier,
		opts:       opts,
		done:       make(chan struct{}),
	}
}

// Run ticks every opts.Interval until ctx is done or Stop is called.
// Cycles run in their own goroutine so that a slow classifier never delays the ticker.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.spawn(ctx)
		}
	}
}

// spawn starts a cycle in its own goroutine unless the sampler is stopped or busy.
func (s *Sampler) spawn(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.begin() {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cycle(ctx)
	}()
}

// Tick runs one cycle synchronously. It returns false when the cycle was skipped before capturing.
func (s *Sampler) Tick(ctx context.Context) bool {
	if !s.begin() {
		return false
	}
	s.cycle(ctx)
	return true
}

// Stop ends the loop and releases the capture. In-flight results are discarded.
// Safe to call more than once.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped.Store(true)
		s.mu.Unlock()
		close(s.done)
		if err := s.capture.Close(); err != nil {
			s.report(errors.Wrap(err, "closing capture"))
		}
	})
}

// Wait blocks until in-flight cycles started by Run have returned. Call it after Stop.
func (s *Sampler) Wait() {
	s.wg.Wait()
}

func (s *Sampler) Stopped() bool {
	return s.stopped.Load()
}

// begin claims the in-flight slot.
func (s *Sampler) begin() bool {
	if s.stopped.Load() {
		return false
	}
	if !s.opts.SampleWhileCalming && s.ctrl.Mode() == ModeCalming {
		return false
	}
	return s.inFlight.CompareAndSwap(false, true)
}

func (s *Sampler) cycle(ctx context.Context) {
	defer s.inFlight.Store(false)
	mode := s.ctrl.Mode()

	frame, err := s.capture.Frame()
	if err != nil {
		if !errors.Is(err, ErrFrameNotReady) {
			s.report(errors.Wrap(err, "capturing frame"))
		}
		return
	}
	audio := joinAudio(s.capture.DrainAudio(), s.opts.MinAudioBytes)

	cctx, cancel := context.WithTimeout(ctx, s.opts.ClassifyTimeout)
	defer cancel()
	res, err := s.classifier.Classify(cctx, frame, audio)
	if err != nil {
		s.report(errors.Wrap(err, "classifying"))
		return
	}

	// the world moved on while classifying
	if s.stopped.Load() || ctx.Err() != nil || s.ctrl.Mode() != mode {
		return
	}
	s.ctrl.Observe(NewSample(res.Emotion, res.Confidence, time.Now()))
}

func (s *Sampler) report(err error) {
	if s.opts.OnError != nil {
		s.opts.OnError(err)
	}
}

// joinAudio concatenates chunks, or returns nil when their total size is below minBytes.
func joinAudio(chunks [][]byte, minBytes int) []byte {
	var total int
	for _, c := range chunks {
		total += len(c)
	}
	if total == 0 || total < minBytes {
		return nil
	}
	return bytes.Join(chunks, nil)
}
