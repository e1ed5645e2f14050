package emotion

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCapture struct {
	mu     sync.Mutex
	frame  []byte
	audio  [][]byte
	closed bool
}

func (fc *fakeCapture) Frame() ([]byte, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.closed || fc.frame == nil {
		return nil, ErrFrameNotReady
	}
	return fc.frame, nil
}

func (fc *fakeCapture) DrainAudio() [][]byte {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	chunks := fc.audio
	fc.audio = nil
	return chunks
}

func (fc *fakeCapture) Close() error {
	fc.mu.Lock()
	fc.closed = true
	fc.mu.Unlock()
	return nil
}

type fakeClassifier struct {
	mu      sync.Mutex
	results []Result
	err     error
	calls   int32
	audio   [][]byte
	// block, when set, holds Classify until it is closed
	block chan struct{}
}

func (fc *fakeClassifier) Classify(ctx context.Context, image, audio []byte) (Result, error) {
	atomic.AddInt32(&fc.calls, 1)
	if fc.block != nil {
		select {
		case <-fc.block:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.audio = append(fc.audio, audio)
	if fc.err != nil {
		return Result{}, fc.err
	}
	if len(fc.results) == 0 {
		return Result{Emotion: "neutral", Confidence: 0.1}, nil
	}
	res := fc.results[0]
	fc.results = fc.results[1:]
	return res, nil
}

func angryResults(n int) []Result {
	res := make([]Result, n)
	for i := range res {
		res[i] = Result{Emotion: "angry", Confidence: 0.9}
	}
	return res
}

func TestSampler_Tick(t *testing.T) {
	ctx := context.Background()
	ctrl := NewController()
	ctrl.SetActiveModule(3)
	capture := &fakeCapture{frame: []byte("jpeg")}
	clf := &fakeClassifier{results: angryResults(3)}
	smp := NewSampler(ctrl, capture, clf, SamplerOptions{})

	for i := 0; i < 3; i++ {
		assert.True(t, smp.Tick(ctx))
	}
	assert.Equal(t, ModeCalming, ctrl.Mode())
	assert.Equal(t, 3, ctrl.State().PendingModule)

	// calming: the loop idles
	assert.False(t, smp.Tick(ctx))
	assert.EqualValues(t, 3, atomic.LoadInt32(&clf.calls))
}

func TestSampler_SampleWhileCalming(t *testing.T) {
	ctx := context.Background()
	ctrl := NewController()
	clf := &fakeClassifier{results: append(angryResults(3),
		Result{Emotion: "happy", Confidence: 0.9},
		Result{Emotion: "calm", Confidence: 0.8},
		Result{Emotion: "", Confidence: 0.7},
	)}
	smp := NewSampler(ctrl, &fakeCapture{frame: []byte("jpeg")}, clf, SamplerOptions{SampleWhileCalming: true})

	for i := 0; i < 6; i++ {
		require.True(t, smp.Tick(ctx))
	}
	assert.Equal(t, ModeLearning, ctrl.Mode())
}

func TestSampler_SkippedCycles(t *testing.T) {
	ctx := context.Background()

	t.Run("frame not ready", func(t *testing.T) {
		var errs []error
		clf := new(fakeClassifier)
		smp := NewSampler(NewController(), new(fakeCapture), clf, SamplerOptions{
			OnError: func(err error) { errs = append(errs, err) },
		})
		assert.True(t, smp.Tick(ctx))
		assert.EqualValues(t, 0, atomic.LoadInt32(&clf.calls))
		assert.Empty(t, errs)
	})

	t.Run("classifier failure", func(t *testing.T) {
		var errs []error
		ctrl := NewController()
		clf := &fakeClassifier{err: errors.New("boom")}
		smp := NewSampler(ctrl, &fakeCapture{frame: []byte("jpeg")}, clf, SamplerOptions{
			OnError: func(err error) { errs = append(errs, err) },
		})
		for i := 0; i < 3; i++ {
			assert.True(t, smp.Tick(ctx))
		}
		assert.Equal(t, 0, len(ctrl.State().Samples))
		assert.Len(t, errs, 3)
	})

	t.Run("stopped", func(t *testing.T) {
		capture := &fakeCapture{frame: []byte("jpeg")}
		smp := NewSampler(NewController(), capture, new(fakeClassifier), SamplerOptions{})
		smp.Stop()
		smp.Stop()
		assert.True(t, capture.closed)
		assert.False(t, smp.Tick(ctx))
	})
}

func TestSampler_Audio(t *testing.T) {
	ctx := context.Background()
	capture := &fakeCapture{frame: []byte("jpeg"), audio: [][]byte{make([]byte, 400), make([]byte, 400)}}
	clf := new(fakeClassifier)
	smp := NewSampler(NewController(), capture, clf, SamplerOptions{})

	// 800 bytes: omitted
	smp.Tick(ctx)
	capture.audio = [][]byte{make([]byte, 600), make([]byte, 600)}
	smp.Tick(ctx)

	require.Len(t, clf.audio, 2)
	assert.Nil(t, clf.audio[0])
	assert.Len(t, clf.audio[1], 1200)
	assert.Empty(t, capture.DrainAudio())
}

func TestSampler_InFlightGuard(t *testing.T) {
	ctx := context.Background()
	ctrl := NewController()
	clf := &fakeClassifier{results: angryResults(1), block: make(chan struct{})}
	smp := NewSampler(ctrl, &fakeCapture{frame: []byte("jpeg")}, clf, SamplerOptions{})

	done := make(chan bool)
	go func() { done <- smp.Tick(ctx) }()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&clf.calls) == 1 }, time.Second, time.Millisecond)
	// a second tick while the first classification is pending is skipped
	assert.False(t, smp.Tick(ctx))

	close(clf.block)
	assert.True(t, <-done)
	assert.Len(t, ctrl.State().Samples, 1)
	assert.True(t, smp.Tick(ctx))
}

func TestSampler_StopDiscardsInFlightResult(t *testing.T) {
	ctx := context.Background()
	ctrl := NewController()
	clf := &fakeClassifier{results: angryResults(1), block: make(chan struct{})}
	smp := NewSampler(ctrl, &fakeCapture{frame: []byte("jpeg")}, clf, SamplerOptions{})

	done := make(chan bool)
	go func() { done <- smp.Tick(ctx) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&clf.calls) == 1 }, time.Second, time.Millisecond)

	smp.Stop()
	close(clf.block)
	<-done
	assert.Empty(t, ctrl.State().Samples)
}

func TestSampler_ClassifyTimeout(t *testing.T) {
	var errs []error
	clf := &fakeClassifier{block: make(chan struct{})}
	smp := NewSampler(NewController(), &fakeCapture{frame: []byte("jpeg")}, clf, SamplerOptions{
		ClassifyTimeout: 10 * time.Millisecond,
		OnError:         func(err error) { errs = append(errs, err) },
	})
	assert.True(t, smp.Tick(context.Background()))
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], context.DeadlineExceeded))
}

func TestSampler_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := NewController()
	ctrl.SetActiveModule(5)
	calming := make(chan Transition, 1)
	ctrl.AddListener(ListenerFunc(func(t Transition) { calming <- t }))

	capture := &fakeCapture{frame: []byte("jpeg")}
	smp := NewSampler(ctrl, capture, &fakeClassifier{results: angryResults(3)}, SamplerOptions{Interval: 5 * time.Millisecond})

	stopped := make(chan struct{})
	go func() {
		smp.Run(ctx)
		close(stopped)
	}()

	select {
	case tr := <-calming:
		assert.Equal(t, ModeCalming, tr.To)
		assert.Equal(t, 5, tr.Module)
	case <-time.After(2 * time.Second):
		t.Fatal("no transition")
	}

	cancel()
	<-stopped
	smp.Wait()
	assert.True(t, smp.Stopped())
	assert.True(t, capture.closed)
}

func TestSampler_StopWhileRunning(t *testing.T) {
	for i := 0; i < 20; i++ {
		clf := &fakeClassifier{}
		smp := NewSampler(NewController(), &fakeCapture{frame: []byte("jpeg")}, clf, SamplerOptions{Interval: time.Millisecond})

		stopped := make(chan struct{})
		go func() {
			smp.Run(context.Background())
			close(stopped)
		}()
		time.Sleep(time.Duration(i%4) * time.Millisecond)

		smp.Stop()
		smp.Wait()
		calls := atomic.LoadInt32(&clf.calls)
		<-stopped

		// nothing starts once Stop & Wait have returned
		time.Sleep(5 * time.Millisecond)
		assert.Equal(t, calls, atomic.LoadInt32(&clf.calls))
	}
}
