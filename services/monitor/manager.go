// Package monitor runs the emotion sampling loop of each child currently playing.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/child"
	"github.com/trezcool/tulia/core/emotion"
	"github.com/trezcool/tulia/core/progress"
	"github.com/trezcool/tulia/core/session"
	"github.com/trezcool/tulia/services/capture"
)

var ErrNotRunning = core.NewNotFoundError("monitoring session")

type (
	ProgressService interface {
		SetLastPlayed(ctx context.Context, childID string, level, game int) (progress.LevelState, error)
	}

	SessionService interface {
		SaveCalming(ctx context.Context, nc session.NewCalmingEpisode) (session.CalmingEpisode, error)
	}

	ParentLister interface {
		Parents(ctx context.Context, childID string) ([]child.Parent, error)
	}

	Deps struct {
		Classifier   emotion.Classifier
		Resume       emotion.ResumeStore
		Progress     ProgressService
		Sessions     SessionService
		Parents      ParentLister
		Mailer       core.EmailService // optional
		Broadcasters []Broadcaster
		Logger       core.Logger
	}

	Options struct {
		Sampler        emotion.SamplerOptions
		MaxAudioChunks int
		// Manual disables the sampling loop; cycles are then driven with Session.Tick.
		Manual bool
	}
)

// Session is the monitoring of one child: its mode controller, media buffer & sampler.
type Session struct {
	Child     child.Child
	Level     int
	StartedAt time.Time

	ctrl     *emotion.Controller
	buffer   *capture.Buffer
	sampler  *emotion.Sampler
	episodes *episodeRecorder
	cancel   context.CancelFunc
}

func (s *Session) State() emotion.State { return s.ctrl.State() }

func (s *Session) Mode() emotion.Mode { return s.ctrl.Mode() }

// Observe feeds an externally classified sample (e.g. from the calming page's own detector).
func (s *Session) Observe(sample emotion.Sample) (emotion.Transition, bool) {
	return s.ctrl.Observe(sample)
}

func (s *Session) SetActiveModule(moduleID int) { s.ctrl.SetActiveModule(moduleID) }

func (s *Session) PutFrame(frame []byte) { s.buffer.PutFrame(frame) }

func (s *Session) PutAudio(chunk []byte) { s.buffer.PutAudio(chunk) }

// CalmingGameCompleted counts a game finished during the current calming episode.
func (s *Session) CalmingGameCompleted() { s.episodes.gameCompleted() }

// Tick runs one sampling cycle synchronously.
func (s *Session) Tick(ctx context.Context) bool { return s.sampler.Tick(ctx) }

func (s *Session) stop() {
	s.sampler.Stop()
	s.cancel()
	s.sampler.Wait()
}

// Manager keeps at most one Session per child.
type Manager struct {
	deps Deps
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(deps Deps, opts Options) *Manager {
	return &Manager{deps: deps, opts: opts, sessions: make(map[string]*Session)}
}

// Start begins monitoring chld playing level. Starting an already monitored child returns its session.
func (m *Manager) Start(chld child.Child, level int) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[chld.ID]; ok {
		return sess
	}

	ref := chld.Ref()
	episodes := &episodeRecorder{
		child:    chld,
		sessions: m.deps.Sessions,
		parents:  m.deps.Parents,
		mailer:   m.deps.Mailer,
		logger:   m.deps.Logger,
	}
	// persistence first, then the live subscribers
	listeners := []emotion.Listener{
		resumeWriter{ref: ref, store: m.deps.Resume, logger: m.deps.Logger},
		bookmarker{ref: ref, level: level, progress: m.deps.Progress, logger: m.deps.Logger},
		episodes,
	}
	if len(m.deps.Broadcasters) > 0 {
		listeners = append(listeners, broadcastListener{childID: chld.ID, broadcasters: m.deps.Broadcasters})
	}
	listeners = append(listeners, emotion.ListenerFunc(func(t emotion.Transition) {
		m.deps.Logger.Info(fmt.Sprintf("%s: %s -> %s (module %d)", chld.ID, t.From, t.To, t.Module), ref)
	}))

	opts := m.opts.Sampler
	if opts.OnError == nil {
		opts.OnError = func(err error) {
			m.deps.Logger.Warn(fmt.Sprintf("sampling cycle skipped: %v", err), ref)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctrl := emotion.NewController(listeners...)
	buffer := capture.NewBuffer(m.opts.MaxAudioChunks)
	sess := &Session{
		Child:     chld,
		Level:     level,
		StartedAt: time.Now().UTC(),
		ctrl:      ctrl,
		buffer:    buffer,
		sampler:   emotion.NewSampler(ctrl, buffer, m.deps.Classifier, opts),
		episodes:  episodes,
		cancel:    cancel,
	}
	if !m.opts.Manual {
		go sess.sampler.Run(ctx)
	}
	m.sessions[chld.ID] = sess
	return sess
}

func (m *Manager) Get(childID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[childID]
	if !ok {
		return nil, ErrNotRunning
	}
	return sess, nil
}

// Stop ends the child's session. Results still in flight are discarded.
func (m *Manager) Stop(childID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[childID]
	delete(m.sessions, childID)
	m.mu.Unlock()

	if !ok {
		return ErrNotRunning
	}
	sess.stop()
	return nil
}

// StopAll ends every session, e.g. on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.stop()
	}
}

// TakeResume returns the child's pending resume module, clearing it.
func (m *Manager) TakeResume(ctx context.Context, childID string) (int, bool, error) {
	id, ok, err := m.deps.Resume.Take(ctx, childID)
	if err != nil {
		return 0, false, errors.Wrap(err, "taking resume signal")
	}
	return id, ok, nil
}

func (m *Manager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
