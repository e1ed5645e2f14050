package monitor

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/child"
	"github.com/trezcool/tulia/core/emotion"
	"github.com/trezcool/tulia/core/session"
)

const persistTimeout = 5 * time.Second

// Broadcaster pushes a child's transitions to live subscribers (websocket clients, MQTT..).
type Broadcaster interface {
	Publish(childID string, t emotion.Transition)
}

// resumeWriter stores the resume signal of transitions back to learning.
type resumeWriter struct {
	ref    core.ChildRef
	store  emotion.ResumeStore
	logger core.Logger
}

func (w resumeWriter) OnTransition(t emotion.Transition) {
	id, ok := t.Resume()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := w.store.Put(ctx, w.ref.ID, id); err != nil {
		w.logger.Error(fmt.Sprintf("storing resume signal: %v", err), errors.Wrap(err, "storing resume signal"), w.ref)
	}
}

// bookmarker points the level's resume pointer at the module left when calming starts,
// so that the game can also be resumed from another device.
type bookmarker struct {
	ref      core.ChildRef
	level    int
	progress ProgressService
	logger   core.Logger
}

func (b bookmarker) OnTransition(t emotion.Transition) {
	if t.To != emotion.ModeCalming || t.Module == 0 || b.level == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if _, err := b.progress.SetLastPlayed(ctx, b.ref.ID, b.level, t.Module); err != nil {
		b.logger.Error(fmt.Sprintf("saving last played game: %v", err), errors.Wrap(err, "saving last played game"), b.ref)
	}
}

// episodeRecorder logs each calming episode when the child goes back to learning
// and sends its summary to the parents.
type episodeRecorder struct {
	child    child.Child
	sessions SessionService
	parents  ParentLister
	mailer   core.EmailService
	logger   core.Logger

	mu            sync.Mutex
	start         time.Time
	before        string
	gamesFinished int
}

func (r *episodeRecorder) gameCompleted() {
	r.mu.Lock()
	if !r.start.IsZero() {
		r.gamesFinished++
	}
	r.mu.Unlock()
}

func (r *episodeRecorder) OnTransition(t emotion.Transition) {
	r.mu.Lock()
	if t.To == emotion.ModeCalming {
		r.start = t.At
		r.before = dominant(t.Window)
		r.gamesFinished = 0
		r.mu.Unlock()
		return
	}
	if r.start.IsZero() {
		r.mu.Unlock()
		return
	}
	nc := session.NewCalmingEpisode{
		ChildID:        r.child.ID,
		StartTime:      r.start,
		EndTime:        t.At,
		EmotionBefore:  r.before,
		EmotionAfter:   dominant(t.Window),
		GamesCompleted: r.gamesFinished,
		ResumeModule:   t.Module,
	}
	r.start = time.Time{}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	ep, err := r.sessions.SaveCalming(ctx, nc)
	if err != nil {
		r.logger.Error(fmt.Sprintf("saving calming episode: %v", err), err, r.child.Ref())
		return
	}
	r.notifyParents(ctx, ep)
}

func (r *episodeRecorder) notifyParents(ctx context.Context, ep session.CalmingEpisode) {
	if r.mailer == nil {
		return
	}
	parents, err := r.parents.Parents(ctx, r.child.ID)
	if err != nil {
		r.logger.Error(fmt.Sprintf("querying parents: %v", err), err, r.child.Ref())
		return
	}

	msgs := make([]*core.EmailMessage, 0, len(parents))
	for _, p := range parents {
		if p.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: p.Name, Address: p.Email}},
			Subject:      fmt.Sprintf("%s took a calming break", r.child.Name),
			TemplateName: "calming_episode",
			TemplateData: map[string]interface{}{
				"ChildName":       r.child.Name,
				"DurationMinutes": ep.DurationMinutes,
				"EmotionBefore":   ep.EmotionBefore,
				"EmotionAfter":    ep.EmotionAfter,
				"ResumeModule":    ep.ResumeModule,
			},
		})
	}
	if len(msgs) > 0 {
		r.mailer.SendMessages(msgs...)
	}
}

// dominant returns the most frequent label of window, the latest one winning ties.
func dominant(window []emotion.Sample) string {
	counts := make(map[string]int, len(window))
	var best string
	for _, s := range window {
		counts[s.Emotion]++
		if counts[s.Emotion] >= counts[best] {
			best = s.Emotion
		}
	}
	return best
}

type broadcastListener struct {
	childID      string
	broadcasters []Broadcaster
}

func (bl broadcastListener) OnTransition(t emotion.Transition) {
	for _, b := range bl.broadcasters {
		b.Publish(bl.childID, t)
	}
}
