package emotion

import (
	"context"
	"strconv"
	"strings"
	"sync"
)

const (
	resumePrefix = "#module-"

	// DefaultModulesPerLevel is the number of learning modules in a level. It matches the six game
	// slots of a level's progress and the max=6 bounds on module & game ids.
	DefaultModulesPerLevel = 6
)

// ResumeStore keeps one-shot resume signals per child.
// Take must clear the signal so that a second read yields none.
type ResumeStore interface {
	Put(ctx context.Context, childID string, moduleID int) error
	Take(ctx context.Context, childID string) (int, bool, error)
}

// FormatResumeFragment returns the URL fragment telling the host page which module to reactivate.
func FormatResumeFragment(moduleID int) string {
	return resumePrefix + strconv.Itoa(moduleID)
}

// ParseResumeFragment validates a `#module-<n>` fragment, n being an integer in [1, maxModule].
// Anything else is ignored.
func ParseResumeFragment(fragment string, maxModule int) (int, bool) {
	if !strings.HasPrefix(fragment, resumePrefix) {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimPrefix(fragment, resumePrefix))
	if err != nil || id < 1 || id > maxModule {
		return 0, false
	}
	return id, true
}

// ResumeSlot holds at most one pending resume fragment; reading it clears it.
type ResumeSlot struct {
	mu        sync.Mutex
	fragment  string
	maxModule int
}

func NewResumeSlot(maxModule int) *ResumeSlot {
	if maxModule <= 0 {
		maxModule = DefaultModulesPerLevel
	}
	return &ResumeSlot{maxModule: maxModule}
}

func (rs *ResumeSlot) Put(moduleID int) {
	rs.PutFragment(FormatResumeFragment(moduleID))
}

func (rs *ResumeSlot) PutFragment(fragment string) {
	rs.mu.Lock()
	rs.fragment = fragment
	rs.mu.Unlock()
}

// Take reads & clears the slot. An invalid fragment is dropped.
func (rs *ResumeSlot) Take() (int, bool) {
	rs.mu.Lock()
	fragment := rs.fragment
	rs.fragment = ""
	rs.mu.Unlock()
	return ParseResumeFragment(fragment, rs.maxModule)
}
