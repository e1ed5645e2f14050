package inmemcache

import (
	"context"
	"sync"

	"github.com/trezcool/tulia/core/emotion"
)

// ResumeStore keeps one ResumeSlot per child in memory.
type ResumeStore struct {
	mu        sync.Mutex
	slots     map[string]*emotion.ResumeSlot
	maxModule int
}

var _ emotion.ResumeStore = (*ResumeStore)(nil)

func NewResumeStore(maxModule int) *ResumeStore {
	return &ResumeStore{slots: make(map[string]*emotion.ResumeSlot), maxModule: maxModule}
}

func (rs *ResumeStore) slot(childID string) *emotion.ResumeSlot {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	s, ok := rs.slots[childID]
	if !ok {
		s = emotion.NewResumeSlot(rs.maxModule)
		rs.slots[childID] = s
	}
	return s
}

func (rs *ResumeStore) Put(_ context.Context, childID string, moduleID int) error {
	rs.slot(childID).Put(moduleID)
	return nil
}

func (rs *ResumeStore) Take(_ context.Context, childID string) (int, bool, error) {
	id, ok := rs.slot(childID).Take()
	return id, ok, nil
}
