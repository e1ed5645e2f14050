package inmemdb

import (
	"sync"

	"github.com/trezcool/tulia/core/avatar"
	"github.com/trezcool/tulia/core/child"
	"github.com/trezcool/tulia/core/progress"
	"github.com/trezcool/tulia/core/session"
)

type (
	// DB is a process-local database for tests & DEV without postgres.
	DB struct {
		children *childTable
		parents  *parentTable
		avatars  *avatarTable
		progress *progressTable
		sessions *sessionTable
	}

	childTable struct {
		table map[string]*child.Child
		mutex sync.RWMutex
	}

	parentTable struct {
		table map[string]*child.Parent
		mutex sync.RWMutex
	}

	avatarTable struct {
		table map[string]*avatar.Config // {childID: config}
		mutex sync.RWMutex
	}

	levelKey struct {
		childID string
		level   int
	}

	progressTable struct {
		states map[levelKey]progress.LevelState
		scores []progress.GameScore
		mutex  sync.RWMutex
	}

	sessionTable struct {
		games    []session.GameSession
		episodes []session.CalmingEpisode
		mutex    sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		children: &childTable{table: make(map[string]*child.Child)},
		parents:  &parentTable{table: make(map[string]*child.Parent)},
		avatars:  &avatarTable{table: make(map[string]*avatar.Config)},
		progress: &progressTable{states: make(map[levelKey]progress.LevelState)},
		sessions: &sessionTable{},
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	fresh := Open()
	db.children.mutex.Lock()
	db.children.table = fresh.children.table
	db.children.mutex.Unlock()

	db.parents.mutex.Lock()
	db.parents.table = fresh.parents.table
	db.parents.mutex.Unlock()

	db.avatars.mutex.Lock()
	db.avatars.table = fresh.avatars.table
	db.avatars.mutex.Unlock()

	db.progress.mutex.Lock()
	db.progress.states = fresh.progress.states
	db.progress.scores = nil
	db.progress.mutex.Unlock()

	db.sessions.mutex.Lock()
	db.sessions.games = nil
	db.sessions.episodes = nil
	db.sessions.mutex.Unlock()
}

// deleteChildData removes everything attached to childID but the child row itself.
func (db *DB) deleteChildData(childID string) {
	db.parents.mutex.Lock()
	for id, p := range db.parents.table {
		if p.ChildID == childID {
			delete(db.parents.table, id)
		}
	}
	db.parents.mutex.Unlock()

	db.avatars.mutex.Lock()
	delete(db.avatars.table, childID)
	db.avatars.mutex.Unlock()

	db.progress.mutex.Lock()
	for key := range db.progress.states {
		if key.childID == childID {
			delete(db.progress.states, key)
		}
	}
	scores := db.progress.scores[:0]
	for _, s := range db.progress.scores {
		if s.ChildID != childID {
			scores = append(scores, s)
		}
	}
	db.progress.scores = scores
	db.progress.mutex.Unlock()

	db.sessions.mutex.Lock()
	games := db.sessions.games[:0]
	for _, g := range db.sessions.games {
		if g.ChildID != childID {
			games = append(games, g)
		}
	}
	db.sessions.games = games
	episodes := db.sessions.episodes[:0]
	for _, e := range db.sessions.episodes {
		if e.ChildID != childID {
			episodes = append(episodes, e)
		}
	}
	db.sessions.episodes = episodes
	db.sessions.mutex.Unlock()
}
