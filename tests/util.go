package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/child"
	logsvc "github.com/trezcool/tulia/services/logger"
)

func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Database.Engine = "memory"
	return conf
}

// NewLogger returns a silent logger with reporting disabled.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

func CreateChild(t *testing.T, repo child.Repository, name string, age, level int, createdAt ...time.Time) child.Child {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	chld, err := repo.CreateChild(context.Background(), child.Child{
		Name:               name,
		Age:                age,
		Gender:             child.GenderOther,
		AutismSupportLevel: 1,
		CurrentLevel:       level,
		CreatedAt:          tstamp,
		UpdatedAt:          tstamp,
	})
	if err != nil {
		t.Fatalf("CreateChild() failed: %v", err)
	}
	return chld
}

func CreateParent(t *testing.T, repo child.Repository, childID, name, email string) child.Parent {
	parent, err := repo.CreateParent(context.Background(), child.Parent{
		ChildID:   childID,
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateParent() failed: %v", err)
	}
	return parent
}
