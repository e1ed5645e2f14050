package child

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/avatar"
)

var ErrNotFound = core.NewNotFoundError("child")

type (
	Repository interface {
		CreateChild(ctx context.Context, chld Child, exec ...core.DBExecutor) (Child, error)
		CreateParent(ctx context.Context, parent Parent, exec ...core.DBExecutor) (Parent, error)
		GetChild(ctx context.Context, id string, exec ...core.DBExecutor) (Child, error)
		QueryParents(ctx context.Context, childID string, exec ...core.DBExecutor) ([]Parent, error)
		UpdateChild(ctx context.Context, chld Child, exec ...core.DBExecutor) (Child, error)
		// DeleteChild removes the child and their parents.
		DeleteChild(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// Registration is what Register returns.
	Registration struct {
		Child  Child  `json:"child"`
		Parent Parent `json:"parent"`
	}

	Service struct {
		db        core.DB
		repo      Repository
		avatarSvc *avatar.Service
	}
)

func NewService(db core.DB, repo Repository, avatarSvc *avatar.Service) *Service {
	return &Service{db: db, repo: repo, avatarSvc: avatarSvc}
}

// Register creates a child (level 1, default avatar) along with their parent.
func (svc *Service) Register(ctx context.Context, nr NewRegistration) (Registration, error) {
	var reg Registration
	now := time.Now().UTC()

	err := core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		chld, err := svc.repo.CreateChild(ctx, Child{
			Name:               nr.Name,
			Age:                nr.Age,
			Gender:             nr.Gender,
			AutismSupportLevel: nr.AutismSupportLevel,
			CurrentLevel:       1,
			CreatedAt:          now,
			UpdatedAt:          now,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "creating child")
		}

		parent, err := svc.repo.CreateParent(ctx, Parent{
			ChildID:          chld.ID,
			Name:             nr.Parent.Name,
			Email:            nr.Parent.Email,
			PhoneNumber:      nr.Parent.PhoneNumber,
			CameraPermission: nr.Parent.CameraPermission,
			MicPermission:    nr.Parent.MicPermission,
			CreatedAt:        now,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "creating parent")
		}

		cfg, err := svc.avatarSvc.Get(ctx, chld.ID, exec)
		if err != nil {
			return err
		}
		chld.Avatar = &cfg

		reg = Registration{Child: chld, Parent: parent}
		return nil
	})
	return reg, err
}

// Get returns the child with their avatar.
func (svc *Service) Get(ctx context.Context, id string) (Child, error) {
	chld, err := svc.repo.GetChild(ctx, id)
	if err != nil {
		return Child{}, err
	}
	cfg, err := svc.avatarSvc.Get(ctx, chld.ID)
	if err != nil {
		return Child{}, err
	}
	chld.Avatar = &cfg
	return chld, nil
}

func (svc *Service) Parents(ctx context.Context, childID string) ([]Parent, error) {
	return svc.repo.QueryParents(ctx, childID)
}

// Update applies uc (already validated) to chld.
func (svc *Service) Update(ctx context.Context, chld Child, uc UpdateChild) (Child, error) {
	err := core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		if uc.CurrentLevel != nil {
			chld.CurrentLevel = *uc.CurrentLevel
		}
		chld.UpdatedAt = time.Now().UTC()

		updated, err := svc.repo.UpdateChild(ctx, chld, exec)
		if err != nil {
			return errors.Wrap(err, "updating child")
		}

		var cfg avatar.Config
		if uc.Avatar != nil {
			cfg, err = svc.avatarSvc.Update(ctx, chld.ID, *uc.Avatar, exec)
		} else {
			cfg, err = svc.avatarSvc.Get(ctx, chld.ID, exec)
		}
		if err != nil {
			return errors.Wrap(err, "updating avatar")
		}
		updated.Avatar = &cfg
		chld = updated
		return nil
	})
	return chld, err
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteChild(ctx, id)
}
