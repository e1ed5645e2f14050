package avatar

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/tulia/core"
)

type (
	Repository interface {
		GetAvatar(ctx context.Context, childID string, exec ...core.DBExecutor) (Config, error)
		UpsertAvatar(ctx context.Context, cfg Config, exec ...core.DBExecutor) (Config, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the child's avatar, or the default one if it was never customized.
func (svc *Service) Get(ctx context.Context, childID string, exec ...core.DBExecutor) (Config, error) {
	cfg, err := svc.repo.GetAvatar(ctx, childID, exec...)
	if err != nil {
		if core.IsNotFound(err) {
			return Default(childID), nil
		}
		return Config{}, errors.Wrap(err, "getting avatar")
	}
	return cfg, nil
}

// Update applies uc (already validated) to the child's avatar.
func (svc *Service) Update(ctx context.Context, childID string, uc UpdateConfig, exec ...core.DBExecutor) (Config, error) {
	cfg, err := svc.Get(ctx, childID, exec...)
	if err != nil {
		return Config{}, err
	}
	cfg = uc.Apply(cfg)
	cfg.ChildID = childID
	return svc.repo.UpsertAvatar(ctx, cfg, exec...)
}
