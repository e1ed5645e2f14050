package sqlxrepos

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/avatar"
)

var errAvatarNotFound = core.NewNotFoundError("avatar")

type avatarRow struct {
	ChildID        string         `db:"child_id"`
	Seed           string         `db:"seed"`
	Style          string         `db:"style"`
	Enhancements   types.JSONText `db:"enhancements"`
	PrimaryColor   null.String    `db:"primary_color"`
	SecondaryColor null.String    `db:"secondary_color"`
}

func (r avatarRow) config() (avatar.Config, error) {
	cfg := avatar.Default(r.ChildID)
	cfg.Seed = r.Seed
	cfg.Style = r.Style
	if err := r.Enhancements.Unmarshal(&cfg.Enhancements); err != nil {
		return avatar.Config{}, errors.Wrap(err, "decoding enhancements")
	}
	if r.PrimaryColor.Valid {
		cfg.Colors.Primary = r.PrimaryColor.String
	}
	if r.SecondaryColor.Valid {
		cfg.Colors.Secondary = r.SecondaryColor.String
	}
	return cfg, nil
}

type avatarRepository struct {
	repository
}

var _ avatar.Repository = (*avatarRepository)(nil) // interface compliance check

func NewAvatarRepository(exec core.DBExecutor) *avatarRepository {
	return &avatarRepository{repository{exec: exec}}
}

func (repo avatarRepository) GetAvatar(ctx context.Context, childID string, exec ...core.DBExecutor) (avatar.Config, error) {
	var row avatarRow
	err := repo.getExec(exec).GetContext(ctx, &row,
		"SELECT child_id, seed, style, enhancements, primary_color, secondary_color FROM avatar WHERE child_id = $1", childID)
	if err != nil {
		return avatar.Config{}, trapNoRowsErr(err, errAvatarNotFound, "finding avatar")
	}
	return row.config()
}

func (repo avatarRepository) UpsertAvatar(ctx context.Context, cfg avatar.Config, exec ...core.DBExecutor) (avatar.Config, error) {
	enhancements, err := json.Marshal(cfg.Enhancements)
	if err != nil {
		return avatar.Config{}, errors.Wrap(err, "encoding enhancements")
	}
	_, err = repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO avatar (child_id, seed, style, enhancements, primary_color, secondary_color)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (child_id) DO UPDATE SET
			seed = EXCLUDED.seed, style = EXCLUDED.style, enhancements = EXCLUDED.enhancements,
			primary_color = EXCLUDED.primary_color, secondary_color = EXCLUDED.secondary_color`,
		cfg.ChildID, cfg.Seed, cfg.Style, types.JSONText(enhancements),
		null.NewString(cfg.Colors.Primary, cfg.Colors.Primary != ""),
		null.NewString(cfg.Colors.Secondary, cfg.Colors.Secondary != ""),
	)
	if err != nil {
		return avatar.Config{}, errors.Wrap(err, "upserting avatar")
	}
	return cfg, nil
}
