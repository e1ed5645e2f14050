package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/child"
)

type (
	childRow struct {
		ID                 string    `db:"id"`
		Name               string    `db:"name"`
		Age                int       `db:"age"`
		Gender             string    `db:"gender"`
		AutismSupportLevel int       `db:"autism_support_level"`
		CurrentLevel       int       `db:"current_level"`
		CreatedAt          time.Time `db:"created_at"`
		UpdatedAt          time.Time `db:"updated_at"`
	}

	parentRow struct {
		ID               string      `db:"id"`
		ChildID          string      `db:"child_id"`
		Name             string      `db:"name"`
		Email            string      `db:"email"`
		PhoneNumber      null.String `db:"phone_number"`
		CameraPermission bool        `db:"camera_permission"`
		MicPermission    bool        `db:"mic_permission"`
		CreatedAt        time.Time   `db:"created_at"`
	}
)

func (r childRow) child() child.Child {
	return child.Child{
		ID:                 r.ID,
		Name:               r.Name,
		Age:                r.Age,
		Gender:             r.Gender,
		AutismSupportLevel: r.AutismSupportLevel,
		CurrentLevel:       r.CurrentLevel,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}

func (r parentRow) parent() child.Parent {
	return child.Parent{
		ID:               r.ID,
		ChildID:          r.ChildID,
		Name:             r.Name,
		Email:            r.Email,
		PhoneNumber:      r.PhoneNumber.String,
		CameraPermission: r.CameraPermission,
		MicPermission:    r.MicPermission,
		CreatedAt:        r.CreatedAt.UTC(),
	}
}

const childColumns = "id, name, age, gender, autism_support_level, current_level, created_at, updated_at"

type childRepository struct {
	repository
}

var _ child.Repository = (*childRepository)(nil) // interface compliance check

func NewChildRepository(exec core.DBExecutor) *childRepository {
	return &childRepository{repository{exec: exec}}
}

func (repo childRepository) CreateChild(ctx context.Context, chld child.Child, exec ...core.DBExecutor) (child.Child, error) {
	chld.ID = uuid.New().String()
	chld.Avatar = nil
	_, err := repo.getExec(exec).ExecContext(ctx,
		"INSERT INTO child ("+childColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		chld.ID, chld.Name, chld.Age, chld.Gender, chld.AutismSupportLevel, chld.CurrentLevel,
		chld.CreatedAt.UTC(), chld.UpdatedAt.UTC(),
	)
	if err != nil {
		return child.Child{}, errors.Wrap(err, "inserting child")
	}
	return chld, nil
}

func (repo childRepository) CreateParent(ctx context.Context, parent child.Parent, exec ...core.DBExecutor) (child.Parent, error) {
	parent.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO parent (id, child_id, name, email, phone_number, camera_permission, mic_permission, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		parent.ID, parent.ChildID, parent.Name, parent.Email,
		null.NewString(parent.PhoneNumber, parent.PhoneNumber != ""),
		parent.CameraPermission, parent.MicPermission, parent.CreatedAt.UTC(),
	)
	if err != nil {
		return child.Parent{}, errors.Wrap(err, "inserting parent")
	}
	return parent, nil
}

func (repo childRepository) GetChild(ctx context.Context, id string, exec ...core.DBExecutor) (child.Child, error) {
	if _, err := uuid.Parse(id); err != nil {
		return child.Child{}, child.ErrNotFound
	}
	var row childRow
	if err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+childColumns+" FROM child WHERE id = $1", id); err != nil {
		return child.Child{}, trapNoRowsErr(err, child.ErrNotFound, "finding child by ID")
	}
	return row.child(), nil
}

func (repo childRepository) QueryParents(ctx context.Context, childID string, exec ...core.DBExecutor) ([]child.Parent, error) {
	var rows []parentRow
	err := repo.getExec(exec).SelectContext(ctx, &rows,
		`SELECT id, child_id, name, email, phone_number, camera_permission, mic_permission, created_at
		FROM parent WHERE child_id = $1 ORDER BY created_at`, childID)
	if err != nil {
		return nil, errors.Wrap(err, "querying parents")
	}
	parents := make([]child.Parent, 0, len(rows))
	for _, r := range rows {
		parents = append(parents, r.parent())
	}
	return parents, nil
}

func (repo childRepository) UpdateChild(ctx context.Context, chld child.Child, exec ...core.DBExecutor) (child.Child, error) {
	var row childRow
	err := repo.getExec(exec).GetContext(ctx, &row,
		"UPDATE child SET current_level = $2, updated_at = $3 WHERE id = $1 RETURNING "+childColumns,
		chld.ID, chld.CurrentLevel, chld.UpdatedAt.UTC(),
	)
	if err != nil {
		return child.Child{}, trapNoRowsErr(err, child.ErrNotFound, "updating child")
	}
	return row.child(), nil
}

// DeleteChild relies on ON DELETE CASCADE for the child's records.
func (repo childRepository) DeleteChild(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return child.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM child WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting child")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return child.ErrNotFound
	}
	return nil
}
