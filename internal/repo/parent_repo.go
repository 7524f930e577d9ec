package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/bookon-app/bookon/internal/model"
	"github.com/bookon-app/bookon/internal/model/parent"
	"github.com/bookon-app/bookon/internal/serviceerrs"
)

const sqlInsertParent = `
INSERT INTO parents (id, login_hash, password_hash)
VALUES ($1, $2, $3)`

const sqlParentExists = `
SELECT EXISTS(SELECT 1 FROM parents WHERE login_hash = $1)`

const sqlFindParentByLogin = `
SELECT id, login_hash, password_hash FROM parents WHERE login_hash = $1`

const sqlFindParentByID = `
SELECT id, login_hash, password_hash FROM parents WHERE id = $1`

type ParentRepository struct {
	DB
}

func NewParentRepository(pool connectionPool, log *slog.Logger) *ParentRepository {
	return &ParentRepository{
		DB{
			pool: pool,
			log:  log,
		},
	}
}

func (r *ParentRepository) Create(ctx context.Context, p *parent.Parent) error {
	createLogic := func() (struct{}, error) {
		_, err := r.pool.Exec(ctx, sqlInsertParent,
			p.ID, p.LoginHash, p.PasswordHash)
		if err != nil {
			if isUniqueViolation(err) {
				return struct{}{}, serviceerrs.ErrLoginTaken
			}
			return struct{}{}, fmt.Errorf("failed to create parent in DB: %w", err)
		}
		return struct{}{}, nil
	}

	_, err := WithRetry[struct{}](createLogic, 0)
	if errors.Is(err, serviceerrs.ErrLoginTaken) {
		return serviceerrs.ErrLoginTaken
	}
	return err //nolint: wrapcheck // error from wrapped function
}

func (r *ParentRepository) Exists(ctx context.Context, loginHash string) bool {
	existsLogic := func() (bool, error) {
		var exists bool
		err := r.pool.QueryRow(ctx, sqlParentExists, loginHash).Scan(&exists)
		if err != nil {
			r.log.LogAttrs(ctx,
				slog.LevelError,
				"failed to check if loginHash exists in DB",
				slog.Any(model.KeyLoggerError, err),
			)
			return false, nil
		}
		return exists, nil
	}

	exists, _ := WithRetry[bool](existsLogic, 0)
	return exists
}

// nolint: dupl // lookup key differs
func (r *ParentRepository) FindByLogin(ctx context.Context, loginHash string,
) (parent.Parent, error) {
	findLogic := func() (parent.Parent, error) {
		return findParent(ctx, r.pool, sqlFindParentByLogin, loginHash)
	}

	p, err := WithRetry[parent.Parent](findLogic, 0)
	if err != nil {
		return parent.Parent{}, err //nolint: wrapcheck // error from wrapped function
	}
	return p, nil
}

// nolint: dupl // lookup key differs
func (r *ParentRepository) FindByID(ctx context.Context, id string,
) (parent.Parent, error) {
	findLogic := func() (parent.Parent, error) {
		return findParent(ctx, r.pool, sqlFindParentByID, id)
	}

	p, err := WithRetry[parent.Parent](findLogic, 0)
	if err != nil {
		return parent.Parent{}, err //nolint: wrapcheck // error from wrapped function
	}
	return p, nil
}

func findParent(ctx context.Context, pool connectionPool,
	query, key string,
) (parent.Parent, error) {
	var p parent.Parent
	err := pool.QueryRow(ctx, query, key).Scan(&p.ID, &p.LoginHash, &p.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return parent.Parent{}, err //nolint: wrapcheck // callers check pgx.ErrNoRows
		}
		return parent.Parent{}, fmt.Errorf("failed to find parent in DB: %w", err)
	}
	return p, nil
}
