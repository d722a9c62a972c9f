package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/geocoder89/fishin/internal/domain/user"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

const userColumns = `id, email, password_hash, name, created_at, updated_at`

type UsersRepo struct {
	db  *sqlx.DB
	obs Observer
}

func NewUsersRepo(db *sqlx.DB, obs Observer) *UsersRepo {
	return &UsersRepo{db: db, obs: observerOrNoop(obs)}
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash, name string) (user.User, error) {
	var u user.User
	ts := now()

	err := r.obs.ObserveDB("users.create", func() error {
		return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO users (email, password_hash, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
				email, passwordHash, name, ts, ts,
			)
			if err != nil {
				return err
			}

			id, err := res.LastInsertId()
			if err != nil {
				return err
			}

			return tx.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
		})
	})

	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

// GetByEmail matches case-insensitively through the column's NOCASE collation.
func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB("users.get_by_email", func() error {
		return r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}
