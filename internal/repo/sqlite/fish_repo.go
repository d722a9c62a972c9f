package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/geocoder89/fishin/internal/domain/fish"
	"github.com/jmoiron/sqlx"
)

const fishColumns = `id, name, category, created_at, updated_at`

// FishRepo reads rows back with a plain SELECT after each write: the driver
// only decodes TIMESTAMP columns into time.Time when it can see the column's
// declared type.
type FishRepo struct {
	db  *sqlx.DB
	obs Observer
}

func NewFishRepo(db *sqlx.DB, obs Observer) *FishRepo {
	return &FishRepo{db: db, obs: observerOrNoop(obs)}
}

func (r *FishRepo) List(ctx context.Context) ([]fish.Fish, error) {
	out := make([]fish.Fish, 0)

	err := r.obs.ObserveDB("fish.list", func() error {
		return r.db.SelectContext(ctx, &out, `SELECT `+fishColumns+` FROM fish ORDER BY id ASC`)
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *FishRepo) GetByID(ctx context.Context, id int64) (fish.Fish, error) {
	var f fish.Fish

	err := r.obs.ObserveDB("fish.get", func() error {
		return getFish(ctx, r.db, &f, id)
	})

	return f, notFoundOr(err)
}

func (r *FishRepo) Create(ctx context.Context, p fish.Params) (fish.Fish, error) {
	var f fish.Fish
	ts := now()

	err := r.obs.ObserveDB("fish.create", func() error {
		return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO fish (name, category, created_at, updated_at) VALUES (?, ?, ?, ?)`,
				p.Name, p.Category, ts, ts,
			)
			if err != nil {
				return err
			}

			id, err := res.LastInsertId()
			if err != nil {
				return err
			}

			return getFish(ctx, tx, &f, id)
		})
	})
	if err != nil {
		return fish.Fish{}, err
	}

	return f, nil
}

func (r *FishRepo) Update(ctx context.Context, id int64, p fish.Params) (fish.Fish, error) {
	var f fish.Fish

	err := r.obs.ObserveDB("fish.update", func() error {
		return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
			res, err := tx.ExecContext(ctx,
				`UPDATE fish SET name = ?, category = ?, updated_at = ? WHERE id = ?`,
				p.Name, p.Category, now(), id,
			)
			if err != nil {
				return err
			}

			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				return sql.ErrNoRows
			}

			return getFish(ctx, tx, &f, id)
		})
	})

	return f, notFoundOr(err)
}

func (r *FishRepo) Patch(ctx context.Context, id int64, p fish.Patch) (fish.Fish, error) {
	var f fish.Fish

	err := r.obs.ObserveDB("fish.patch", func() error {
		return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
			res, err := tx.ExecContext(ctx,
				`UPDATE fish
				 SET name = COALESCE(?, name), category = COALESCE(?, category), updated_at = ?
				 WHERE id = ?`,
				p.Name, p.Category, now(), id,
			)
			if err != nil {
				return err
			}

			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				return sql.ErrNoRows
			}

			return getFish(ctx, tx, &f, id)
		})
	})

	return f, notFoundOr(err)
}

func (r *FishRepo) Delete(ctx context.Context, id int64) (fish.Fish, error) {
	var f fish.Fish

	err := r.obs.ObserveDB("fish.delete", func() error {
		return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
			if err := getFish(ctx, tx, &f, id); err != nil {
				return err
			}

			_, err := tx.ExecContext(ctx, `DELETE FROM fish WHERE id = ?`, id)
			return err
		})
	})

	return f, notFoundOr(err)
}

func getFish(ctx context.Context, q sqlx.QueryerContext, f *fish.Fish, id int64) error {
	return sqlx.GetContext(ctx, q, f, `SELECT `+fishColumns+` FROM fish WHERE id = ?`, id)
}

func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func notFoundOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fish.ErrNotFound
	}
	return err
}
