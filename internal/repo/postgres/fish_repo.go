package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/fishin/internal/domain/fish"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const fishColumns = `id, name, category, created_at, updated_at`

type FishRepo struct {
	pool *pgxpool.Pool
	obs  Observer
}

func NewFishRepo(pool *pgxpool.Pool, obs Observer) *FishRepo {
	return &FishRepo{pool: pool, obs: observerOrNoop(obs)}
}

func scanFish(row pgx.Row) (fish.Fish, error) {
	var f fish.Fish
	err := row.Scan(&f.ID, &f.Name, &f.Category, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (r *FishRepo) List(ctx context.Context) ([]fish.Fish, error) {
	out := make([]fish.Fish, 0)

	err := r.obs.ObserveDB("fish.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+fishColumns+` FROM fish ORDER BY id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			f, err := scanFish(rows)
			if err != nil {
				return err
			}
			out = append(out, f)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *FishRepo) GetByID(ctx context.Context, id int64) (fish.Fish, error) {
	var f fish.Fish

	err := r.obs.ObserveDB("fish.get", func() (err error) {
		f, err = scanFish(r.pool.QueryRow(ctx, `SELECT `+fishColumns+` FROM fish WHERE id = $1`, id))
		return err
	})

	return f, notFoundOr(err)
}

func (r *FishRepo) Create(ctx context.Context, p fish.Params) (fish.Fish, error) {
	var f fish.Fish

	err := r.obs.ObserveDB("fish.create", func() (err error) {
		f, err = scanFish(r.pool.QueryRow(ctx,
			`INSERT INTO fish (name, category) VALUES ($1, $2) RETURNING `+fishColumns,
			p.Name, p.Category,
		))
		return err
	})

	if err != nil {
		return fish.Fish{}, err
	}

	return f, nil
}

func (r *FishRepo) Update(ctx context.Context, id int64, p fish.Params) (fish.Fish, error) {
	var f fish.Fish

	err := r.obs.ObserveDB("fish.update", func() (err error) {
		f, err = scanFish(r.pool.QueryRow(ctx,
			`UPDATE fish
			 SET name = $2,
			     category = $3,
			     updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+fishColumns,
			id, p.Name, p.Category,
		))
		return err
	})

	return f, notFoundOr(err)
}

// Patch updates only the columns whose value was sent; NULL keeps the column.
func (r *FishRepo) Patch(ctx context.Context, id int64, p fish.Patch) (fish.Fish, error) {
	var f fish.Fish

	err := r.obs.ObserveDB("fish.patch", func() (err error) {
		f, err = scanFish(r.pool.QueryRow(ctx,
			`UPDATE fish
			 SET name = COALESCE($2, name),
			     category = COALESCE($3, category),
			     updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+fishColumns,
			id, p.Name, p.Category,
		))
		return err
	})

	return f, notFoundOr(err)
}

func (r *FishRepo) Delete(ctx context.Context, id int64) (fish.Fish, error) {
	var f fish.Fish

	err := r.obs.ObserveDB("fish.delete", func() (err error) {
		f, err = scanFish(r.pool.QueryRow(ctx, `DELETE FROM fish WHERE id = $1 RETURNING `+fishColumns, id))
		return err
	})

	return f, notFoundOr(err)
}

// notFoundOr maps pgx.ErrNoRows to fish.ErrNotFound.
func notFoundOr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fish.ErrNotFound
	}
	return err
}
