package db

import (
	"context"
	"errors"

	"github.com/geocoder89/fishin/internal/config"
	"github.com/geocoder89/fishin/internal/domain/user"
	"github.com/geocoder89/fishin/internal/security"
)

type UserSeeder interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, email, passwordHash, name string) (user.User, error)
}

// EnsureSeedUser creates the configured seed account once. It is a no-op when
// no seed credentials are configured or the account already exists.
func EnsureSeedUser(ctx context.Context, users UserSeeder, cfg config.Config) error {
	email := user.NormalizeEmail(cfg.SeedUserEmail)
	if email == "" || cfg.SeedUserPassword == "" {
		return nil
	}

	_, err := users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.SeedUserPassword)
	if err != nil {
		return err
	}

	_, err = users.Create(ctx, email, hash, cfg.SeedUserName)
	if errors.Is(err, user.ErrEmailTaken) {
		// another instance won the race
		return nil
	}

	return err
}
