package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/geocoder89/fishin/internal/domain/fish"
)

type LoadState int

const (
	Idle LoadState = iota
	Loading
	Populated
)

func (s LoadState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Populated:
		return "populated"
	default:
		return "unknown"
	}
}

// FishStore is the part of API the list needs.
type FishStore interface {
	ListFish(ctx context.Context) ([]fish.Fish, error)
	CreateFish(ctx context.Context, p fish.Params) (fish.Fish, error)
	UpdateFish(ctx context.Context, id int64, p fish.Params) (fish.Fish, error)
	DeleteFish(ctx context.Context, id int64) (fish.Fish, error)
}

// FishList holds the client copy of the fish collection and its two forms.
// The collection is only ever replaced by a full fetch, never patched locally.
// Failures are logged and leave the previous state in place.
type FishList struct {
	api FishStore
	log *slog.Logger

	mu       sync.Mutex
	state    LoadState
	loaded   bool
	fishes   []fish.Fish
	newFish  fish.Params
	editFish fish.Params
}

func NewFishList(api FishStore, log *slog.Logger) *FishList {
	if log == nil {
		log = slog.Default()
	}
	return &FishList{api: api, log: log}
}

func (l *FishList) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Fishes returns a copy of the current collection.
func (l *FishList) Fishes() []fish.Fish {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]fish.Fish, len(l.fishes))
	copy(out, l.fishes)
	return out
}

func (l *FishList) NewFish() fish.Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.newFish
}

func (l *FishList) SetNewFish(p fish.Params) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.newFish = p
}

func (l *FishList) EditFish() fish.Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editFish
}

func (l *FishList) SetEditFish(p fish.Params) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.editFish = p
}

func (l *FishList) ResetEditForm() {
	l.SetEditFish(fish.Params{})
}

// Load fetches the full collection and replaces the local copy.
func (l *FishList) Load(ctx context.Context) {
	l.mu.Lock()
	l.state = Loading
	l.mu.Unlock()

	fishes, err := l.api.ListFish(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		l.log.ErrorContext(ctx, "load fish failed", "err", err)
		// overlapping loads may have finished meanwhile; fall back on what is held
		if l.loaded {
			l.state = Populated
		} else {
			l.state = Idle
		}
		return
	}

	l.fishes = fishes
	l.loaded = true
	l.state = Populated
}

// Post creates a fish from the new-fish form, clears the form on success and
// then reloads the collection.
func (l *FishList) Post(ctx context.Context) {
	if _, err := l.api.CreateFish(ctx, l.NewFish()); err != nil {
		l.log.ErrorContext(ctx, "create fish failed", "err", err)
	} else {
		l.SetNewFish(fish.Params{})
	}

	l.Load(ctx)
}

func (l *FishList) Update(ctx context.Context, id int64) {
	if _, err := l.api.UpdateFish(ctx, id, l.EditFish()); err != nil {
		l.log.ErrorContext(ctx, "update fish failed", "id", id, "err", err)
	} else {
		l.ResetEditForm()
	}

	l.Load(ctx)
}

func (l *FishList) Delete(ctx context.Context, id int64) {
	if _, err := l.api.DeleteFish(ctx, id); err != nil {
		l.log.ErrorContext(ctx, "delete fish failed", "id", id, "err", err)
	}

	l.Load(ctx)
}
