package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/fishin/internal/domain/fish"
)

type FishRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]fish.Fish
}

func NewFishRepo() *FishRepo {
	return &FishRepo{
		items: make(map[int64]fish.Fish),
	}
}

func (r *FishRepo) List(ctx context.Context) ([]fish.Fish, error) {
	r.mu.RLock()
	out := make([]fish.Fish, 0, len(r.items))
	for _, f := range r.items {
		out = append(out, f)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *FishRepo) GetByID(ctx context.Context, id int64) (fish.Fish, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.items[id]
	if !ok {
		return fish.Fish{}, fish.ErrNotFound
	}

	return f, nil
}

func (r *FishRepo) Create(ctx context.Context, p fish.Params) (fish.Fish, error) {
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	f := fish.Fish{
		ID:        r.nextID,
		Name:      p.Name,
		Category:  p.Category,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.items[f.ID] = f

	return f, nil
}

func (r *FishRepo) Update(ctx context.Context, id int64, p fish.Params) (fish.Fish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.items[id]
	if !ok {
		return fish.Fish{}, fish.ErrNotFound
	}

	f.Name = p.Name
	f.Category = p.Category
	f.UpdatedAt = time.Now().UTC()
	r.items[id] = f

	return f, nil
}

func (r *FishRepo) Patch(ctx context.Context, id int64, p fish.Patch) (fish.Fish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.items[id]
	if !ok {
		return fish.Fish{}, fish.ErrNotFound
	}

	f = p.Apply(f)
	f.UpdatedAt = time.Now().UTC()
	r.items[id] = f

	return f, nil
}

func (r *FishRepo) Delete(ctx context.Context, id int64) (fish.Fish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.items[id]
	if !ok {
		return fish.Fish{}, fish.ErrNotFound
	}
	delete(r.items, id)

	return f, nil
}
