package fish

import (
	"errors"
	"strconv"
	"time"
)

var ErrNotFound = errors.New("fish not found")

type Fish struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Category  string    `json:"category" db:"category"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Params is the whitelisted set of writable fields. Anything else in the
// request body is dropped during binding.
type Params struct {
	Name     string `json:"name" binding:"required,max=120"`
	Category string `json:"category" binding:"max=80"`
}

// WriteRequest is the body of create and full update: {"fish": {...}}.
type WriteRequest struct {
	Fish *Params `json:"fish" binding:"required"`
}

// Patch carries only the fields a partial update sent. Nil fields keep their
// stored value; a sent name must still be non-empty.
type Patch struct {
	Name     *string `json:"name,omitempty" binding:"omitempty,min=1,max=120"`
	Category *string `json:"category,omitempty" binding:"omitempty,max=80"`
}

// PatchRequest is the body of a partial update: {"fish": {...}}.
type PatchRequest struct {
	Fish *Patch `json:"fish" binding:"required"`
}

// Apply returns f with the sent fields overwritten.
func (p Patch) Apply(f Fish) Fish {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Category != nil {
		f.Category = *p.Category
	}
	return f
}

const (
	// ListCacheKey prefixes the cached full ordered collection. The stored key
	// also carries the current list generation.
	ListCacheKey = "fish:list:v1"
	// ListGenerationKey is bumped by every mutation. A list body read under an
	// older generation is never served again.
	ListGenerationKey = "fish:list:gen"
)

// ListCacheKeyFor returns the collection key for generation gen.
func ListCacheKeyFor(gen int64) string {
	return ListCacheKey + ":" + strconv.FormatInt(gen, 10)
}

// ParseID parses a path id. Ids are positive store-assigned integers.
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
