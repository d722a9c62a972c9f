package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/fishin/internal/cache"
	"github.com/geocoder89/fishin/internal/domain/fish"
	"github.com/gin-gonic/gin"
)

const fishStoreTimeout = 3 * time.Second

type FishStore interface {
	List(ctx context.Context) ([]fish.Fish, error)
	GetByID(ctx context.Context, id int64) (fish.Fish, error)
	Create(ctx context.Context, p fish.Params) (fish.Fish, error)
	Update(ctx context.Context, id int64, p fish.Params) (fish.Fish, error)
	Patch(ctx context.Context, id int64, p fish.Patch) (fish.Fish, error)
	Delete(ctx context.Context, id int64) (fish.Fish, error)
}

// CacheMetrics records fish list cache outcomes.
type CacheMetrics interface {
	CacheHit()
	CacheMiss()
	CacheError()
}

type noopCacheMetrics struct{}

func (noopCacheMetrics) CacheHit()   {}
func (noopCacheMetrics) CacheMiss()  {}
func (noopCacheMetrics) CacheError() {}

type FishHandler struct {
	repo    FishStore
	cache   cache.Cache
	metrics CacheMetrics
	log     *slog.Logger
}

// NewFishHandler wires the fish endpoints. listCache may be nil to disable
// caching of the collection.
func NewFishHandler(repo FishStore, listCache cache.Cache, metrics CacheMetrics, log *slog.Logger) *FishHandler {
	if metrics == nil {
		metrics = noopCacheMetrics{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &FishHandler{repo: repo, cache: listCache, metrics: metrics, log: log}
}

func storeContext(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), fishStoreTimeout)
}

// ListFish serves the collection, cached under the current list generation.
// A mutation that lands while the store read is in flight bumps the
// generation, so the body written afterwards sits under a retired key.
func (h *FishHandler) ListFish(ctx *gin.Context) {
	cctx, cancel := storeContext(ctx)
	defer cancel()

	key, cacheable := h.listKey(cctx)

	if cacheable {
		if body, ok := h.cachedList(cctx, key); ok {
			RespondRawJSONWithETag(ctx, http.StatusOK, body)
			return
		}
	}

	items, err := h.repo.List(cctx)
	if err != nil {
		h.log.ErrorContext(cctx, "list fish failed", "err", err)
		RespondInternal(ctx, "Could not list fish")
		return
	}

	body, err := json.Marshal(items)
	if err != nil {
		RespondInternal(ctx, "Could not encode fish")
		return
	}

	if cacheable {
		if err := h.cache.Set(cctx, key, body); err != nil {
			h.metrics.CacheError()
			h.log.WarnContext(cctx, "fish list cache write failed", "err", err)
		}
	}

	RespondRawJSONWithETag(ctx, http.StatusOK, body)
}

// listKey resolves the cache key of the current generation. It reports false
// when there is no cache or the generation cannot be read.
func (h *FishHandler) listKey(ctx context.Context) (string, bool) {
	if h.cache == nil {
		return "", false
	}

	raw, ok, err := h.cache.Get(ctx, fish.ListGenerationKey)
	if err != nil {
		h.metrics.CacheError()
		h.log.WarnContext(ctx, "fish list generation read failed", "err", err)
		return "", false
	}

	var gen int64
	if ok {
		gen, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			h.metrics.CacheError()
			h.log.WarnContext(ctx, "fish list generation is not a number", "value", string(raw))
			return "", false
		}
	}

	return fish.ListCacheKeyFor(gen), true
}

func (h *FishHandler) cachedList(ctx context.Context, key string) ([]byte, bool) {
	body, ok, err := h.cache.Get(ctx, key)
	switch {
	case err != nil:
		h.metrics.CacheError()
		h.log.WarnContext(ctx, "fish list cache read failed", "err", err)
		return nil, false
	case !ok:
		h.metrics.CacheMiss()
		return nil, false
	}

	h.metrics.CacheHit()
	return body, true
}

// invalidateList retires the current list generation. It runs after the store
// write commits and before the response is sent.
func (h *FishHandler) invalidateList(ctx context.Context) {
	if h.cache == nil {
		return
	}

	if _, err := h.cache.Incr(ctx, fish.ListGenerationKey); err != nil {
		h.metrics.CacheError()
		h.log.WarnContext(ctx, "fish list cache invalidation failed", "err", err)
	}
}

func (h *FishHandler) GetFish(ctx *gin.Context) {
	id, ok := fish.ParseID(ctx.Param("id"))
	if !ok {
		RespondNotFound(ctx, "Fish not found")
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	f, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, fish.ErrNotFound) {
			RespondNotFound(ctx, "Fish not found")
			return
		}
		h.log.ErrorContext(cctx, "get fish failed", "id", id, "err", err)
		RespondInternal(ctx, "Could not fetch fish")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, f)
}

func (h *FishHandler) CreateFish(ctx *gin.Context) {
	var req fish.WriteRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	f, err := h.repo.Create(cctx, *req.Fish)
	if err != nil {
		h.log.ErrorContext(cctx, "create fish failed", "err", err)
		RespondInternal(ctx, "Could not create fish")
		return
	}

	h.invalidateList(cctx)

	ctx.JSON(http.StatusOK, f)
}

// UpdateFish serves PUT: the body replaces both name and category.
func (h *FishHandler) UpdateFish(ctx *gin.Context) {
	id, ok := fish.ParseID(ctx.Param("id"))
	if !ok {
		RespondUnprocessable(ctx, "not_found", "Fish not found", nil)
		return
	}

	var req fish.WriteRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	f, err := h.repo.Update(cctx, id, *req.Fish)
	if err != nil {
		if errors.Is(err, fish.ErrNotFound) {
			RespondUnprocessable(ctx, "not_found", "Fish not found", nil)
			return
		}
		h.log.ErrorContext(cctx, "update fish failed", "id", id, "err", err)
		RespondInternal(ctx, "Could not update fish")
		return
	}

	h.invalidateList(cctx)

	ctx.JSON(http.StatusOK, f)
}

// PatchFish serves PATCH: only the keys present in the body change.
func (h *FishHandler) PatchFish(ctx *gin.Context) {
	id, ok := fish.ParseID(ctx.Param("id"))
	if !ok {
		RespondUnprocessable(ctx, "not_found", "Fish not found", nil)
		return
	}

	var req fish.PatchRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	f, err := h.repo.Patch(cctx, id, *req.Fish)
	if err != nil {
		if errors.Is(err, fish.ErrNotFound) {
			RespondUnprocessable(ctx, "not_found", "Fish not found", nil)
			return
		}
		h.log.ErrorContext(cctx, "patch fish failed", "id", id, "err", err)
		RespondInternal(ctx, "Could not update fish")
		return
	}

	h.invalidateList(cctx)

	ctx.JSON(http.StatusOK, f)
}

func (h *FishHandler) DeleteFish(ctx *gin.Context) {
	id, ok := fish.ParseID(ctx.Param("id"))
	if !ok {
		RespondUnprocessable(ctx, "not_found", "Fish not found", nil)
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	f, err := h.repo.Delete(cctx, id)
	if err != nil {
		if errors.Is(err, fish.ErrNotFound) {
			RespondUnprocessable(ctx, "not_found", "Fish not found", nil)
			return
		}
		h.log.ErrorContext(cctx, "delete fish failed", "id", id, "err", err)
		RespondInternal(ctx, "Could not delete fish")
		return
	}

	h.invalidateList(cctx)

	ctx.JSON(http.StatusOK, f)
}
