package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/geocoder89/fishin/internal/auth"
	"github.com/geocoder89/fishin/internal/config"
	"github.com/geocoder89/fishin/internal/db"
	apphttp "github.com/geocoder89/fishin/internal/http"
	"github.com/geocoder89/fishin/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func testConfig() config.Config {
	return config.Config{
		Env:           "test",
		JWTSecret:     "test-secret-key",
		JWTTTLMinutes: 60,
		MaxBodyBytes:  1 << 20,
	}
}

// setupPostgresRouter needs a reachable database; set TEST_DB_DSN to run.
func setupPostgresRouter(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	resetDB(t, pool)
	t.Cleanup(func() { resetDB(t, pool) })

	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := apphttp.NewRouter(logger, cfg, apphttp.Deps{
		Fish:   postgres.NewFishRepo(pool, nil),
		Users:  postgres.NewUsersRepo(pool, nil),
		Tokens: auth.NewManager(cfg.JWTSecret, cfg.JWTTTL()),
	})

	return router, pool
}

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `TRUNCATE fish, users RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPostgresFishLifecycle(t *testing.T) {
	router, _ := setupPostgresRouter(t)

	w := doRequest(router, http.MethodPost, "/api/fish", `{"fish":{"name":"Carp","category":"freshwater"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("create got %d, body=%s", w.Code, w.Body.String())
	}

	var created struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	path := "/api/fish/" + strconv.FormatInt(created.ID, 10)

	if w := doRequest(router, http.MethodGet, path, ""); w.Code != http.StatusOK {
		t.Fatalf("get got %d", w.Code)
	}
	if w := doRequest(router, http.MethodPut, path, `{"fish":{"name":"Mirror Carp","category":"freshwater"}}`); w.Code != http.StatusOK {
		t.Fatalf("update got %d", w.Code)
	}
	w = doRequest(router, http.MethodPatch, path, `{"fish":{"category":"stillwater"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch got %d, body=%s", w.Code, w.Body.String())
	}
	var patched struct {
		Name     string `json:"name"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &patched); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if patched.Name != "Mirror Carp" || patched.Category != "stillwater" {
		t.Fatalf("patch changed unsent fields: %+v", patched)
	}

	if w := doRequest(router, http.MethodDelete, path, ""); w.Code != http.StatusOK {
		t.Fatalf("delete got %d", w.Code)
	}
	if w := doRequest(router, http.MethodGet, path, ""); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete got %d", w.Code)
	}
	if w := doRequest(router, http.MethodDelete, path, ""); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("second delete got %d", w.Code)
	}
}

func TestPostgresUsers(t *testing.T) {
	router, _ := setupPostgresRouter(t)

	body := `{"name":"A","email":"a@x.com","password":"secret"}`
	if w := doRequest(router, http.MethodPost, "/api/users", body); w.Code != http.StatusOK {
		t.Fatalf("signup got %d, body=%s", w.Code, w.Body.String())
	}
	if w := doRequest(router, http.MethodPost, "/api/users", `{"name":"A","email":"A@x.com","password":"secret"}`); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate signup got %d", w.Code)
	}
	if w := doRequest(router, http.MethodPost, "/api/token", `{"email":"a@x.com","password":"secret"}`); w.Code != http.StatusOK {
		t.Fatalf("token got %d", w.Code)
	}
}
