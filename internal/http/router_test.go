package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/geocoder89/fishin/internal/auth"
	"github.com/geocoder89/fishin/internal/cache"
	"github.com/geocoder89/fishin/internal/config"
	apphttp "github.com/geocoder89/fishin/internal/http"
	"github.com/geocoder89/fishin/internal/observability"
	"github.com/geocoder89/fishin/internal/repo/memory"
	"github.com/gin-gonic/gin"
)

func testConfig() config.Config {
	return config.Config{
		Env:                "test",
		JWTSecret:          "test-secret-key", // deterministic test secret
		JWTTTLMinutes:      60,
		CORSAllowedOrigins: []string{"http://localhost:8080"},
		MaxBodyBytes:       1 << 20,
	}
}

func setupRouter(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return apphttp.NewRouter(logger, cfg, apphttp.Deps{
		Fish:   memory.NewFishRepo(),
		Users:  memory.NewUsersRepo(),
		Tokens: auth.NewManager(cfg.JWTSecret, cfg.JWTTTL()),
		Cache:  cache.NewMemory(time.Minute),
		Prom:   observability.NewProm(),
	})
}

func doRequest(router http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

type fishBody struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

func TestSignupTokenMe(t *testing.T) {
	router := setupRouter(t, testConfig())

	w := doRequest(router, http.MethodPost, "/api/users", `{"name":"A","email":"a@x.com","password":"secret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("signup got %d, body=%s", w.Code, w.Body.String())
	}

	var created map[string]any
	mustReadJSON(t, w, &created)
	if created["email"] != "a@x.com" {
		t.Fatalf("signup email = %v", created["email"])
	}
	if _, ok := created["password"]; ok {
		t.Fatalf("signup response exposes password")
	}

	w = doRequest(router, http.MethodPost, "/api/token", `{"email":"a@x.com","password":"secret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("token got %d, body=%s", w.Code, w.Body.String())
	}

	var tok struct {
		Token string `json:"token"`
	}
	mustReadJSON(t, w, &tok)
	if tok.Token == "" {
		t.Fatalf("expected a token")
	}

	w = doRequest(router, http.MethodGet, "/api/me", "", "Authorization", "Bearer "+tok.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("me got %d, body=%s", w.Code, w.Body.String())
	}

	var me map[string]any
	mustReadJSON(t, w, &me)
	if me["email"] != "a@x.com" {
		t.Fatalf("me email = %v", me["email"])
	}

	if w := doRequest(router, http.MethodPost, "/api/token", `{"email":"a@x.com","password":"wrong"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password got %d", w.Code)
	}
	if w := doRequest(router, http.MethodPost, "/api/token", `{"email":"b@x.com","password":"secret"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email got %d", w.Code)
	}
	if w := doRequest(router, http.MethodGet, "/api/me", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("me without header got %d", w.Code)
	}
}

func TestFishLifecycle(t *testing.T) {
	router := setupRouter(t, testConfig())

	w := doRequest(router, http.MethodPost, "/api/fish", `{"fish":{"name":"Pike","category":"freshwater","id":500}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("create got %d, body=%s", w.Code, w.Body.String())
	}

	var created fishBody
	mustReadJSON(t, w, &created)
	if created.ID == 500 {
		t.Fatalf("client-supplied id must be ignored")
	}

	path := "/api/fish/" + strconv.FormatInt(created.ID, 10)

	w = doRequest(router, http.MethodGet, path, "")
	var fetched fishBody
	mustReadJSON(t, w, &fetched)
	if fetched.Name != "Pike" || fetched.Category != "freshwater" {
		t.Fatalf("fetched %+v", fetched)
	}

	w = doRequest(router, http.MethodPatch, path, `{"fish":{"name":"Northern Pike","category":"freshwater"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update got %d", w.Code)
	}

	w = doRequest(router, http.MethodGet, "/api/fish", "")
	var list []fishBody
	mustReadJSON(t, w, &list)
	if len(list) != 1 || list[0].Name != "Northern Pike" {
		t.Fatalf("list after update: %+v", list)
	}

	w = doRequest(router, http.MethodPatch, path, `{"fish":{"category":"brackish"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("partial patch got %d, body=%s", w.Code, w.Body.String())
	}
	var patched fishBody
	mustReadJSON(t, w, &patched)
	if patched.Name != "Northern Pike" || patched.Category != "brackish" {
		t.Fatalf("partial patch changed unsent fields: %+v", patched)
	}

	patchMissing := doRequest(router, http.MethodPatch, "/api/fish/999", `{"fish":{"name":"x"}}`)
	if patchMissing.Code != http.StatusUnprocessableEntity {
		t.Fatalf("patch of missing id got %d, want 422", patchMissing.Code)
	}

	if w := doRequest(router, http.MethodDelete, path, ""); w.Code != http.StatusOK {
		t.Fatalf("delete got %d", w.Code)
	}
	if w := doRequest(router, http.MethodGet, path, ""); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete got %d", w.Code)
	}

	updateMissing := doRequest(router, http.MethodPut, path, `{"fish":{"name":"x"}}`)
	deleteMissing := doRequest(router, http.MethodDelete, path, "")
	if updateMissing.Code != deleteMissing.Code || updateMissing.Code != http.StatusUnprocessableEntity {
		t.Fatalf("update/delete of missing id: %d / %d, want both 422", updateMissing.Code, deleteMissing.Code)
	}

	w = doRequest(router, http.MethodGet, "/api/fish", "")
	list = nil
	mustReadJSON(t, w, &list)
	if len(list) != 0 {
		t.Fatalf("list after delete: %+v", list)
	}
}

func TestFishRequireAuth(t *testing.T) {
	cfg := testConfig()
	cfg.FishRequireAuth = true
	router := setupRouter(t, cfg)

	if w := doRequest(router, http.MethodGet, "/api/fish", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list got %d", w.Code)
	}

	token, err := auth.NewManager(cfg.JWTSecret, time.Hour).IssueSession("a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if w := doRequest(router, http.MethodGet, "/api/fish", "", "Authorization", "Bearer "+token); w.Code != http.StatusOK {
		t.Fatalf("authenticated list got %d", w.Code)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	router := setupRouter(t, testConfig())

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/docs", "/docs/openapi.yaml"} {
		if w := doRequest(router, http.MethodGet, path, ""); w.Code != http.StatusOK {
			t.Fatalf("GET %s got %d", path, w.Code)
		}
	}

	w := doRequest(router, http.MethodGet, "/healthz", "")
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected a generated X-Request-Id")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}
}

func TestRejectsNonJSONWrites(t *testing.T) {
	router := setupRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/fish", bytes.NewBufferString("name=Pike"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("got %d, want 415", w.Code)
	}
}
