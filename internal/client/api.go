package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/geocoder89/fishin/internal/domain/fish"
	"github.com/geocoder89/fishin/internal/domain/user"
)

// APIError is a non-2xx answer from the server, decoded from the error envelope
// when the body carries one.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// API talks to the fish service. A nil HTTPClient means http.DefaultClient.
type API struct {
	BaseURL    string
	HTTPClient *http.Client
	Session    *Session
}

func NewAPI(baseURL string, session *Session) *API {
	return &API{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Session: session,
	}
}

func (a *API) ListFish(ctx context.Context) ([]fish.Fish, error) {
	var out []fish.Fish
	if err := a.do(ctx, http.MethodGet, "/api/fish", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) GetFish(ctx context.Context, id int64) (fish.Fish, error) {
	var out fish.Fish
	err := a.do(ctx, http.MethodGet, fishPath(id), nil, &out)
	return out, err
}

func (a *API) CreateFish(ctx context.Context, p fish.Params) (fish.Fish, error) {
	var out fish.Fish
	err := a.do(ctx, http.MethodPost, "/api/fish", fish.WriteRequest{Fish: &p}, &out)
	return out, err
}

func (a *API) UpdateFish(ctx context.Context, id int64, p fish.Params) (fish.Fish, error) {
	var out fish.Fish
	err := a.do(ctx, http.MethodPut, fishPath(id), fish.WriteRequest{Fish: &p}, &out)
	return out, err
}

// PatchFish changes only the fields set in p.
func (a *API) PatchFish(ctx context.Context, id int64, p fish.Patch) (fish.Fish, error) {
	var out fish.Fish
	err := a.do(ctx, http.MethodPatch, fishPath(id), fish.PatchRequest{Fish: &p}, &out)
	return out, err
}

func (a *API) DeleteFish(ctx context.Context, id int64) (fish.Fish, error) {
	var out fish.Fish
	err := a.do(ctx, http.MethodDelete, fishPath(id), nil, &out)
	return out, err
}

func (a *API) CreateUser(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
	var out user.User
	err := a.do(ctx, http.MethodPost, "/api/users", req, &out)
	return out, err
}

// IssueToken exchanges credentials for a session token.
func (a *API) IssueToken(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	err := a.do(ctx, http.MethodPost, "/api/token", user.TokenRequest{Email: email, Password: password}, &out)
	return out.Token, err
}

func (a *API) Me(ctx context.Context) (user.User, error) {
	return a.meWithToken(ctx, a.sessionToken())
}

func (a *API) meWithToken(ctx context.Context, token string) (user.User, error) {
	var out user.User
	err := a.send(ctx, http.MethodGet, "/api/me", token, nil, &out)
	return out, err
}

func fishPath(id int64) string {
	return "/api/fish/" + strconv.FormatInt(id, 10)
}

func (a *API) httpClient() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return http.DefaultClient
}

func (a *API) sessionToken() string {
	if a.Session == nil {
		return ""
	}
	return a.Session.Token()
}

func (a *API) do(ctx context.Context, method, path string, in, out any) error {
	return a.send(ctx, method, path, a.sessionToken(), in, out)
}

func (a *API) send(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}

	return apiErr
}
