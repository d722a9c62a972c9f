package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/fishin/internal/domain/user"
	"github.com/geocoder89/fishin/internal/http/middlewares"
	"github.com/geocoder89/fishin/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	Create(ctx context.Context, email, passwordHash, name string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type SessionTokens interface {
	IssueSession(email string) (string, error)
	SessionEmail(token string) (string, error)
}

// AuthMetrics counts issued and rejected session tokens.
type AuthMetrics interface {
	TokenIssued()
	TokenRejected(reason string)
}

type noopAuthMetrics struct{}

func (noopAuthMetrics) TokenIssued()         {}
func (noopAuthMetrics) TokenRejected(string) {}

type UsersHandler struct {
	users   UserStore
	tokens  SessionTokens
	metrics AuthMetrics
	log     *slog.Logger
}

func NewUsersHandler(users UserStore, tokens SessionTokens, metrics AuthMetrics, log *slog.Logger) *UsersHandler {
	if metrics == nil {
		metrics = noopAuthMetrics{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &UsersHandler{users: users, tokens: tokens, metrics: metrics, log: log}
}

func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.users.Create(cctx, user.NormalizeEmail(req.Email), hash, req.Name)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondUnprocessable(ctx, "email_taken", "Email is already in use.", nil)
			return
		}

		h.log.ErrorContext(cctx, "create user failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

// IssueToken exchanges email and password for a session token. Unknown email,
// wrong password and an unreadable body all get the same 401.
func (h *UsersHandler) IssueToken(ctx *gin.Context) {
	var req user.TokenRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.metrics.TokenRejected("invalid_credentials")
		RespondUnauthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	// short timeout for DB lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	found, err := h.users.GetByEmail(cctx, user.NormalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			h.log.ErrorContext(cctx, "token user lookup failed", "err", err)
		}
		h.metrics.TokenRejected("invalid_credentials")
		RespondUnauthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	if err := security.CheckPassword(found.PasswordHash, req.Password); err != nil {
		h.metrics.TokenRejected("invalid_credentials")
		RespondUnauthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	token, err := h.tokens.IssueSession(found.Email)
	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	h.metrics.TokenIssued()

	ctx.JSON(http.StatusOK, gin.H{"token": token})
}

// Me resolves the bearer of the Authorization header to a user.
func (h *UsersHandler) Me(ctx *gin.Context) {
	raw, ok := middlewares.TokenFromHeader(ctx.GetHeader("Authorization"))
	if !ok {
		RespondBadRequest(ctx, "missing_authorization", "Authorization header is required")
		return
	}

	email, err := h.tokens.SessionEmail(raw)
	if err != nil {
		code := middlewares.TokenErrorCode(err)
		h.metrics.TokenRejected(code)
		RespondUnauthorized(ctx, code, "Invalid or expired token")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		h.log.ErrorContext(cctx, "me lookup failed", "err", err)
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}
