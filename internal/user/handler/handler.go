// Package handler exposes authentication and account administration over
// HTTP. Login is the only unauthenticated route in the system.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"loomworks/internal/activity"
	"loomworks/internal/platform/metrics"
	"loomworks/internal/platform/middleware"
	"loomworks/internal/transport/http/shared"
	"loomworks/internal/user"
	pkgerrors "loomworks/pkg/errors"
	"loomworks/pkg/requestcontext"
)

// Service defines the account operations the handler needs.
type Service interface {
	Authenticate(ctx context.Context, email, password string) (string, user.User, error)
	Create(ctx context.Context, email, fullName, password string, role requestcontext.Role) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ActivityReader serves the per-account activity view.
type ActivityReader interface {
	ByUser(ctx context.Context, userID uuid.UUID, limit int) ([]activity.Entry, error)
}

// Handler handles /auth and /admin/users.
type Handler struct {
	logger     *slog.Logger
	users      Service
	activities ActivityReader
	metrics    *metrics.Metrics
	validator  middleware.TokenValidator
}

func New(users Service, activities ActivityReader, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:     logger,
		users:      users,
		activities: activities,
		metrics:    m,
		validator:  validator,
	}
}

// Register mounts the auth and account routes.
func (h *Handler) Register(r chi.Router) {
	public := chi.NewRouter()
	public.Use(middleware.Recovery(h.logger))
	public.Use(middleware.RequestID)
	public.Use(middleware.Logger(h.logger))
	public.Use(middleware.Timeout(10 * time.Second))
	public.Use(middleware.ContentTypeJSON)
	public.Use(middleware.Latency(h.metrics))
	public.Post("/login", h.handleLogin)
	r.Mount("/auth", public)

	admin := chi.NewRouter()
	admin.Use(middleware.Recovery(h.logger))
	admin.Use(middleware.RequestID)
	admin.Use(middleware.Logger(h.logger))
	admin.Use(middleware.Timeout(10 * time.Second))
	admin.Use(middleware.ContentTypeJSON)
	admin.Use(middleware.Latency(h.metrics))
	admin.Use(middleware.RequireAuth(h.validator, h.logger))
	admin.Use(middleware.RequireAdmin(h.logger))
	admin.Get("/", h.handleList)
	admin.Post("/", h.handleCreate)
	admin.Delete("/{id}", h.handleDelete)
	admin.Get("/{id}/activity", h.handleActivity)
	r.Mount("/admin/users", admin)
}

const defaultActivityLimit = 50

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid request body"))
		return
	}

	token, account, err := h.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		// Always a warn: failed logins are expected traffic.
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestcontext.RequestID(ctx),
			"email", req.Email,
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, loginResponse{Token: token, User: account})
}

type createRequest struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid request body"))
		return
	}

	account, err := h.users.Create(ctx, req.Email, req.FullName, req.Password, requestcontext.Role(req.Role))
	if err != nil {
		h.fail(ctx, w, "create user failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, account)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.users.List(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "list users failed", err)
		return
	}
	if accounts == nil {
		accounts = []user.User{}
	}
	shared.WriteJSON(w, http.StatusOK, accounts)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid user id"))
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		h.fail(r.Context(), w, "delete user failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid user id"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	entries, err := h.activities.ByUser(r.Context(), id, limit)
	if err != nil {
		h.fail(r.Context(), w, "list user activity failed", err)
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	shared.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if pkgerrors.CodeOf(err) == pkgerrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
	shared.WriteError(w, err)
}
