// Package handler is the thin HTTP layer over the workflow engine. It
// delegates to the engine without embedding business logic so transport
// concerns remain isolated.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"loomworks/internal/domain"
	"loomworks/internal/platform/metrics"
	"loomworks/internal/platform/middleware"
	"loomworks/internal/transport/http/shared"
	"loomworks/internal/workflow"
	pkgerrors "loomworks/pkg/errors"
	"loomworks/pkg/requestcontext"
)

// Service defines the engine operations the handler needs.
type Service interface {
	Create(ctx context.Context, domainName string, payload []byte, submit bool) (domain.Record, error)
	Update(ctx context.Context, domainName string, id uuid.UUID, payload []byte, submit bool) (domain.Record, error)
	Get(ctx context.Context, domainName string, id uuid.UUID) (domain.Record, error)
	List(ctx context.Context, domainName string) ([]domain.Record, error)
	PendingSubmissions(ctx context.Context) ([]workflow.Submission, error)
	Decide(ctx context.Context, submissionID uuid.UUID, action workflow.DecisionAction, comments string) error
	ReapplyDecision(ctx context.Context, submissionID uuid.UUID) error
}

// Handler handles the entity and approval endpoints.
type Handler struct {
	logger    *slog.Logger
	engine    Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

// New creates a workflow Handler.
func New(engine Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		engine:    engine,
		metrics:   m,
		validator: validator,
	}
}

// Register mounts the workflow routes. The `/{domain}` wildcard sits behind
// the static routes chi resolves first, so /approvals never shadows a domain.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Latency(h.metrics))
	router.Use(middleware.RequireAuth(h.validator, h.logger))

	router.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(h.logger))
		admin.Get("/approvals", h.handleListApprovals)
		admin.Post("/approvals/{id}", h.handleDecide)
		admin.Post("/approvals/{id}/reapply", h.handleReapply)
	})

	router.Get("/{domain}", h.handleList)
	router.Post("/{domain}", h.handleCreate)
	router.Get("/{domain}/{id}", h.handleGet)
	router.Put("/{domain}/{id}", h.handleUpdate)

	r.Mount("/", router)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload, submit, err := readEntityBody(r)
	if err != nil {
		h.warn(ctx, "invalid create request", err)
		shared.WriteError(w, err)
		return
	}

	record, err := h.engine.Create(ctx, chi.URLParam(r, "domain"), payload, submit)
	if err != nil {
		h.fail(ctx, w, "create failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid record id"))
		return
	}
	payload, submit, err := readEntityBody(r)
	if err != nil {
		h.warn(ctx, "invalid update request", err)
		shared.WriteError(w, err)
		return
	}

	record, err := h.engine.Update(ctx, chi.URLParam(r, "domain"), id, payload, submit)
	if err != nil {
		h.fail(ctx, w, "update failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid record id"))
		return
	}
	record, err := h.engine.Get(r.Context(), chi.URLParam(r, "domain"), id)
	if err != nil {
		h.fail(r.Context(), w, "get failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.engine.List(r.Context(), chi.URLParam(r, "domain"))
	if err != nil {
		h.fail(r.Context(), w, "list failed", err)
		return
	}
	if records == nil {
		records = []domain.Record{}
	}
	shared.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	pending, err := h.engine.PendingSubmissions(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "list approvals failed", err)
		return
	}
	if pending == nil {
		pending = []workflow.Submission{}
	}
	shared.WriteJSON(w, http.StatusOK, pending)
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid submission id"))
		return
	}

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid decide request", err)
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.engine.Decide(ctx, id, workflow.DecisionAction(req.Action), req.Comments); err != nil {
		h.fail(ctx, w, "decide failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": req.Action})
}

func (h *Handler) handleReapply(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid submission id"))
		return
	}
	if err := h.engine.ReapplyDecision(r.Context(), id); err != nil {
		h.fail(r.Context(), w, "reapply failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type decideRequest struct {
	Action   string `json:"action"`
	Comments string `json:"comments"`
}

// readEntityBody returns the raw body for the engine to decode, plus the
// submit flag. The flag rides inside the body ({...fields, "submit": true})
// and is invisible to record decoding since no record declares the field.
func readEntityBody(r *http.Request) ([]byte, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeBadRequest, "unreadable request body")
	}
	var flag struct {
		Submit bool `json:"submit"`
	}
	if err := json.Unmarshal(body, &flag); err != nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid request body")
	}
	return body, flag.Submit, nil
}

func (h *Handler) warn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
}

// fail logs at a severity matching the error class and writes the envelope.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	code := pkgerrors.CodeOf(err)
	switch code {
	case pkgerrors.CodeInternal, pkgerrors.CodeReconciliation:
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	default:
		h.warn(ctx, msg, err)
	}
	shared.WriteError(w, err)
}
