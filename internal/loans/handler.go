package loans

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pamoja-sacco/pamoja-sacco/internal/platform/httpx"
	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

// Handler wires HTTP endpoints for loan management.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers loan routes behind the injected guard middlewares.
func (h *Handler) MountRoutes(r chi.Router, protect, adminOnly func(http.Handler) http.Handler) {
	r.Use(protect)
	r.Post("/", h.apply)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.With(adminOnly).Post("/{id}/approve", h.approve)
	r.With(adminOnly).Post("/{id}/reject", h.reject)
	r.Post("/{id}/repayments", h.repay)
}

type applyRequest struct {
	Amount     int64  `json:"amount"`
	TermMonths int    `json:"term_months"`
	Purpose    string `json:"purpose"`
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}
	var req applyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loan, err := h.service.Apply(r.Context(), principal.ID, req.Amount, req.TermMonths, req.Purpose)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"loan": loan})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filters := ListFilters{Page: page, Limit: limit}

	// Members only ever see their own loans; admins see everything.
	if principal.Role != shared.RoleAdmin {
		filters.MemberID = &principal.ID
	}
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := Status(statusParam)
		filters.Status = &status
	}

	list, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list loans", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"loans":      list,
		"pagination": pagination,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid loan ID")
		return
	}

	loan, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Fail(w, http.StatusNotFound, "Loan not found")
			return
		}
		h.logger.Error("get loan", slog.Any("error", err), slog.Int64("id", id))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	// Ownership is part of the resource's visibility, so a foreign loan
	// reads as absent rather than forbidden.
	if principal.Role != shared.RoleAdmin && loan.MemberID != principal.ID {
		httpx.Fail(w, http.StatusNotFound, "Loan not found")
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"loan": loan})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid loan ID")
		return
	}

	loan, err := h.service.Decide(r.Context(), id, principal.ID, approve)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			httpx.Fail(w, http.StatusNotFound, "Loan not found")
		case errors.Is(err, ErrInvalidTransition):
			httpx.Fail(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("decide loan", slog.Any("error", err), slog.Int64("id", id))
			httpx.Fail(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"loan": loan})
}

type repayRequest struct {
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

func (h *Handler) repay(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid loan ID")
		return
	}
	var req repayRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rep, err := h.service.Repay(r.Context(), id, principal.ID, req.Amount, req.Reference)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			httpx.Fail(w, http.StatusBadRequest, "Repayment amount must be positive")
		case errors.Is(err, shared.ErrNotFound):
			httpx.Fail(w, http.StatusNotFound, "Loan not found")
		case errors.Is(err, ErrInvalidTransition):
			httpx.Fail(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("repay loan", slog.Any("error", err), slog.Int64("id", id))
			httpx.Fail(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"repayment": rep})
}
