package transactions

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pamoja-sacco/pamoja-sacco/internal/platform/httpx"
	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

// Handler wires HTTP endpoints for savings transactions.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers transaction routes behind the injected strict guard.
// Money movements always load a live principal record first.
func (h *Handler) MountRoutes(r chi.Router, protectStrict func(http.Handler) http.Handler) {
	r.Use(protectStrict)
	r.Post("/deposit", h.deposit)
	r.Post("/withdraw", h.withdraw)
	r.Get("/", h.statement)
}

type postRequest struct {
	Amount int64 `json:"amount"`
}

type postFunc func(ctx context.Context, memberID, amount int64, idempotencyKey string) (*Transaction, error)

func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) {
	h.post(w, r, h.service.Deposit)
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	h.post(w, r, h.service.Withdraw)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request, fn postFunc) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := fn(r.Context(), principal.ID, req.Amount, r.Header.Get("Idempotency-Key"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			httpx.Fail(w, http.StatusBadRequest, "Amount must be positive")
		case errors.Is(err, shared.ErrInsufficientFunds):
			httpx.Fail(w, http.StatusUnprocessableEntity, "Insufficient funds")
		case errors.Is(err, shared.ErrIdempotencyConflict):
			httpx.Fail(w, http.StatusConflict, "Request already processed")
		case errors.Is(err, shared.ErrNotFound):
			httpx.Fail(w, http.StatusNotFound, "Member not found")
		default:
			h.logger.Error("post transaction", slog.Any("error", err), slog.Int64("member_id", principal.ID))
			httpx.Fail(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"transaction": txn})
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Not authorized to access this route")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filters := ListFilters{Page: page, Limit: limit, MemberID: principal.ID}

	// Admins may inspect another member's statement.
	if memberParam := r.URL.Query().Get("member_id"); memberParam != "" && principal.Role == shared.RoleAdmin {
		if id, err := strconv.ParseInt(memberParam, 10, 64); err == nil && id > 0 {
			filters.MemberID = id
		}
	}
	if kindParam := r.URL.Query().Get("kind"); kindParam != "" {
		kind := Kind(kindParam)
		filters.Kind = &kind
	}

	list, pagination, err := h.service.Statement(r.Context(), filters)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"transactions": list,
		"pagination":   pagination,
	})
}
