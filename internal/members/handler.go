package members

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pamoja-sacco/pamoja-sacco/internal/platform/httpx"
	"github.com/pamoja-sacco/pamoja-sacco/internal/shared"
)

// Handler wires HTTP endpoints for member management.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers member routes. The access guard and role authorizer
// are injected by the router to keep this package free of auth imports.
func (h *Handler) MountRoutes(r chi.Router, protect, adminOnly func(http.Handler) http.Handler) {
	r.Use(protect)
	r.With(adminOnly).Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.With(adminOnly).Delete("/{id}", h.deactivate)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filters := ListFilters{
		Page:   page,
		Limit:  limit,
		Search: r.URL.Query().Get("search"),
	}
	if roleParam := r.URL.Query().Get("role"); roleParam != "" {
		role := shared.Role(roleParam)
		if !role.Valid() {
			httpx.Fail(w, http.StatusBadRequest, "unknown role filter")
			return
		}
		filters.Role = &role
	}

	list, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list members", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"members":    list,
		"pagination": pagination,
	})
}

// requireSelfOrAdmin enforces that members only reach their own record while
// admins reach any. Returns the target ID, or 0 after writing a denial.
func requireSelfOrAdmin(w http.ResponseWriter, r *http.Request) int64 {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid member ID")
		return 0
	}
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Not authorized to access this route")
		return 0
	}
	if principal.Role != shared.RoleAdmin && principal.ID != id {
		httpx.Fail(w, http.StatusForbidden, "User role "+principal.Role.String()+" is not authorized to access this route")
		return 0
	}
	return id
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id := requireSelfOrAdmin(w, r)
	if id == 0 {
		return
	}
	member, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Fail(w, http.StatusNotFound, "Member not found")
			return
		}
		h.logger.Error("get member", slog.Any("error", err), slog.Int64("id", id))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"member": member})
}

type updateProfileRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := requireSelfOrAdmin(w, r)
	if id == 0 {
		return
	}
	var req updateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.UpdateProfile(r.Context(), id, Member{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Fail(w, http.StatusNotFound, "Member not found")
			return
		}
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.OKMsg(w, http.StatusOK, "Profile updated")
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid member ID")
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Fail(w, http.StatusNotFound, "Member not found")
			return
		}
		h.logger.Error("deactivate member", slog.Any("error", err), slog.Int64("id", id))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OKMsg(w, http.StatusOK, "Member deactivated")
}
