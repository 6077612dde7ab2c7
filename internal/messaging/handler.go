package messaging

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pamoja-sacco/pamoja-sacco/internal/platform/httpx"
)

// Handler wires HTTP endpoints for sending member notifications.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers messaging routes behind the injected guard
// middlewares. Sending notifications is an admin operation.
func (h *Handler) MountRoutes(r chi.Router, protect, adminOnly func(http.Handler) http.Handler) {
	r.Use(protect)
	r.Use(adminOnly)
	r.Post("/", h.send)
}

type sendRequest struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.dispatch(r, req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.OKMsg(w, http.StatusAccepted, "Notification queued")
}

func (h *Handler) dispatch(r *http.Request, req sendRequest) error {
	switch req.Channel {
	case "email":
		return h.service.EnqueueEmail(r.Context(), req.To, req.Subject, req.Body)
	case "sms":
		return h.service.EnqueueSMS(r.Context(), req.To, req.Body)
	default:
		return errors.New("channel must be email or sms")
	}
}
