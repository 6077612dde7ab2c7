package routeguard

import (
	"net/http"

	"github.com/pamoja-sacco/pamoja-sacco/internal/platform/httpx"
)

// Handler serves the route table so the SPA can build its guards from the
// same source of truth as the server.
type Handler struct {
	table Table
}

// NewHandler constructs a Handler for the given table.
func NewHandler(table Table) *Handler {
	return &Handler{table: table}
}

// ServeHTTP returns the route table as JSON.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, http.StatusOK, map[string]any{"routes": h.table})
}
