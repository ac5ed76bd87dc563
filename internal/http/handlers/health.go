package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/hongminglow/dealer-gateway/internal/http/respond"
)

// Pinger reports whether the users directory is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports uptime and directory reachability.
type HealthHandler struct {
	startedAt time.Time
	directory Pinger
}

// NewHealthHandler creates a health endpoint handler. directory may be nil.
func NewHealthHandler(startedAt time.Time, directory Pinger) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, directory: directory}
}

// Register wires the handler into a ServeMux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handle)
}

type healthBody struct {
	Status    string `json:"status"`
	Directory string `json:"directory"`
	Uptime    string `json:"uptime"`
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body := healthBody{
		Status:    "ok",
		Directory: "unchecked",
		Uptime:    time.Since(h.startedAt).Truncate(time.Second).String(),
	}
	status := http.StatusOK
	if h.directory != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.directory.Ping(ctx); err != nil {
			body.Status, body.Directory = "degraded", "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			body.Directory = "reachable"
		}
	}
	respond.JSON(w, status, body)
}
