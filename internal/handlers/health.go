package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/diewo77/go-proposals/internal/httpx"
)

// Pinger checks that the storage backend answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz: GET /healthz runs a lightweight storage check.
func Healthz(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
