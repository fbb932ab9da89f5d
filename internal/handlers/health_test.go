package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthz(t *testing.T) {
	cases := []struct {
		name   string
		ping   pingFunc
		status int
		body   string
	}{
		{"ok", func(context.Context) error { return nil }, http.StatusOK, `"ok"`},
		{"degraded", func(context.Context) error { return errors.New("db down") }, http.StatusServiceUnavailable, `"degraded"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Healthz(tc.ping)(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}
			if !strings.Contains(rr.Body.String(), tc.body) {
				t.Fatalf("body = %s", rr.Body.String())
			}
		})
	}
}
