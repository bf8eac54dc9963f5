package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Readiness(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name string
		deps map[string]Pinger
		want int
	}{
		{name: "all up", deps: map[string]Pinger{"mongodb": ok, "redis": ok}, want: http.StatusOK},
		{name: "redis down", deps: map[string]Pinger{"mongodb": ok, "redis": down}, want: http.StatusServiceUnavailable},
		{name: "no deps", deps: nil, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.deps, zerolog.Nop())
			c, rec := newJSONContext(http.MethodGet, "/health/ready", "")
			if err := h.Readiness(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}

			var resp readinessResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if len(resp.Dependencies) != len(tt.deps) {
				t.Errorf("expected %d dependencies, got %d", len(tt.deps), len(resp.Dependencies))
			}
		})
	}
}

func TestHealthHandler_ReadinessHidesPingErrors(t *testing.T) {
	down := pingFunc(func(context.Context) error {
		return errors.New("dial tcp 10.0.3.7:27017: connection refused")
	})
	var logs strings.Builder
	h := NewHealthHandler(map[string]Pinger{"mongodb": down}, zerolog.New(&logs))

	c, rec := newJSONContext(http.MethodGet, "/health/ready", "")
	if err := h.Readiness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.3.7") || strings.Contains(rec.Body.String(), "refused") {
		t.Errorf("response leaks the ping error: %s", rec.Body.String())
	}

	var resp readinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Dependencies["mongodb"].Status != "unhealthy" {
		t.Errorf("unexpected status %+v", resp.Dependencies)
	}
	if !strings.Contains(logs.String(), "connection refused") || !strings.Contains(logs.String(), "mongodb") {
		t.Errorf("cause not logged: %s", logs.String())
	}
}
