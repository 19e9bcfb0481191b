package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zenga/cms/pkg/api"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error {
	return f.err
}

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		pingErr      error
		name         string
		wantStatus   int
		wantState    string
		wantDatabase string
	}{
		{name: "ok", wantStatus: http.StatusOK, wantState: "ok", wantDatabase: "ok"},
		{name: "database down", pingErr: errors.New("closed"), wantStatus: http.StatusServiceUnavailable, wantState: "degraded", wantDatabase: "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(testLogger(), fakePinger{err: tt.pingErr}, "1.0.0")

			w := httptest.NewRecorder()
			h.Health(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse[api.HealthResponse](t, w)
			assert.Equal(t, tt.wantState, resp.Status)
			assert.Equal(t, tt.wantDatabase, resp.Database)
			assert.Equal(t, "1.0.0", resp.Version)
		})
	}
}

func TestHealthHandler_RealDatabase(t *testing.T) {
	h := NewHealthHandler(testLogger(), setupTestStore(t), "dev")

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
