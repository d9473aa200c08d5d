package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimata/unit-cooler/internal/model"
	"github.com/kimata/unit-cooler/internal/watering"
	"github.com/kimata/unit-cooler/internal/worklog"
)

func TestHandleStatReturnsCachedMessage(t *testing.T) {
	cache := NewCache()
	cache.SetControlMessage(model.ControlMessage{ModeIndex: 4, CoolerStatus: model.CoolerStatus{Status: 4}})
	cache.Observe(model.ActuatorStatus{HazardDetected: true})

	srv := New(cache, watering.Fake{Totals: []float64{1, 2}}, 0.5, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stat", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp statResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, model.ModeIndex(4), resp.Mode)
	require.NotNil(t, resp.Actuator)
	assert.True(t, resp.Actuator.HazardDetected)
	require.Len(t, resp.Watering, 2)
	assert.InDelta(t, 1.0, resp.Watering[1].Price, 0.001)
}

func TestHandleStatSupportsJSONPCallback(t *testing.T) {
	srv := New(NewCache(), nil, 0, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stat?callback=myFunc", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "myFunc(")
	assert.Contains(t, rr.Header().Get("Content-Type"), "javascript")
}

func TestHandleGetFlowFallsBackToCachedActuatorStatus(t *testing.T) {
	cache := NewCache()
	lpm := 3.5
	cache.Observe(model.ActuatorStatus{FlowLPM: &lpm})

	srv := New(cache, nil, 0, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/get_flow", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	var resp flowResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Flow)
	assert.InDelta(t, 3.5, *resp.Flow, 0.001)
}

func TestHandleLogViewAndClear(t *testing.T) {
	ring := worklog.New(10)
	ring.Append("error", "valve stuck open")

	srv := New(NewCache(), nil, 0, nil, nil, ring, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/log_view", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	var entries []worklog.Entry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "valve stuck open", entries[0].Message)

	clearReq := httptest.NewRequest(http.MethodPost, "/api/log_clear", nil)
	clearRR := httptest.NewRecorder()
	srv.Handler().ServeHTTP(clearRR, clearReq)
	require.Equal(t, http.StatusOK, clearRR.Code)
	assert.Empty(t, ring.Snapshot())
}

func TestRunRespectsContextCancellation(t *testing.T) {
	srv := New(NewCache(), nil, 0, nil, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.Run(ctx, "127.0.0.1:0")
	assert.ErrorIs(t, err, context.Canceled)
}
