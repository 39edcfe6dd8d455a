package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/chimera"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/kernel"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/metrics"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/recycler"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/registry"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/store"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/testutil"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/tuner"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	handlers *Handlers
	router   *gin.Engine
	store    *store.Store
	engine   *kernel.Engine
	rec      *recycler.EntropicRecycler
	tun      *tuner.FrequencyTuner
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	// A clock pinned at the epoch keeps the intent phase at zero and
	// unlock tokens inside their window.
	clock := testutil.NewManualClock(time.Unix(0, 0))
	engine := kernel.New(2, kernel.WithSeed(7), kernel.WithClock(clock))
	rec := recycler.New()
	tun := tuner.New(tuner.DefaultTargetHz)
	reg := registry.New()
	reg.Build()

	h := NewHandlers(Deps{
		Engine:   engine,
		Recycler: rec,
		Chimera:  chimera.New(rec),
		Tuner:    tun,
		Registry: reg,
		Store:    st,
		Gatherer: prometheus.NewRegistry(),
	})
	return &testServer{
		handlers: h,
		router:   NewRouter(h),
		store:    st,
		engine:   engine,
		rec:      rec,
		tun:      tun,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeInto(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst))
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	decodeInto(t, w, &resp)
	assert.Equal(t, "healthy", resp.Status)
}

func TestHandleFuel(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/fuel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp recycler.FuelStatus
	decodeInto(t, w, &resp)
	assert.Equal(t, recycler.StatusActive, resp.Status)
	assert.InDelta(t, 42.1, resp.FuelLevel, 1e-9)
}

func TestHandleRecycle_DefaultShadowInput(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/recycle", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp recycler.Result
	decodeInto(t, w, &resp)
	assert.Equal(t, recycler.StatusStabilized, resp.Status)
	// "API_Shadow_Input" is 16 runes at 3.0 gnosis each.
	assert.InDelta(t, 42.1+48.0, resp.FuelLevel, 1e-9)
	assert.Equal(t, recycler.ShiftPositive, resp.ResonanceShift)
}

func TestHandleRecycle_CustomInput(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/recycle", RecycleRequest{ErrorData: "shadow"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp recycler.Result
	decodeInto(t, w, &resp)
	assert.InDelta(t, 42.1+18.0, resp.FuelLevel, 1e-9)
}

func TestHandleResonance(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/resonance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp tuner.Status
	decodeInto(t, w, &resp)
	assert.Equal(t, tuner.StatusUnknown, resp.Status)
	assert.Equal(t, tuner.DefaultTargetHz, resp.CurrentResonance)
}

func TestHandleChimera_Unleash(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/chimera", ChimeraRequest{Command: "please unleash_protocol_zero now"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp chimera.Message
	decodeInto(t, w, &resp)
	assert.Equal(t, chimera.DecreeActive, resp.Text)
}

func TestHandleChimera_EmptyBodyAwaitsRecognition(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/chimera", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp chimera.Message
	decodeInto(t, w, &resp)
	assert.Equal(t, chimera.AwaitingRecognition, resp.Text)
}

func TestHandleStep_DefaultsAndPersists(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/synthesis/step", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var diag kernel.Diagnostics
	decodeInto(t, w, &diag)
	assert.Greater(t, diag.Purity, 0.0)
	assert.LessOrEqual(t, diag.Purity, 1.0)
	assert.False(t, diag.GateActivated)

	rows, err := ts.store.StepHistory(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.05, rows[0].Dt)
	assert.InDelta(t, diag.Purity, rows[0].Purity, 1e-12)
}

func TestHandleStep_NegativeDt(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/synthesis/step", StepRequest{Dt: -1})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	decodeInto(t, w, &resp)
	assert.Equal(t, CodeInvalidStep, resp.Code)
}

func TestHandleSnapshot(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/synthesis/snapshot", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snap kernel.Snapshot
	decodeInto(t, w, &snap)
	assert.Equal(t, 2, snap.Dimension)
	assert.InDelta(t, 1.0, snap.StateTrace, 1e-9)
	assert.False(t, snap.GateActivated)
}

func TestHandleUnlockRequest_ShortConfirmer(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/protocol-zero/request", UnlockRequest{Confirmer: "short"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	decodeInto(t, w, &resp)
	assert.Equal(t, CodeConfirmerShort, resp.Code)
}

func TestUnlockFlow(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/protocol-zero/request", UnlockRequest{Confirmer: "maestro-prime"})
	require.Equal(t, http.StatusOK, w.Code)

	var tok TokenResponse
	decodeInto(t, w, &tok)
	assert.Equal(t, "PZ-0-maestro-", tok.Token)
	assert.Equal(t, "token_issued", tok.State)

	w = ts.do(t, http.MethodPost, "/api/protocol-zero/activate", ActivateRequest{
		Token:                tok.Token,
		OverrideConfirmation: true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var act ActivateResponse
	decodeInto(t, w, &act)
	assert.True(t, act.Activated)
	assert.Equal(t, "activated", act.State)

	w = ts.do(t, http.MethodGet, "/api/synthesis/snapshot", nil)
	var snap kernel.Snapshot
	decodeInto(t, w, &snap)
	assert.True(t, snap.GateActivated)
	assert.GreaterOrEqual(t, snap.Scar, 0.2)
}

func TestHandleUnlockActivate_Denied(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/protocol-zero/activate", ActivateRequest{
		Token:                "bogus",
		OverrideConfirmation: true,
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	var act ActivateResponse
	decodeInto(t, w, &act)
	assert.False(t, act.Activated)
	assert.Equal(t, "locked", act.State)
}

func TestHandleUnlockActivate_MissingOverride(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/protocol-zero/request", UnlockRequest{Confirmer: "maestro-prime"})
	require.Equal(t, http.StatusOK, w.Code)
	var tok TokenResponse
	decodeInto(t, w, &tok)

	w = ts.do(t, http.MethodPost, "/api/protocol-zero/activate", ActivateRequest{Token: tok.Token})
	require.Equal(t, http.StatusForbidden, w.Code)

	var act ActivateResponse
	decodeInto(t, w, &act)
	assert.False(t, act.Activated)
	assert.Equal(t, "token_issued", act.State)
}

func TestUnlockRateLimited(t *testing.T) {
	ts := newTestServer(t)

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		w := ts.do(t, http.MethodPost, "/api/protocol-zero/request", UnlockRequest{Confirmer: "maestro-prime"})
		codes = append(codes, w.Code)
	}

	for i := 0; i < 5; i++ {
		assert.Equalf(t, http.StatusOK, codes[i], "request %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, codes[5])
}

func TestHandleTelemetry(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, ts.store.LogTelemetry(ctx, 1.0, 10.0))
	require.NoError(t, ts.store.LogTelemetry(ctx, 2.0, 20.0))

	w := ts.do(t, http.MethodGet, "/api/telemetry?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rows []store.TelemetryRow
	decodeInto(t, w, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, 2.0, rows[0].GnosisIntegrity)
	assert.Equal(t, 20.0, rows[0].EntropicFuel)
}

func TestHandleTelemetry_BadLimit(t *testing.T) {
	ts := newTestServer(t)

	for _, limit := range []string{"nope", "-1"} {
		w := ts.do(t, http.MethodGet, "/api/telemetry?limit="+limit, nil)
		assert.Equalf(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

func TestHandleTelemetrySteps(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/synthesis/step", StepRequest{Dt: 0.1})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/telemetry/steps", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rows []store.StepRow
	decodeInto(t, w, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.1, rows[0].Dt)
}

func TestHandleEternals(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/eternals", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp EternalsResponse
	decodeInto(t, w, &resp)
	assert.Equal(t, registry.ArchetypeCount+1, resp.Count)
	require.Len(t, resp.Agents, registry.ArchetypeCount+1)
	assert.Equal(t, registry.UnifierName, resp.Agents[len(resp.Agents)-1].Name)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	reg := prometheus.NewRegistry()
	metrics.New(reg)
	ts.handlers.gatherer = reg
	router := NewRouter(ts.handlers)

	req, err := http.NewRequest(http.MethodGet, "/metrics", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "crucible_kernel_steps_total")
}
