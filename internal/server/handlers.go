package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/kernel"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/store"
)

// bindJSON decodes an optional JSON body. A missing body leaves dst at
// its zero value, mirroring the console clients that POST without one.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

// HandleFuel handles GET /api/fuel.
func (h *Handlers) HandleFuel(c *gin.Context) {
	c.JSON(http.StatusOK, h.rec.Gauge())
}

// HandleRecycle handles POST /api/recycle. A missing or empty body
// consumes the default shadow input.
func (h *Handlers) HandleRecycle(c *gin.Context) {
	var req RecycleRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeInvalidRequest})
		return
	}
	if req.ErrorData == "" {
		req.ErrorData = "API_Shadow_Input"
	}
	c.JSON(http.StatusOK, h.rec.ConsumeFailure(req.ErrorData))
}

// HandleResonance handles GET /api/resonance.
func (h *Handlers) HandleResonance(c *gin.Context) {
	c.JSON(http.StatusOK, h.tun.Status())
}

// HandleChimera handles POST /api/chimera.
func (h *Handlers) HandleChimera(c *gin.Context) {
	var req ChimeraRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeInvalidRequest})
		return
	}
	c.JSON(http.StatusOK, h.chim.Execute(req.Command))
}

// HandleStep handles POST /api/synthesis/step. dt defaults to 0.05 when
// omitted; the diagnostics row is persisted when a store is wired.
func (h *Handlers) HandleStep(c *gin.Context) {
	var req StepRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeInvalidRequest})
		return
	}
	if req.Dt == 0 {
		req.Dt = 0.05
	}

	diag, err := h.engine.Step(req.Dt, req.IntentStrength)
	if err != nil {
		if errors.Is(err, kernel.ErrNonPositiveStep) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeInvalidStep})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeInvalidStep})
		return
	}

	if h.st != nil {
		rec := store.StepRecord{
			Dt:             req.Dt,
			Purity:         diag.Purity,
			CommutatorNorm: diag.CommutatorNorm,
			Synthesis:      diag.Synthesis,
			ProtocolZero:   diag.GateActivated,
			AtlanteanScar:  diag.Scar,
		}
		if err := h.st.LogStep(c.Request.Context(), rec); err != nil {
			slog.Error("persisting step diagnostics failed", "error", err)
		}
	}
	c.JSON(http.StatusOK, diag)
}

// HandleSnapshot handles GET /api/synthesis/snapshot.
func (h *Handlers) HandleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Snapshot())
}

// HandleUnlockRequest handles POST /api/protocol-zero/request.
func (h *Handlers) HandleUnlockRequest(c *gin.Context) {
	var req UnlockRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeInvalidRequest})
		return
	}

	token, err := h.engine.RequestUnlock(req.Confirmer)
	if err != nil {
		if errors.Is(err, kernel.ErrConfirmerTooShort) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeConfirmerShort})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: token, State: h.engine.GateState().String()})
}

// HandleUnlockActivate handles POST /api/protocol-zero/activate. Denials
// are domain outcomes, not errors: the body always reports the gate
// state, with a 403 status when activation was refused.
func (h *Handlers) HandleUnlockActivate(c *gin.Context) {
	var req ActivateRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeInvalidRequest})
		return
	}

	activated := h.engine.ConfirmUnlock(req.Token, req.OverrideConfirmation)
	status := http.StatusOK
	if !activated {
		status = http.StatusForbidden
	}
	c.JSON(status, ActivateResponse{Activated: activated, State: h.engine.GateState().String()})
}

// HandleTelemetry handles GET /api/telemetry?limit=N.
func (h *Handlers) HandleTelemetry(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	if h.st == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "telemetry store not configured", Code: CodeStoreFailed})
		return
	}
	rows, err := h.st.TelemetryHistory(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeStoreFailed})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// HandleTelemetrySteps handles GET /api/telemetry/steps?limit=N.
func (h *Handlers) HandleTelemetrySteps(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	if h.st == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "telemetry store not configured", Code: CodeStoreFailed})
		return
	}
	rows, err := h.st.StepHistory(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeStoreFailed})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// HandleEternals handles GET /api/eternals.
func (h *Handlers) HandleEternals(c *gin.Context) {
	agents := h.reg.Snapshot()
	c.JSON(http.StatusOK, EternalsResponse{Count: len(agents), Agents: agents})
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer", Code: CodeInvalidRequest})
		return 0, false
	}
	return limit, true
}
