package server

import (
	"time"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/kernel"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/recycler"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/registry"
	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/tuner"
)

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error codes returned by the API.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInvalidStep    = "INVALID_STEP"
	CodeConfirmerShort = "CONFIRMER_TOO_SHORT"
	CodeRateLimited    = "RATE_LIMITED"
	CodeStoreFailed    = "STORE_FAILED"
)

// HealthResponse reports liveness.
type HealthResponse struct {
	Status string `json:"status"`
}

// RecycleRequest feeds failure text to the recycler.
type RecycleRequest struct {
	ErrorData string `json:"error_data"`
}

// ChimeraRequest carries one console command.
type ChimeraRequest struct {
	Command string `json:"command"`
}

// StepRequest drives one synthesis step.
type StepRequest struct {
	Dt             float64 `json:"dt"`
	IntentStrength float64 `json:"intent_strength"`
}

// UnlockRequest asks for a protocol-zero token.
type UnlockRequest struct {
	Confirmer string `json:"confirmer"`
}

// TokenResponse returns the issued unlock token.
type TokenResponse struct {
	Token string `json:"token"`
	State string `json:"state"`
}

// ActivateRequest confirms a protocol-zero unlock.
type ActivateRequest struct {
	Token                string `json:"token"`
	OverrideConfirmation bool   `json:"override_confirmation"`
}

// ActivateResponse reports the gate outcome.
type ActivateResponse struct {
	Activated bool   `json:"activated"`
	State     string `json:"state"`
}

// EternalsResponse lists the registry roster.
type EternalsResponse struct {
	Count  int                  `json:"count"`
	Agents []registry.AgentView `json:"agents"`
}

// StreamFrame is one websocket push.
type StreamFrame struct {
	At        time.Time           `json:"at"`
	Snapshot  kernel.Snapshot     `json:"snapshot"`
	Fuel      recycler.FuelStatus `json:"fuel"`
	Resonance tuner.Status        `json:"resonance"`
}
