// Package chimera parses living-language console commands and dispatches
// them to the subsystems they invoke.
package chimera

import (
	"strings"

	"github.com/shineon1903-bot/THE-CRUCIBLE-CORE/internal/recycler"
)

// Recognized command fragments. Matching is case-insensitive and looks
// for the fragment anywhere in the trimmed input.
const (
	CommandUnleash = "UNLEASH_PROTOCOL_ZERO"
	CommandRecycle = "RECYCLE_SHADOW"
)

// Console responses.
const (
	DecreeActive        = "DIVINE_DECREE_ACTIVE: potential='INFINITE_ACTUALIZED'"
	AwaitingRecognition = "PARSING_SYNTAX... AWAITING_MAESTRO_RECOGNITION"
	manualShadowInput   = "Manual_Shadow_Input"
)

// Message is the plain console response form.
type Message struct {
	Text string `json:"message"`
}

// Engine interprets console commands. The recycler reference is injected
// so the console can trigger shadow recycling.
type Engine struct {
	rec *recycler.EntropicRecycler
}

// New returns a console engine backed by rec.
func New(rec *recycler.EntropicRecycler) *Engine {
	return &Engine{rec: rec}
}

// Execute parses the input and returns the JSON-serializable response:
// either a Message or a recycler.Result, depending on the command.
func (e *Engine) Execute(input string) any {
	command := strings.ToUpper(strings.TrimSpace(input))
	switch {
	case strings.Contains(command, CommandUnleash):
		return Message{Text: DecreeActive}
	case strings.Contains(command, CommandRecycle):
		return e.rec.ConsumeFailure(manualShadowInput)
	default:
		return Message{Text: AwaitingRecognition}
	}
}
