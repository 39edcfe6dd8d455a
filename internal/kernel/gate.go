package kernel

import (
	"fmt"
	"math"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// GateState is the protocol gate's position.
type GateState int

const (
	// GateLocked means no unlock token is outstanding.
	GateLocked GateState = iota
	// GateTokenIssued means a token has been issued and awaits confirmation.
	GateTokenIssued
	// GateActivated means the gate has been confirmed open. Activation is
	// sticky; issuing further tokens does not re-lock it.
	GateActivated
)

func (s GateState) String() string {
	switch s {
	case GateLocked:
		return "locked"
	case GateTokenIssued:
		return "token_issued"
	default:
		return "activated"
	}
}

const (
	// tokenTTL is the validity window checked at confirmation time.
	tokenTTL = 600 * time.Second
	// minConfirmerRunes is the least number of non-whitespace runes a
	// confirmer string must carry.
	minConfirmerRunes = 8
	// scarFloor is the minimum scar value after activation.
	scarFloor = 0.2
	// initialScar is the constraint floor before activation.
	initialScar = 0.01
)

// Denial reasons reported by Confirm.
const (
	DenialInvalidToken     = "invalid token"
	DenialTokenExpired     = "token expired"
	DenialOverrideRequired = "override confirmation required"
)

type issuedToken struct {
	value    string
	issuedAt time.Time
}

// ProtocolGate is the two-phase unlock mechanism. At most one token is
// outstanding; issuing a new one discards the previous. Confirmation
// demands the matching token plus an explicit override flag, and raises
// the scar floor on success.
type ProtocolGate struct {
	activated bool
	token     *issuedToken
	scar      float64
}

// NewProtocolGate returns a locked gate with the initial scar floor.
func NewProtocolGate() *ProtocolGate {
	return &ProtocolGate{scar: initialScar}
}

// Request validates the confirmer and issues a fresh token embedding the
// current time and a prefix of the confirmer. The confirmer is NFC
// normalized before validation so visually identical spellings count the
// same runes.
func (g *ProtocolGate) Request(confirmer string, now time.Time) (string, error) {
	normalized := norm.NFC.String(confirmer)
	var visible int
	for _, r := range normalized {
		if !unicode.IsSpace(r) {
			visible++
		}
	}
	if visible < minConfirmerRunes {
		return "", ErrConfirmerTooShort
	}
	runes := []rune(normalized)
	token := fmt.Sprintf("PZ-%d-%s", now.Unix(), string(runes[:minConfirmerRunes]))
	g.token = &issuedToken{value: token, issuedAt: now}
	return token, nil
}

// Confirm checks the supplied token and override flag. It returns true
// and activates the gate on success, or false plus a denial reason. An
// expired token passes only when override is set; override itself is
// mandatory in every case.
func (g *ProtocolGate) Confirm(token string, override bool, now time.Time) (bool, string) {
	if g.token == nil || token != g.token.value {
		return false, DenialInvalidToken
	}
	if now.Sub(g.token.issuedAt) > tokenTTL && !override {
		return false, DenialTokenExpired
	}
	if !override {
		return false, DenialOverrideRequired
	}
	g.activated = true
	g.scar = math.Max(g.scar, scarFloor)
	return true, ""
}

// State reports the gate position. Activation wins over an outstanding
// token.
func (g *ProtocolGate) State() GateState {
	switch {
	case g.activated:
		return GateActivated
	case g.token != nil:
		return GateTokenIssued
	default:
		return GateLocked
	}
}

// Activated reports whether the gate has been confirmed open.
func (g *ProtocolGate) Activated() bool { return g.activated }

// Scar returns the current constraint floor.
func (g *ProtocolGate) Scar() float64 { return g.scar }
