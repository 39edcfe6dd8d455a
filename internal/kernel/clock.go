package kernel

import "time"

// Clock supplies wall time to the engine. The intent phase and the token
// validity window both read it, so tests inject a manual implementation
// instead of sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
