package kernel

import "errors"

// Misuse errors. These indicate a bug in the caller, not a runtime
// condition; gate denials are reported as a false return instead.
var (
	// ErrConfirmerTooShort is returned by RequestUnlock when the confirmer
	// string carries fewer than eight non-whitespace characters.
	ErrConfirmerTooShort = errors.New("kernel: confirmer must contain at least 8 non-whitespace characters")

	// ErrNilState is returned by the dissipative stepper when no state
	// matrix is supplied. Unreachable through the engine, which always
	// passes its owned state.
	ErrNilState = errors.New("kernel: state matrix must be provided")

	// ErrNonPositiveStep is returned by Step when dt is zero or negative.
	ErrNonPositiveStep = errors.New("kernel: dt must be positive")
)
