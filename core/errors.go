package core

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptLibrary means the durable library document exists but
	// cannot be parsed or violates the schema. Fatal at startup; the
	// store never seeds over a damaged file.
	ErrCorruptLibrary = errors.New("trait library is corrupt")

	// ErrKeyConflict means a commit tried to insert a key that already
	// exists. The engine resolves this internally by redirecting the
	// assignment to the existing entry.
	ErrKeyConflict = errors.New("trait key already exists")

	// ErrNoAnswers means every submitted answer was empty or whitespace.
	ErrNoAnswers = errors.New("no usable answers submitted")

	// ErrOracleTimeout means the oracle call exceeded its deadline.
	ErrOracleTimeout = errors.New("oracle call timed out")

	// ErrOracleFailed covers transport and auth level oracle failures.
	ErrOracleFailed = errors.New("oracle call failed")

	// ErrMalformedResponse means the oracle returned something that does
	// not match the expected response shape.
	ErrMalformedResponse = errors.New("malformed oracle response")
)

// Validation failure reasons.
const (
	ReasonInvalidKey        = "invalid_key"
	ReasonEmptyDefinition   = "empty_definition"
	ReasonUnknownSin        = "unknown_sin"
	ReasonWeightOutOfRange  = "weight_out_of_range"
	ReasonDegenerateWeights = "degenerate_weights"
)

// ValidationError rejects a single proposed trait without aborting the
// rest of the batch.
type ValidationError struct {
	Key    string
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("trait %q rejected: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("trait %q rejected: %s (%s)", e.Key, e.Reason, e.Detail)
}

// IsValidation reports whether err is a per-item validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
