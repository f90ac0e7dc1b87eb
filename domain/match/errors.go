package match

import (
	"errors"
	"fmt"
)

// Hard failures. Unlike soft statuses these reject the whole call: they
// signal a precondition violation or an upstream logic error, never a
// legitimate business outcome.
var (
	// ErrAssetMismatch: the two orders are not asset-complementary.
	ErrAssetMismatch = errors.New("match: orders are not complementary")

	// ErrNegativeSpread: left.makerAmount*right.makerAmount <
	// left.takerAmount*right.takerAmount.
	ErrNegativeSpread = errors.New("match: negative spread")
)

// InvariantError marks an internal consistency check failure. It is a
// distinct type so fuzzing and callers can tell a logic regression apart
// from business-rule rejections.
type InvariantError struct {
	Check string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("match: invariant violated: %s", e.Check)
}

func invariant(check string) error {
	return &InvariantError{Check: check}
}

// IsInvariant reports whether err carries an InvariantError.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
