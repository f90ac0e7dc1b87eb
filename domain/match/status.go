package match

// Status is the soft outcome of a match attempt. Statuses are data, not
// errors: a non-success status means the match was skipped with zero state
// change, and the caller is expected to branch on it. Logic violations are
// reported as hard errors instead (see errors.go).
type Status uint8

const (
	StatusSuccess Status = iota

	// StatusInvalidSignature: a maker signature failed verification.
	StatusInvalidSignature

	// StatusInvalidTaker: an order names a specific taker and the caller
	// is someone else.
	StatusInvalidTaker

	// StatusOrderUnfillable covers cancelled, expired, fully filled and
	// structurally invalid orders on either side.
	StatusOrderUnfillable

	// StatusRoundingErrorTooLarge: a proposed partial fill would lose more
	// than the negligible threshold to integer truncation. The whole match
	// is skipped rather than settling a distorted trade.
	StatusRoundingErrorTooLarge
)

var statusNames = map[Status]string{
	StatusSuccess:               "success",
	StatusInvalidSignature:      "invalid_signature",
	StatusInvalidTaker:          "invalid_taker",
	StatusOrderUnfillable:       "order_unfillable",
	StatusRoundingErrorTooLarge: "rounding_error_too_large",
}

func (s Status) String() string {
	name, ok := statusNames[s]
	if !ok {
		return "unknown"
	}
	return name
}
