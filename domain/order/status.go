package order

// Status classifies an order's fillability at resolution time.
type Status uint8

const (
	// StatusInvalid marks orders that can never be filled, e.g. a zero
	// maker or taker asset amount.
	StatusInvalid Status = iota

	// StatusFillable orders have unfilled taker asset amount remaining.
	// This includes partially filled orders.
	StatusFillable

	// StatusExpired orders are past their expiration time. Expiry
	// bookkeeping is external; resolution only classifies.
	StatusExpired

	// StatusFullyFilled orders have cumulative fill equal to their taker
	// asset amount. The hash stays permanently recorded.
	StatusFullyFilled

	// StatusCancelled orders carry the cancellation flag in fill state.
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusInvalid:     "invalid",
	StatusFillable:    "fillable",
	StatusExpired:     "expired",
	StatusFullyFilled: "fully_filled",
	StatusCancelled:   "cancelled",
}

// String implements Stringer.
func (s Status) String() string {
	name, ok := statusNames[s]
	if !ok {
		return "unknown"
	}
	return name
}

// Fillable reports whether an order in this status may still be filled.
func (s Status) Fillable() bool {
	return s == StatusFillable
}
