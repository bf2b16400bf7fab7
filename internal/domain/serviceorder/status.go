package serviceorder

// Status is the lifecycle state of a service order.
type Status string

const (
	StatusQuote        Status = "QUOTE"
	StatusApproved     Status = "APPROVED"
	StatusInProgress   Status = "IN_PROGRESS"
	StatusAwaitingPart Status = "AWAITING_PART"
	StatusCompleted    Status = "COMPLETED"
	StatusDelivered    Status = "DELIVERED"
	StatusCancelled    Status = "CANCELLED"
)

// transitions lists the allowed targets per source status.
// COMPLETED → CANCELLED exists so a finished order can be voided; the
// service reverses its stock deductions when that happens.
var transitions = map[Status][]Status{
	StatusQuote:        {StatusApproved, StatusCancelled},
	StatusApproved:     {StatusInProgress, StatusCancelled},
	StatusInProgress:   {StatusAwaitingPart, StatusCompleted, StatusCancelled},
	StatusAwaitingPart: {StatusInProgress, StatusCancelled},
	StatusCompleted:    {StatusDelivered, StatusCancelled},
	StatusDelivered:    {},
	StatusCancelled:    {},
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusQuote,
		StatusApproved,
		StatusInProgress,
		StatusAwaitingPart,
		StatusCompleted,
		StatusDelivered,
		StatusCancelled,
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Editable reports whether line items, labor and discounts may change.
func (s Status) Editable() bool {
	switch s {
	case StatusQuote, StatusApproved, StatusInProgress, StatusAwaitingPart:
		return true
	}
	return false
}

// AllowedTargets returns a copy of the targets reachable from s.
func (s Status) AllowedTargets() []Status {
	return append([]Status(nil), transitions[s]...)
}

// CanTransition reports whether from → to is in the transition table.
func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }
