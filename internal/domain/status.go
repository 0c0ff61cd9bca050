package domain

import "strings"

// BatchStatus is the lifecycle state of a batch.
type BatchStatus string

const (
	StatusThawing   BatchStatus = "thawing"
	StatusAvailable BatchStatus = "available"
	StatusSurplus   BatchStatus = "surplus"
	StatusExpired   BatchStatus = "expired"
	StatusSoldOut   BatchStatus = "sold_out"
)

// AllStatuses lists statuses in lifecycle order.
var AllStatuses = []BatchStatus{
	StatusThawing,
	StatusAvailable,
	StatusSurplus,
	StatusExpired,
	StatusSoldOut,
}

var batchStatusLabels = map[BatchStatus]string{
	StatusThawing:   "Thawing",
	StatusAvailable: "Available",
	StatusSurplus:   "Surplus",
	StatusExpired:   "Expired",
	StatusSoldOut:   "Sold out",
}

// states reachable going forward; a run that catches up on missed days may
// cross several edges at once. Staying in place is always allowed.
var batchTransitions = map[BatchStatus][]BatchStatus{
	StatusThawing:   {StatusAvailable, StatusSurplus, StatusExpired, StatusSoldOut},
	StatusAvailable: {StatusSurplus, StatusExpired, StatusSoldOut},
	StatusSurplus:   {StatusExpired, StatusSoldOut},
}

// Valid reports whether s is a known status.
func (s BatchStatus) Valid() bool {
	_, ok := batchStatusLabels[s]
	return ok
}

// Terminal reports whether no further transition is possible.
func (s BatchStatus) Terminal() bool {
	return s == StatusExpired || s == StatusSoldOut
}

// Label returns a human-readable label for a batch status.
func (s BatchStatus) Label() string {
	if label, ok := batchStatusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// CanTransitionTo reports whether moving from s to next follows the lifecycle graph.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseBatchStatus returns the status for a given label (case-insensitive).
func ParseBatchStatus(label string) (BatchStatus, bool) {
	s := BatchStatus(strings.ToLower(strings.TrimSpace(label)))
	return s, s.Valid()
}
