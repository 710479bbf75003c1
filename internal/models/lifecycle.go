package models

// CanTransition encodes the reservation lifecycle:
//
//	pending  -> approved | rejected | cancelled
//	approved -> cancelled
//	rejected, cancelled -> (none)
//
// Approval additionally triggers the cascade rejection of overlapping
// pending reservations; that side effect lives with the storage layer so the
// status write and the sweep share one transaction.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected || to == StatusCancelled
	case StatusApproved:
		return to == StatusCancelled
	default:
		return false
	}
}
