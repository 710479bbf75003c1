package models

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// IsTerminalStatus reports whether a status admits no further transitions.
// Approved reservations may still be cancelled, so approved is not terminal.
func IsTerminalStatus(status string) bool {
	return status == StatusRejected || status == StatusCancelled
}

// ValidStatus reports whether s is one of the four lifecycle states.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

const (
	// DefaultSlotStepMinutes шаг сетки занятых слотов
	DefaultSlotStepMinutes = 5

	// DefaultSlotBufferMinutes технический буфер до и после брони
	DefaultSlotBufferMinutes = 10

	// DefaultMaxDurationMinutes максимальная длительность брони (48 часов)
	DefaultMaxDurationMinutes = 48 * 60

	// DefaultPendingWindowDays скользящее окно для лимита заявок
	DefaultPendingWindowDays = 14

	// DefaultMaxPendingInWindow допустимое число ожидающих заявок в окне
	DefaultMaxPendingInWindow = 3

	// DefaultUserLockTTLSeconds время жизни пользовательской блокировки
	DefaultUserLockTTLSeconds = 30

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 128
)
