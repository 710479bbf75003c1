package database

import "errors"

var (
	// ErrNotFound идентификатор не найден
	ErrNotFound = errors.New("reservation not found")

	// ErrSelfConflict у пользователя уже есть заявка на пересекающийся интервал
	ErrSelfConflict = errors.New("user already has a pending reservation in this range")

	// ErrRateLimited превышен лимит ожидающих заявок в скользящем окне
	ErrRateLimited = errors.New("pending reservation limit exceeded for the rolling window")

	// ErrConcurrentModification версия записи изменилась между чтением и записью
	ErrConcurrentModification = errors.New("reservation was modified concurrently")

	// ErrInvalidTransition переход статуса не разрешен машиной состояний
	ErrInvalidTransition = errors.New("status transition is not allowed")

	// ErrTerminalStatus запись в терминальном статусе не редактируется
	ErrTerminalStatus = errors.New("reservation is in a terminal status")

	// ErrNoFields пустое обновление
	ErrNoFields = errors.New("no fields to update")
)
