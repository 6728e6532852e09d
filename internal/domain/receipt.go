package domain

import "time"

// ReceiptStatus описывает состояние генерации чека.
type ReceiptStatus string

const (
	// ReceiptStatusPending — чек запрошен, но ещё не сгенерирован.
	ReceiptStatusPending ReceiptStatus = "PENDING"
	// ReceiptStatusCompleted — PDF чека готов и сохранён в записи.
	ReceiptStatusCompleted ReceiptStatus = "COMPLETED"
	// ReceiptStatusFailed — генерация провалилась после исчерпания retry.
	ReceiptStatusFailed ReceiptStatus = "FAILED"
)

// Terminal сообщает, является ли статус финальным.
// Из финального статуса запись не может вернуться в PENDING.
func (s ReceiptStatus) Terminal() bool {
	return s == ReceiptStatusCompleted || s == ReceiptStatusFailed
}

// ReceiptRecord хранит статус генерации чека по идентификатору запроса.
type ReceiptRecord struct {
	// ID совпадает с requestId, выданным при оформлении продажи.
	ID     string
	Status ReceiptStatus
	SaleID string
	// Receipt — байты PDF; заполнены только в статусе COMPLETED.
	Receipt []byte
	// ExpiresAt — момент истечения TTL; обновляется при каждой записи.
	ExpiresAt time.Time
	UpdatedAt time.Time
}
