package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification - уведомление пользователя.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// События, которые получают участники сделки.
const (
	EventEscrowSettled   = "escrow.settled"
	EventEscrowFunded    = "escrow.funded"
	EventDisputeRaised   = "dispute.raised"
	EventDisputeResolved = "dispute.resolved"
)

// SettlementEvent - полезная нагрузка уведомления о закрытии сделки.
type SettlementEvent struct {
	Event         string          `json:"event"`
	JobID         uuid.UUID       `json:"job_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	GiverID       uuid.UUID       `json:"giver_id"`
	InstallerID   *uuid.UUID      `json:"installer_id,omitempty"`
	Path          SettlementPath  `json:"path,omitempty"`
	State         SettlementState `json:"state,omitempty"`
	RefundAmount  int64           `json:"refund_amount"`
	PayoutAmount  int64           `json:"payout_amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Recipients - кому отправить событие.
func (e SettlementEvent) Recipients() []uuid.UUID {
	out := []uuid.UUID{e.GiverID}
	if e.InstallerID != nil {
		out = append(out, *e.InstallerID)
	}
	return out
}
