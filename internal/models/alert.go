package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AlertLevel string

const (
	AlertLevelInfo     AlertLevel = "INFO"
	AlertLevelWarning  AlertLevel = "WARNING"
	AlertLevelCritical AlertLevel = "CRITICAL"
)

// Alert - сигнал оператору (сбой шлюза, крупный возврат, долг за неявку).
type Alert struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Level     AlertLevel      `db:"level" json:"level"`
	Kind      string          `db:"kind" json:"kind"`
	Message   string          `db:"message" json:"message"`
	Metadata  json.RawMessage `db:"metadata" json:"metadata"`
	Read      bool            `db:"read" json:"read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Виды алертов.
const (
	AlertKindGatewayFailure   = "gateway_failure"
	AlertKindHighValueRefund  = "high_value_refund"
	AlertKindNoShowDebt       = "no_show_debt"
	AlertKindDisputeRaised    = "dispute_raised"
	AlertKindDisputeResolved  = "dispute_resolved"
	AlertKindNotificationLost = "notification_lost"
)
