package models

import (
	"time"

	"github.com/google/uuid"
)

// User - участник сделки в объёме, нужном для расчётов.
type User struct {
	ID    uuid.UUID `db:"id" json:"id"`
	Email string    `db:"email" json:"email"`
	Name  string    `db:"name" json:"name"`
	Role  string    `db:"role" json:"role"`
}

// PayoutProfile - реквизиты выплат и долг перед платформой.
type PayoutProfile struct {
	UserID uuid.UUID `db:"id" json:"user_id"`
	// BeneficiaryID - идентификатор получателя в Cashfree Payouts.
	BeneficiaryID *string `db:"payout_beneficiary_id" json:"beneficiary_id,omitempty"`
	// PlatformDebt - учтённое обязательство исполнителя (неявка), без движения денег.
	PlatformDebt int64     `db:"platform_debt" json:"platform_debt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// HasBeneficiary сообщает, можно ли отправить выплату.
func (p *PayoutProfile) HasBeneficiary() bool {
	return p != nil && p.BeneficiaryID != nil && *p.BeneficiaryID != ""
}
