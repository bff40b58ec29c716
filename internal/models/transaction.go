package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/domain/valueobject"
)

// Transaction - денежная запись escrow, привязанная к периоду фондирования заказа.
type Transaction struct {
	ID             uuid.UUID `db:"id" json:"id"`
	JobID          uuid.UUID `db:"job_id" json:"job_id"`
	GatewayOrderID *string   `db:"gateway_order_id" json:"gateway_order_id,omitempty"`
	PayerID        uuid.UUID `db:"payer_id" json:"payer_id"`
	PayeeID        uuid.UUID `db:"payee_id" json:"payee_id"`

	Amount            int64 `db:"amount" json:"amount"`
	Tip               int64 `db:"tip" json:"tip"`
	Commission        int64 `db:"commission" json:"commission"`
	GiverFee          int64 `db:"giver_fee" json:"giver_fee"`
	TotalPaidByGiver  int64 `db:"total_paid_by_giver" json:"total_paid_by_giver"`
	PayoutToInstaller int64 `db:"payout_to_installer" json:"payout_to_installer"`

	Status            valueobject.TransactionStatus `db:"status" json:"status"`
	Settlement        *Settlement                   `db:"settlement" json:"settlement,omitempty"`
	SettlementVersion int                           `db:"settlement_version" json:"settlement_version"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	FundedAt  *time.Time `db:"funded_at" json:"funded_at,omitempty"`
	SettledAt *time.Time `db:"settled_at" json:"settled_at,omitempty"`
}

// TransactionPatch - поля, которые можно изменить вместе со статусом.
type TransactionPatch struct {
	GatewayOrderID *string
	FundedAt       *time.Time
	// Job - переход заказа в той же транзакции БД.
	Job *JobTransition
	// OpenDispute создаётся вместе с переводом в disputed.
	OpenDispute *Dispute
}

// SettlementPath - ветка, по которой закрыта сделка.
type SettlementPath string

const (
	SettlementPathCancellation SettlementPath = "cancellation"
	SettlementPathNoShow       SettlementPath = "no_show"
	SettlementPathDispute      SettlementPath = "dispute"
	SettlementPathRelease      SettlementPath = "release"
)

type Rail string

const (
	RailRefund Rail = "refund"
	RailPayout Rail = "payout"
)

type RailStatus string

const (
	// RailStatusPending - сделка захвачена, вызов шлюза ещё не записан.
	RailStatusPending   RailStatus = "pending"
	RailStatusSucceeded RailStatus = "succeeded"
	RailStatusFailed    RailStatus = "failed"
	// RailStatusUnknown - таймаут: повторять с тем же ключом идемпотентности.
	RailStatusUnknown RailStatus = "unknown"
	RailStatusSkipped RailStatus = "skipped"
)

// RailOutcome - результат одного денежного рельса (возврат или выплата).
type RailOutcome struct {
	Rail           Rail       `json:"rail"`
	Amount         int64      `json:"amount"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
	Status         RailStatus `json:"status"`
	GatewayRef     string     `json:"gateway_ref,omitempty"`
	GatewayStatus  string     `json:"gateway_status,omitempty"`
	Error          string     `json:"error,omitempty"`
	Retryable      bool       `json:"retryable,omitempty"`
	Attempts       int        `json:"attempts"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NeedsRetry - рельс не подтверждён и может быть повторён.
func (o RailOutcome) NeedsRetry() bool {
	switch o.Status {
	case RailStatusPending, RailStatusFailed, RailStatusUnknown:
		return true
	}
	return false
}

// SettlementState - производное состояние расчёта для UI и сверки.
type SettlementState string

const (
	SettlementStateSettling         SettlementState = "settling"
	SettlementStateSettled          SettlementState = "settled"
	SettlementStatePartiallySettled SettlementState = "partially_settled"
)

// Settlement - неизменяемая запись о разделе средств и исходах рельсов.
type Settlement struct {
	Path        SettlementPath `json:"path"`
	Split       Split          `json:"split"`
	Rates       *RatesSnapshot `json:"rates,omitempty"`
	Refund      RailOutcome    `json:"refund"`
	Payout      RailOutcome    `json:"payout"`
	Epoch       int            `json:"epoch"`
	RequestedBy uuid.UUID      `json:"requested_by"`
	DisputeID   *uuid.UUID     `json:"dispute_id,omitempty"`
	SettledAt   time.Time      `json:"settled_at"`
}

func (s *Settlement) State() SettlementState {
	pending := false
	for _, o := range []RailOutcome{s.Refund, s.Payout} {
		switch o.Status {
		case RailStatusFailed, RailStatusUnknown:
			return SettlementStatePartiallySettled
		case RailStatusPending:
			pending = true
		}
	}
	if pending {
		return SettlementStateSettling
	}
	return SettlementStateSettled
}

// PartiallySettled - хотя бы один рельс завершился неудачей или неизвестным исходом.
func (s *Settlement) PartiallySettled() bool {
	return s.State() == SettlementStatePartiallySettled
}

// RailOutcomePtr возвращает слот рельса для обновления.
func (s *Settlement) RailOutcomePtr(rail Rail) *RailOutcome {
	if rail == RailRefund {
		return &s.Refund
	}
	return &s.Payout
}

// Value отдаёт JSON строкой: lib/pq передаёт []byte как bytea.
func (s Settlement) Value() (driver.Value, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (s *Settlement) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("settlement: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, s)
}

// InstallerDebt - обязательство исполнителя перед платформой.
type InstallerDebt struct {
	UserID uuid.UUID
	Amount int64
}

// DisputeResolution - закрытие спора в рамках расчёта.
type DisputeResolution struct {
	DisputeID       uuid.UUID
	Resolution      DisputeResolutionType
	SplitPercentage *float64
	ResolvedBy      uuid.UUID
}

// SettlementCommit применяется хранилищем атомарно: транзакция, заказ, спор, долг.
type SettlementCommit struct {
	TransactionID uuid.UUID
	From          valueobject.TransactionStatus
	To            valueobject.TransactionStatus
	Settlement    Settlement
	Job           JobTransition
	Dispute       *DisputeResolution
	Debt          *InstallerDebt
}
