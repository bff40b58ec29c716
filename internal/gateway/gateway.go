// Package gateway оборачивает API платёжного провайдера: заказы, возвраты, выплаты.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrBeneficiaryMissing - у получателя нет привязанного счёта, шлюз не вызывается.
var ErrBeneficiaryMissing = errors.New("gateway: beneficiary missing")

// Operation - тип денежной операции, участвует в ключе идемпотентности.
type Operation string

const (
	OpRefund Operation = "ref"
	OpPayout Operation = "pay"
)

// Gateway - контракт, на который опирается расчёт сделки.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	GetOrder(ctx context.Context, orderID string) (*OrderStatus, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	Payout(ctx context.Context, req PayoutRequest) (*PayoutResult, error)
}

type OrderRequest struct {
	OrderID       string
	Amount        int64
	CustomerID    string
	CustomerEmail string
	CustomerPhone string
}

type OrderResult struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
	Status           string `json:"order_status"`
}

// OrderPaid - статус заказа провайдера после успешной оплаты.
const OrderPaid = "PAID"

// OrderStatus - состояние заказа у провайдера на момент запроса.
type OrderStatus struct {
	OrderID string          `json:"order_id"`
	Status  string          `json:"order_status"`
	Amount  decimal.Decimal `json:"order_amount"`
}

// PaidAmount возвращает оплаченную сумму, если заказ оплачен целиком в целых единицах.
func (o *OrderStatus) PaidAmount() (int64, bool) {
	if o == nil || o.Status != OrderPaid || !o.Amount.IsInteger() {
		return 0, false
	}
	return o.Amount.IntPart(), true
}

type RefundRequest struct {
	OrderID        string
	Amount         int64
	IdempotencyKey string
	Note           string
}

type RefundResult struct {
	GatewayRefundID string
	Status          string
}

type PayoutRequest struct {
	BeneficiaryID  string
	Amount         int64
	IdempotencyKey string
	Remarks        string
}

type PayoutResult struct {
	GatewayTransferID string
	Status            string
}

// Error - типизированная ошибка шлюза. Retryable означает: повторить с тем же ключом.
type Error struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gateway: %s", e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " status %d", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable сообщает, можно ли повторить вызов с тем же ключом.
func IsRetryable(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Retryable
}

// OutcomeUnknown - запрос мог дойти до провайдера, но ответа нет (таймаут, обрыв связи).
func OutcomeUnknown(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Retryable && gwErr.StatusCode == 0 && gwErr.Code == ""
}

// IdempotencyKey строит детерминированный ключ из заказа, операции и эпохи попытки.
// Длина не превышает 40 символов (ограничение refund_id и transferId у провайдера).
func IdempotencyKey(jobID uuid.UUID, op Operation, epoch int) string {
	return fmt.Sprintf("%s_%s_%d", op, strings.ReplaceAll(jobID.String(), "-", ""), epoch)
}
