package gateway

import (
	"context"
	"net/http"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/logger"
)

// Simulated подтверждает все операции без обращения к провайдеру (development, e2e).
// Созданный им заказ сразу считается оплаченным на полную сумму.
type Simulated struct {
	mu     sync.Mutex
	orders map[string]int64
}

func NewSimulated() *Simulated {
	return &Simulated{orders: make(map[string]int64)}
}

func (s *Simulated) CreateOrder(_ context.Context, req OrderRequest) (*OrderResult, error) {
	s.mu.Lock()
	s.orders[req.OrderID] = req.Amount
	s.mu.Unlock()

	logger.WithFields(logrus.Fields{"order_id": req.OrderID, "amount": req.Amount}).Info("simulated gateway: order created")
	return &OrderResult{OrderID: req.OrderID, PaymentSessionID: "sim_session_" + req.OrderID, Status: "ACTIVE"}, nil
}

func (s *Simulated) GetOrder(_ context.Context, orderID string) (*OrderStatus, error) {
	s.mu.Lock()
	amount, ok := s.orders[orderID]
	s.mu.Unlock()

	if !ok {
		return nil, &Error{Op: "get order", StatusCode: http.StatusNotFound, Code: "order_not_found", Message: orderID}
	}
	return &OrderStatus{OrderID: orderID, Status: OrderPaid, Amount: decimal.NewFromInt(amount)}, nil
}

func (s *Simulated) Refund(_ context.Context, req RefundRequest) (*RefundResult, error) {
	logger.WithFields(logrus.Fields{"order_id": req.OrderID, "amount": req.Amount, "key": req.IdempotencyKey}).Info("simulated gateway: refund")
	return &RefundResult{GatewayRefundID: "sim_" + req.IdempotencyKey, Status: "SUCCESS"}, nil
}

func (s *Simulated) Payout(_ context.Context, req PayoutRequest) (*PayoutResult, error) {
	if req.BeneficiaryID == "" {
		return nil, ErrBeneficiaryMissing
	}
	logger.WithFields(logrus.Fields{"beneficiary": req.BeneficiaryID, "amount": req.Amount, "key": req.IdempotencyKey}).Info("simulated gateway: payout")
	return &PayoutResult{GatewayTransferID: "sim_" + req.IdempotencyKey, Status: "SUCCESS"}, nil
}
