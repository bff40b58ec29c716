package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/config"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/domain/valueobject"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/logger"
)

// Cashfree реализует Gateway поверх Cashfree PG (заказы, возвраты) и Payouts.
type Cashfree struct {
	pgBaseURL     string
	payoutBaseURL string
	clientID      string
	clientSecret  string
	payoutID      string
	payoutSecret  string
	apiVersion    string
	timeout       time.Duration
	httpClient    *http.Client
}

// NewCashfree создаёт клиента. Таймаут применяется к каждому вызову.
func NewCashfree(cfg config.GatewayConfig) *Cashfree {
	return &Cashfree{
		pgBaseURL:     strings.TrimRight(cfg.PGBaseURL, "/"),
		payoutBaseURL: strings.TrimRight(cfg.PayoutURL, "/"),
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		payoutID:      cfg.PayoutID,
		payoutSecret:  cfg.PayoutSecret,
		apiVersion:    cfg.APIVersion,
		timeout:       cfg.Timeout,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// CreateOrder создаёт платёжный заказ для фондирования escrow.
func (c *Cashfree) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	payload := map[string]any{
		"order_id":       req.OrderID,
		"order_amount":   req.Amount,
		"order_currency": valueobject.Currency,
		"customer_details": map[string]string{
			"customer_id":    req.CustomerID,
			"customer_email": req.CustomerEmail,
			"customer_phone": req.CustomerPhone,
		},
	}

	var result OrderResult
	if err := c.do(ctx, "create order", http.MethodPost, c.pgBaseURL+"/orders", c.pgHeaders(), payload, &result); err != nil {
		return nil, err
	}
	if result.OrderID == "" {
		result.OrderID = req.OrderID
	}
	return &result, nil
}

// GetOrder читает текущий статус заказа. Подтверждение оплаты опирается только на него.
func (c *Cashfree) GetOrder(ctx context.Context, orderID string) (*OrderStatus, error) {
	var result OrderStatus
	url := fmt.Sprintf("%s/orders/%s", c.pgBaseURL, orderID)
	if err := c.do(ctx, "get order", http.MethodGet, url, c.pgHeaders(), nil, &result); err != nil {
		return nil, err
	}
	if result.OrderID == "" {
		result.OrderID = orderID
	}
	return &result, nil
}

// Refund возвращает деньги заказчику по заказу. refund_id служит ключом идемпотентности.
func (c *Cashfree) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	payload := map[string]any{
		"refund_amount": req.Amount,
		"refund_id":     req.IdempotencyKey,
		"refund_note":   req.Note,
	}

	var resp struct {
		CfRefundID   string `json:"cf_refund_id"`
		RefundID     string `json:"refund_id"`
		RefundStatus string `json:"refund_status"`
	}
	url := fmt.Sprintf("%s/orders/%s/refunds", c.pgBaseURL, req.OrderID)
	err := c.do(ctx, "refund", http.MethodPost, url, c.pgHeaders(), payload, &resp)
	if alreadyProcessed(err) {
		return &RefundResult{GatewayRefundID: req.IdempotencyKey, Status: "ALREADY_PROCESSED"}, nil
	}
	if err != nil {
		return nil, err
	}

	ref := resp.CfRefundID
	if ref == "" {
		ref = resp.RefundID
	}
	return &RefundResult{GatewayRefundID: ref, Status: resp.RefundStatus}, nil
}

// Payout переводит деньги исполнителю. transferId служит ключом идемпотентности.
func (c *Cashfree) Payout(ctx context.Context, req PayoutRequest) (*PayoutResult, error) {
	if req.BeneficiaryID == "" {
		return nil, ErrBeneficiaryMissing
	}

	token, err := c.payoutToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"beneId":     req.BeneficiaryID,
		"amount":     valueobject.FormatAmount(req.Amount),
		"transferId": req.IdempotencyKey,
		"remarks":    req.Remarks,
	}
	headers := map[string]string{"Authorization": "Bearer " + token}

	var resp struct {
		Status  string `json:"status"`
		SubCode string `json:"subCode"`
		Message string `json:"message"`
		Data    struct {
			ReferenceID string `json:"referenceId"`
			UTR         string `json:"utr"`
		} `json:"data"`
	}
	err = c.do(ctx, "payout", http.MethodPost, c.payoutBaseURL+"/payouts/standard", headers, payload, &resp)
	if alreadyProcessed(err) {
		return &PayoutResult{GatewayTransferID: req.IdempotencyKey, Status: "ALREADY_PROCESSED"}, nil
	}
	if err != nil {
		return nil, err
	}

	// Payouts отвечает 200 со статусом ERROR в теле.
	if strings.EqualFold(resp.Status, "ERROR") {
		return nil, &Error{Op: "payout", Code: resp.SubCode, Message: resp.Message, Retryable: retryableSubCode(resp.SubCode)}
	}

	ref := resp.Data.ReferenceID
	if ref == "" {
		ref = req.IdempotencyKey
	}
	return &PayoutResult{GatewayTransferID: ref, Status: resp.Status}, nil
}

func (c *Cashfree) payoutToken(ctx context.Context) (string, error) {
	headers := map[string]string{
		"X-Client-Id":     c.payoutID,
		"X-Client-Secret": c.payoutSecret,
	}

	var resp struct {
		Status  string `json:"status"`
		SubCode string `json:"subCode"`
		Message string `json:"message"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := c.do(ctx, "payout auth", http.MethodPost, c.payoutBaseURL+"/auth", headers, nil, &resp); err != nil {
		return "", err
	}
	if resp.Data.Token == "" {
		return "", &Error{Op: "payout auth", Code: resp.SubCode, Message: "token missing: " + resp.Message}
	}
	return resp.Data.Token, nil
}

func (c *Cashfree) pgHeaders() map[string]string {
	return map[string]string{
		"x-client-id":     c.clientID,
		"x-client-secret": c.clientSecret,
		"x-api-version":   c.apiVersion,
	}
}

// do выполняет запрос с ограничением по времени и классифицирует ошибки.
func (c *Cashfree) do(ctx context.Context, op, method, url string, headers map[string]string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return &Error{Op: op, Message: "marshal request", Cause: err}
		}
		body = bytes.NewReader(raw)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &Error{Op: op, Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Сетевая ошибка или таймаут: исход неизвестен, повторять с тем же ключом.
		logger.WithFields(logrus.Fields{"op": op, "error": err.Error()}).Warn("cashfree: request failed")
		return &Error{Op: op, Message: "transport error", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	logger.WithFields(logrus.Fields{
		"op":          op,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
	}).Debug("cashfree: response")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		logger.WithFields(logrus.Fields{"op": op, "status": resp.StatusCode, "error": err.Error()}).Warn("cashfree: response body lost")
		if resp.StatusCode < 400 {
			// Провайдер принял запрос, но тело не дочитано: исход неизвестен.
			return &Error{Op: op, Message: "read response", Retryable: true, Cause: err}
		}
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: "read response", Retryable: true, Cause: err}
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Code    string `json:"code"`
			Type    string `json:"type"`
			Message string `json:"message"`
			SubCode string `json:"subCode"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		code := apiErr.Code
		if code == "" {
			code = apiErr.SubCode
		}
		return &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Code:       code,
			Message:    apiErr.Message,
			Retryable:  retryableStatus(resp.StatusCode),
		}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: "decode response", Cause: err}
	}
	return nil
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500
}

// Payouts кодирует ошибки в subCode; 5xx-коды означают временный сбой.
func retryableSubCode(subCode string) bool {
	return strings.HasPrefix(subCode, "5")
}

// alreadyProcessed - провайдер уже принял запрос с этим ключом.
func alreadyProcessed(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.StatusCode == http.StatusConflict
}
