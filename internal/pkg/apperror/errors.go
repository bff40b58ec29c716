package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	// ErrCodeState - гонка или устаревшее представление клиента о статусе.
	ErrCodeState ErrorCode = "STATE_ERROR"
	// ErrCodeEligibility - операция недоступна, клиенту нужен другой путь.
	ErrCodeEligibility ErrorCode = "ELIGIBILITY_ERROR"
	ErrCodeGateway     ErrorCode = "GATEWAY_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	Hint       string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// WithHint возвращает ошибку с подсказкой об альтернативном пути.
func WithHint(code ErrorCode, message, hint string) *AppError {
	e := New(code, message)
	e.Hint = hint
	return e
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Detail дополняет sentinel-ошибку контекстом, сохраняя errors.Is.
func Detail(sentinel *AppError, format string, args ...any) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message + ": " + fmt.Sprintf(format, args...),
		Hint:       sentinel.Hint,
		HTTPStatus: sentinel.HTTPStatus,
		Cause:      sentinel,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeState:
		return http.StatusConflict
	case ErrCodeEligibility:
		return http.StatusUnprocessableEntity
	case ErrCodeGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// As достаёт AppError из цепочки.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsNotFound(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeValidation
}

func IsState(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeState
}

func IsEligibility(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == ErrCodeEligibility
}

var (
	ErrJobNotFound          = New(ErrCodeNotFound, "заказ не найден")
	ErrTransactionNotFound  = New(ErrCodeNotFound, "активная транзакция не найдена")
	ErrDisputeNotFound      = New(ErrCodeNotFound, "спор не найден")
	ErrUserNotFound         = New(ErrCodeNotFound, "пользователь не найден")
	ErrAlertNotFound        = New(ErrCodeNotFound, "алерт не найден")
	ErrNotificationNotFound = New(ErrCodeNotFound, "уведомление не найдено")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden            = New(ErrCodeForbidden, "недостаточно прав")

	ErrValidation         = New(ErrCodeValidation, "некорректный запрос")
	ErrInvalidSplit       = New(ErrCodeValidation, "процент разделения должен быть в диапазоне от 0 до 100")
	ErrBeneficiaryMissing = New(ErrCodeValidation, "у исполнителя не привязан счёт для выплат")
	ErrInvalidAmount      = New(ErrCodeValidation, "сумма должна быть положительной")
	ErrInvalidResolution  = New(ErrCodeValidation, "неизвестный тип решения спора")
	ErrInvalidRate        = New(ErrCodeValidation, "ставка должна быть в диапазоне от 0 до 100")

	ErrStaleState                 = New(ErrCodeState, "статус транзакции уже изменён другим запросом")
	ErrInvalidStateForResolution  = New(ErrCodeState, "текущий статус не допускает урегулирования")
	ErrDuplicateActiveTransaction = New(ErrCodeState, "у заказа уже есть активная транзакция")
	ErrIllegalJobTransition       = New(ErrCodeState, "недопустимый переход статуса заказа")
	ErrDisputeAlreadyOpen         = New(ErrCodeState, "спор по заказу уже открыт")

	ErrNoShowNotEligible = WithHint(ErrCodeEligibility,
		"неявка ещё не подтверждена: прошло меньше часа с начала или работа уже начата",
		"откройте спор через /dispute")
	ErrPastStartTime = WithHint(ErrCodeEligibility,
		"время начала работ уже прошло, обычная отмена недоступна",
		"используйте заявку о неявке или откройте спор")
	ErrPaymentNotConfirmed = WithHint(ErrCodeEligibility,
		"провайдер не подтвердил оплату заказа",
		"завершите оплату и повторите подтверждение")
)
