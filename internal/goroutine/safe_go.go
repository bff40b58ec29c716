package goroutine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler обрабатывает panic в горутинах
type RecoveryHandler struct {
	mu     sync.RWMutex
	logger Logger
}

// NewRecoveryHandler создает новый обработчик
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// SetLogger заменяет логгер обработчика.
func (rh *RecoveryHandler) SetLogger(logger Logger) {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	rh.logger = logger
}

func (rh *RecoveryHandler) handlePanic(kind string) {
	if r := recover(); r != nil {
		rh.mu.RLock()
		l := rh.logger
		rh.mu.RUnlock()
		l.Errorf("Panic in %s: %v\nStack trace:\n%s", kind, r, debug.Stack())
	}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go func() {
		defer rh.handlePanic("goroutine")
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом, отвязанным от отмены родителя.
// Значения контекста (request id и т.п.) сохраняются.
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	detached := context.WithoutCancel(ctx)
	go func() {
		defer rh.handlePanic("goroutine (with context)")
		fn(detached)
	}()
}

// SimpleLogger пишет в stdout, пока не подключён структурированный логгер.
type SimpleLogger struct{}

func (l *SimpleLogger) Errorf(format string, args ...interface{}) {
	fmt.Printf("[ERROR] "+format+"\n", args...)
}

// DefaultRecoveryHandler - глобальный обработчик
var DefaultRecoveryHandler = NewRecoveryHandler(&SimpleLogger{})

// SafeGo - упрощенная функция для запуска безопасной горутины
func SafeGo(fn func()) {
	DefaultRecoveryHandler.SafeGo(fn)
}

// SafeGoWithContext - упрощенная функция для запуска безопасной горутины с контекстом
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	DefaultRecoveryHandler.SafeGoWithContext(ctx, fn)
}
