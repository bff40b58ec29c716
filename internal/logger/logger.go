package logger

import (
	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// JSON для production, text включается отдельно через SetTextFormatter
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	if Log != nil {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// WithFields возвращает запись с полями; до Init пишет в стандартный логгер logrus.
func WithFields(fields logrus.Fields) *logrus.Entry {
	if Log == nil {
		return logrus.StandardLogger().WithFields(fields)
	}
	return Log.WithFields(fields)
}

// recoveryLogger пишет panic из фоновых горутин в logrus.
type recoveryLogger struct{}

func (recoveryLogger) Errorf(format string, args ...interface{}) {
	WithFields(logrus.Fields{"component": "goroutine"}).Errorf(format, args...)
}

// Recovery возвращает адаптер логгера для обработчика panic.
func Recovery() interface {
	Errorf(format string, args ...interface{})
} {
	return recoveryLogger{}
}
