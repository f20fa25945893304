package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps the zap sugared logger with domain-aware helpers
type Logger struct {
	*zap.SugaredLogger
}

func New(env string) (*Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}

	return &Logger{base.Sugar()}, nil
}

func NewNop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

// LogSettlement records the outcome of a transaction settlement step
func (l *Logger) LogSettlement(transactionID string, operation string, amount float64, err error) {
	fields := []interface{}{
		"transaction_id", transactionID,
		"operation", operation,
		"amount", amount,
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		l.Errorw("Settlement operation failed", fields...)
	} else {
		l.Infow("Settlement operation completed", fields...)
	}
}

// LogAccrualRun records one daily accrual batch
func (l *Logger) LogAccrualRun(processed, credited, skipped, failed int, total float64, duration time.Duration) {
	l.Infow("Interest accrual run completed",
		"processed", processed,
		"credited", credited,
		"skipped", skipped,
		"failed", failed,
		"total_interest", total,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogPortfolioOperation records a balance mutation on a user portfolio
func (l *Logger) LogPortfolioOperation(userID string, operation string, amount float64, err error) {
	fields := []interface{}{
		"user_id", userID,
		"operation", operation,
		"amount", amount,
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		l.Errorw("Portfolio operation failed", fields...)
	} else {
		l.Infow("Portfolio operation completed", fields...)
	}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}
