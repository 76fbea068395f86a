// Package notify reports the progress of long-running operations.
//
// Every tracked operation emits exactly one Start followed by exactly one of
// Succeed or Fail. Notifiers must be safe for concurrent use since operations
// may run in parallel goroutines.
package notify

import (
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/imageviewer/internal/infrastructure/logging"
)

// Notifier receives operation lifecycle events
type Notifier interface {
	Start(op string)
	Succeed(op string, took time.Duration)
	Fail(op string, took time.Duration, err error)
}

// Track runs fn between Start and Succeed/Fail and returns its error
func Track(n Notifier, op string, fn func() error) error {
	if n == nil {
		n = Nop{}
	}

	n.Start(op)
	start := time.Now()
	err := fn()
	took := time.Since(start)

	if err != nil {
		n.Fail(op, took, err)
		return err
	}
	n.Succeed(op, took)
	return nil
}

// Nop discards every event
type Nop struct{}

func (Nop) Start(string)                      {}
func (Nop) Succeed(string, time.Duration)     {}
func (Nop) Fail(string, time.Duration, error) {}

// Log writes events as structured log lines
type Log struct {
	logger *logging.Logger
}

// NewLog creates a notifier backed by logger
func NewLog(logger *logging.Logger) *Log {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Log{logger: logger.Named("progress")}
}

func (l *Log) Start(op string) {
	l.logger.Info("pending", zap.String("op", op))
}

func (l *Log) Succeed(op string, took time.Duration) {
	l.logger.Info("success", zap.String("op", op), zap.Duration("took", took))
}

func (l *Log) Fail(op string, took time.Duration, err error) {
	l.logger.Error("failure", zap.String("op", op), zap.Duration("took", took), zap.Error(err))
}

// Multi fans events out to several notifiers in order
type Multi []Notifier

// Combine drops nil notifiers and flattens nested Multis
func Combine(ns ...Notifier) Notifier {
	var out Multi
	for _, n := range ns {
		switch v := n.(type) {
		case nil:
		case Multi:
			out = append(out, v...)
		default:
			out = append(out, v)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m Multi) Start(op string) {
	for _, n := range m {
		n.Start(op)
	}
}

func (m Multi) Succeed(op string, took time.Duration) {
	for _, n := range m {
		n.Succeed(op, took)
	}
}

func (m Multi) Fail(op string, took time.Duration, err error) {
	for _, n := range m {
		n.Fail(op, took, err)
	}
}
