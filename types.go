package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Mailer delivers an email. Delivery may be synchronous or queued.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// PasswordHasher derives and verifies salted password hashes
type PasswordHasher interface {
	NewSalt() (string, error)
	Hash(password, salt string) (string, error)
	// Verify must run in constant time with respect to the stored hash
	Verify(password, salt, hash string) bool
}

type defLogger struct {
	logger *slog.Logger
}

// NewLogger returns a Logger writing through handler. A nil handler
// writes text records to stderr.
func NewLogger(handler slog.Handler) Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	return defLogger{logger: slog.New(handler).With("module", "accounts")}
}

func (d defLogger) Debug(format string, args ...any) {
	d.logger.Debug(fmt.Sprintf(format, args...))
}

func (d defLogger) Info(format string, args ...any) {
	d.logger.Info(fmt.Sprintf(format, args...))
}

func (d defLogger) Warn(format string, args ...any) {
	d.logger.Warn(fmt.Sprintf(format, args...))
}

func (d defLogger) Error(format string, args ...any) {
	d.logger.Error(fmt.Sprintf(format, args...))
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
