// Package logger provides the process-wide structured logger built on
// log/slog.
//
// WithCtx returns the per-request logger installed by middleware.Logger, so
// every line written while serving a request carries its request_id:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order created", "order_id", order.ID.Hex(), "amount", order.Amount)
package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/shashiranjanraj/storefront/config"
)

// L is the base logger.
var L *slog.Logger

var console slog.Handler

func init() {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}

	if config.IsProduction() {
		opts.Level = slog.LevelInfo
		console = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		console = slog.NewTextHandler(os.Stdout, opts)
	}

	L = slog.New(console)
	slog.SetDefault(L)
}

// Attach fans every subsequent record out to extra handlers in addition to
// the console. Call it during boot, before serving.
func Attach(extra ...slog.Handler) {
	L = slog.New(NewMultiHandler(append([]slog.Handler{console}, extra...)...))
	slog.SetDefault(L)
}

type ctxKey struct{}

// WithCtx returns the logger stored in ctx, or L.
func WithCtx(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores log in ctx. Used by middleware.Logger.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
