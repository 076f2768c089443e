// Package log is ledgerline's structured logger. It mirrors the call
// shape go-ethereum's own log package exposes (Info/Warn/Error/Debug/Crit
// taking a message plus alternating key/value pairs) on top of the
// standard library's slog: a plain text handler (written through a
// colorable stdout) when stdout is a tty, and a JSON handler otherwise.
package log

import (
	"context"
	"log/slog"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

var level = &slog.LevelVar{} // defaults to slog.LevelInfo

var root = newRoot()

func newRoot() *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(colorable.NewColorableStdout(), opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// SetLevel adjusts the minimum level the root logger emits.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// With returns a logger with the given key/value pairs attached to every
// subsequent call, used by components that want a stable prefix (peer
// address, node address) without repeating it at every call site.
func With(args ...any) *slog.Logger {
	return root.With(args...)
}

func Debug(msg string, args ...any) { root.Debug(msg, args...) }
func Info(msg string, args ...any)  { root.Info(msg, args...) }
func Warn(msg string, args ...any)  { root.Warn(msg, args...) }
func Error(msg string, args ...any) { root.Error(msg, args...) }

// Crit logs at a level above error (slog.LevelError+4) and terminates the
// process. Used for conditions the node cannot start or run without, such
// as failure to bind the listener, open the ledger or load the config.
func Crit(msg string, args ...any) {
	root.Log(context.Background(), slog.LevelError+4, msg, args...)
	os.Exit(1)
}
