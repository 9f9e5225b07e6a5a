// Package diag carries the planner's soft-skip warnings (§7). The
// teacher carries no logging dependency at all, and the one pack repo
// naming a third-party logger (intuitivelabs/slog) never shows its own
// declaration in the retrieved sources, so its API can't be grounded —
// see DESIGN.md. This package wraps the standard library's log.Logger
// instead, behind a package-level var callers may redirect.
package diag

import (
	"log"
	"os"
)

// Warnings is where soft, per-value skip warnings (§7) go. Tests and
// embedders may replace it, e.g. with log.New(io.Discard, "", 0).
var Warnings = log.New(os.Stderr, "tensorplan: ", 0)

// Warnf logs a soft-skip warning. It never returns an error — the
// value in question is simply left for the default allocator.
func Warnf(format string, args ...any) {
	Warnings.Printf(format, args...)
}
