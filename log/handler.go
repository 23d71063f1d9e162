// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"io"
	"log/slog"

	ethlog "github.com/ethereum/go-ethereum/log"
)

// NewHandler builds the handler installed by the binaries: terminal format
// unless asJSON, filtered at level. The level is read on every record, so a
// *slog.LevelVar changes it at runtime.
func NewHandler(w io.Writer, level slog.Leveler, asJSON, useColor bool) slog.Handler {
	var next slog.Handler
	if asJSON {
		next = ethlog.JSONHandlerWithLevel(w, LevelTrace)
	} else {
		next = ethlog.NewTerminalHandlerWithLevel(w, LevelTrace, useColor)
	}
	return &levelHandler{level: level, next: next}
}

// levelHandler filters records before a handler that accepts every level.
type levelHandler struct {
	level slog.Leveler
	next  slog.Handler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.next.Enabled(ctx, level)
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.next.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, next: h.next.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, next: h.next.WithGroup(name)}
}
