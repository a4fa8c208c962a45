package seqs

import (
	"context"
	"log/slog"

	"github.com/tcpfsm/seqs/internal"
)

type logger struct {
	log *slog.Logger
}

// SetLogger sets the logger to be used by the connection.
func (l *logger) SetLogger(log *slog.Logger) {
	l.log = log
}

func (l *logger) logenabled(lvl slog.Level) bool {
	return internal.HeapAllocDebugging || (l.log != nil && l.log.Handler().Enabled(context.Background(), lvl))
}

func (l *logger) logattrs(lvl slog.Level, msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, lvl, msg, attrs...)
}

func (l *logger) debug(msg string, attrs ...slog.Attr) {
	l.logattrs(slog.LevelDebug, msg, attrs...)
}

func (l *logger) trace(msg string, attrs ...slog.Attr) {
	l.logattrs(internal.LevelTrace, msg, attrs...)
}

func (l *logger) logerr(msg string, attrs ...slog.Attr) {
	l.logattrs(slog.LevelError, msg, attrs...)
}

func (l *logger) traceSeg(msg string, seg Segment) {
	if !l.logenabled(internal.LevelTrace) {
		return
	}
	l.trace(msg,
		slog.Uint64("seg.seq", uint64(seg.SEQ)),
		slog.Uint64("seg.ack", uint64(seg.ACK)),
		slog.Uint64("seg.wnd", uint64(seg.WND)),
		slog.String("seg.flags", seg.Flags.String()),
		slog.Uint64("seg.data", uint64(seg.DATALEN())),
	)
}
