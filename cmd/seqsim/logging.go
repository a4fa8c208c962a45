package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/op/go-logging"
)

const levelTrace = slog.LevelDebug - 2

func configureLogger(w io.Writer, verbose bool) (*logging.Logger, logging.LeveledBackend) {
	log := logging.MustGetLogger("seqsim")
	var format = logging.MustStringFormatter(
		`%{time:15:04:05.000000} %{level:.4s} ▶ %{message}`,
	)
	backend := logging.NewLogBackend(w, "[SEQSIM] ", 0)
	backendformatter := logging.NewBackendFormatter(backend, format)
	backendLeveled := logging.AddModuleLevel(backendformatter)
	if verbose {
		backendLeveled.SetLevel(logging.DEBUG, "")
	} else {
		backendLeveled.SetLevel(logging.WARNING, "")
	}
	log.SetBackend(backendLeveled)
	return log, backendLeveled
}

// slogHandler forwards slog records emitted by connections to a go-logging logger.
// Per segment records are forwarded only when trace is set.
type slogHandler struct {
	log     *logging.Logger
	backend logging.LeveledBackend
	level   slog.Level
	attrs   string
	prefix  string
}

func newSlogHandler(log *logging.Logger, backend logging.LeveledBackend, trace bool) *slogHandler {
	level := slog.LevelDebug
	if trace {
		level = levelTrace
	}
	return &slogHandler{log: log, backend: backend, level: level}
}

func (h *slogHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level && h.backend.IsEnabledFor(loggingLevel(lvl), h.log.Module)
}

func (h *slogHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})
	msg := b.String()
	switch loggingLevel(r.Level) {
	case logging.ERROR:
		h.log.Error(msg)
	case logging.WARNING:
		h.log.Warning(msg)
	case logging.INFO:
		h.log.Info(msg)
	default:
		h.log.Debug(msg)
	}
	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}
	h2 := *h
	h2.attrs = b.String()
	return &h2
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			appendAttr(b, prefix+a.Key+".", ga)
		}
		return
	}
	fmt.Fprintf(b, " %s%s=%v", prefix, a.Key, a.Value.Any())
}

func loggingLevel(lvl slog.Level) logging.Level {
	switch {
	case lvl >= slog.LevelError:
		return logging.ERROR
	case lvl >= slog.LevelWarn:
		return logging.WARNING
	case lvl >= slog.LevelInfo:
		return logging.INFO
	}
	return logging.DEBUG
}
