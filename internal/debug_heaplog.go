//go:build debugheaplog

package internal

import (
	"log/slog"
	"runtime"
	"time"
	"unsafe"
)

// HeapAllocDebugging is set when built with the debugheaplog tag. Connection
// logs then bypass the configured logger and are printed with print/println,
// which do not allocate, alongside the heap growth since the previous record.
const HeapAllocDebugging = true

const timefmt = "15:04:05.000000"

var (
	memstats   runtime.MemStats
	lastAllocs uint64
	timebuf    [len(timefmt) * 2]byte
)

func LogAttrs(_ *slog.Logger, level slog.Level, msg string, attrs ...slog.Attr) {
	runtime.ReadMemStats(&memstats)
	grown := memstats.TotalAlloc - lastAllocs
	n := len(time.Now().AppendFormat(timebuf[:0], timefmt))
	print(unsafe.String(&timebuf[0], n), " ", levelName(level), " ", msg)
	for _, a := range attrs {
		switch a.Value.Kind() {
		case slog.KindString:
			print(" ", a.Key, "=", a.Value.String())
		case slog.KindInt64:
			print(" ", a.Key, "=", a.Value.Int64())
		case slog.KindUint64:
			print(" ", a.Key, "=", a.Value.Uint64())
		case slog.KindBool:
			print(" ", a.Key, "=", a.Value.Bool())
		}
	}
	if grown != 0 {
		print(" [ALLOC +", grown, " total=", memstats.TotalAlloc, "]")
	}
	println()
	// Exclude what printing allocated from the next record.
	runtime.ReadMemStats(&memstats)
	lastAllocs = memstats.TotalAlloc
}

func levelName(level slog.Level) string {
	switch {
	case level <= LevelTrace:
		return "TRACE"
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	}
	return "ERROR"
}
