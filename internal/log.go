package internal

import "log/slog"

// LevelTrace is used for per-segment logging, below [slog.LevelDebug].
const LevelTrace = slog.LevelDebug - 2
