package slog

import "log/slog"

// LevelTrace is a custom level below slog.LevelDebug for very verbose
// per-chunk logging. slog has no built-in trace level; -8 keeps the same
// spacing the standard levels use.
const LevelTrace = slog.Level(-8)

// LevelNames maps custom levels to their display names so handlers render
// "TRACE" instead of "DEBUG-4".
var LevelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
}

// ReplaceAttr rewrites the level attribute for custom levels. Pass it to a
// handler's ReplaceAttr option to get readable trace output.
func ReplaceAttr(groups []string, attr slog.Attr) slog.Attr {
	if attr.Key == slog.LevelKey {
		level := attr.Value.Any().(slog.Level)
		if name, ok := LevelNames[level]; ok {
			attr.Value = slog.StringValue(name)
		}
	}
	return attr
}
