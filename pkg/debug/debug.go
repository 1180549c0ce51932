// Package debug configures the process logger and adds category-gated
// debug output on top of log/slog.
//
// Categories choose what is debugged (COURSESEARCH_DEBUG=sources,storage
// or "all"); the level chooses how much (COURSESEARCH_LOG_LEVEL, with TRACE
// below DEBUG). At TRACE the storage category also prints generated SQL.
//
//	debug.Log("sources", "query", "source", name, "rows", n)
//
// Categories in use: search, sources, gate, storage, auth, http, mcp.
package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

// LevelTrace is more verbose than slog.LevelDebug.
const LevelTrace = slog.LevelDebug - 4

// Environment variables that override Settings.
const (
	EnvCategories = "COURSESEARCH_DEBUG"
	EnvLevel      = "COURSESEARCH_LOG_LEVEL"
)

// Settings configures Init.
type Settings struct {
	Categories string // comma separated, "all" enables every category
	Level      string // TRACE, DEBUG, INFO, WARN, ERROR
	Format     string // "text" (default) or "json"
	Output     io.Writer
}

var (
	enabled atomic.Pointer[map[string]bool]
	rawOut  atomic.Pointer[io.Writer]
)

func init() {
	setCategories(os.Getenv(EnvCategories))
}

// Init installs the default slog logger and the enabled categories. The
// environment variables win over s.
func Init(s Settings) {
	if v := os.Getenv(EnvCategories); v != "" {
		s.Categories = v
	}
	if v := os.Getenv(EnvLevel); v != "" {
		s.Level = v
	}
	if s.Output == nil {
		s.Output = os.Stderr
	}
	setCategories(s.Categories)
	rawOut.Store(&s.Output)

	opts := &slog.HandlerOptions{Level: ParseLevel(s.Level), ReplaceAttr: levelName}
	var h slog.Handler
	if strings.EqualFold(s.Format, "json") {
		h = slog.NewJSONHandler(s.Output, opts)
	} else {
		h = slog.NewTextHandler(s.Output, opts)
	}
	slog.SetDefault(slog.New(h))
}

// levelName prints LevelTrace as TRACE rather than DEBUG-4.
func levelName(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if l, ok := a.Value.Any().(slog.Level); ok && l <= LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

func setCategories(s string) {
	m := parseCategories(s)
	enabled.Store(&m)
}

// Enabled reports whether category is being debugged.
func Enabled(category string) bool {
	m := *enabled.Load()
	return m["all"] || m[category]
}

// Log writes a debug record tagged with category, if it is enabled.
func Log(category, msg string, args ...any) {
	if Enabled(category) {
		slog.Debug(msg, append([]any{"debug", category}, args...)...)
	}
}

// Trace is Log at LevelTrace.
func Trace(category, msg string, args ...any) {
	if Enabled(category) {
		slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
	}
}

// Raw prints text unformatted, for SQL that should paste into psql as is.
// It only prints at TRACE with category enabled.
func Raw(category, text string) {
	if !Enabled(category) || !slog.Default().Enabled(context.Background(), LevelTrace) {
		return
	}
	out := io.Writer(os.Stderr)
	if w := rawOut.Load(); w != nil {
		out = *w
	}
	fmt.Fprintln(out, text)
}

// ParseLevel maps a level name to a slog.Level. Unknown names are INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Truncate shortens s to maxLen runes plus "...". Search terms are user
// input, so it never splits a rune.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for cat := range strings.SplitSeq(s, ",") {
		if cat = strings.ToLower(strings.TrimSpace(cat)); cat != "" {
			m[cat] = true
		}
	}
	return m
}
