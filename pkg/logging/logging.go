package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
)

const (
	reset     = "\033[0m"
	red       = "\033[31m"
	green     = "\033[32m"
	yellow    = "\033[33m"
	magenta   = "\033[35m"
	cyan      = "\033[36m"
	white     = "\033[37m"
	boldBlue  = "\033[1;34m"
	boldWhite = "\033[1;37m"
)

const (
	// FormatJSON emits one JSON object per line.
	FormatJSON = "json"
	// FormatText emits colored human-readable lines.
	FormatText = "text"
)

// ProcessingIDKey is the attribute highlighted by the text handler.
const ProcessingIDKey = "processing_id"

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (level slog.Level, err error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		level = slog.LevelDebug
	case "", "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		err = errors.Errorf("unknown log level: %s", name)
	}
	return level, err
}

// New builds a logger writing to w in the given format.
func New(w io.Writer, level, format string) (logger *slog.Logger, err error) {
	var lvl slog.Level
	lvl, err = ParseLevel(level)
	if err != nil {
		return logger, err
	}

	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "", FormatJSON:
		logger = slog.New(slog.NewJSONHandler(w, opts))
	case FormatText:
		logger = slog.New(NewColoredHandler(w, opts))
	default:
		err = errors.Errorf("unknown log format: %s", format)
	}

	return logger, err
}

// Setup builds a logger and installs it as the slog default.
func Setup(w io.Writer, level, format string) (logger *slog.Logger, err error) {
	logger, err = New(w, level, format)
	if err != nil {
		err = errors.Wrap(err, "failed to set up logging")
		return logger, err
	}
	slog.SetDefault(logger)
	return logger, err
}

// Discard returns a logger that drops everything. Used when no logger is injected.
func Discard() (logger *slog.Logger) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return logger
}

// ColoredHandler renders records as single colored lines for terminals.
type ColoredHandler struct {
	opts   slog.HandlerOptions
	out    io.Writer
	attrs  []slog.Attr
	groups []string
}

// NewColoredHandler creates a ColoredHandler.
func NewColoredHandler(w io.Writer, opts *slog.HandlerOptions) (h *ColoredHandler) {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	h = &ColoredHandler{
		opts: *opts,
		out:  w,
	}
	return h
}

// Enabled reports whether the level is at or above the configured minimum.
func (h *ColoredHandler) Enabled(_ context.Context, level slog.Level) (enabled bool) {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	enabled = level >= minLevel
	return enabled
}

// Handle writes one line per record.
func (h *ColoredHandler) Handle(_ context.Context, r slog.Record) (err error) {
	var levelColor string
	switch {
	case r.Level >= slog.LevelError:
		levelColor = red
	case r.Level >= slog.LevelWarn:
		levelColor = yellow
	case r.Level >= slog.LevelInfo:
		levelColor = green
	case r.Level >= slog.LevelDebug:
		levelColor = cyan
	default:
		levelColor = white
	}

	all := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	all = append(all, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		all = append(all, a)
		return true
	})

	var line strings.Builder
	line.WriteString(fmt.Sprintf("%s%s%s ", magenta, r.Time.Format("15:04:05.000"), reset))
	line.WriteString(fmt.Sprintf("%s%-6s%s ", levelColor, strings.ToUpper(r.Level.String()), reset))

	for _, a := range all {
		if a.Key == ProcessingIDKey {
			line.WriteString(fmt.Sprintf("%s[%s]%s ", boldBlue, a.Value.String(), reset))
		}
	}

	line.WriteString(fmt.Sprintf("%s%s%s", boldWhite, r.Message, reset))

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}

	for _, a := range all {
		if a.Key == ProcessingIDKey {
			continue
		}
		val := a.Value.String()
		if a.Value.Kind() == slog.KindString {
			val = fmt.Sprintf("%q", val)
		}
		line.WriteString(fmt.Sprintf(" %s%s%s%s=%s", yellow, prefix, a.Key, reset, val))
	}

	_, err = fmt.Fprintln(h.out, line.String())
	return err
}

// WithAttrs returns a handler that always includes attrs.
func (h *ColoredHandler) WithAttrs(attrs []slog.Attr) (handler slog.Handler) {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	handler = &next
	return handler
}

// WithGroup returns a handler that prefixes subsequent keys with name.
func (h *ColoredHandler) WithGroup(name string) (handler slog.Handler) {
	if name == "" {
		handler = h
		return handler
	}
	next := *h
	next.groups = append(append([]string{}, h.groups...), name)
	handler = &next
	return handler
}
