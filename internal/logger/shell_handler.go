package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	LevelVerbose    slog.Level = slog.LevelDebug
	LevelVerboseErr slog.Level = slog.LevelDebug + 2
	LevelInfo       slog.Level = slog.LevelInfo
	LevelInfoErr    slog.Level = slog.LevelInfo + 2
	LevelWarn       slog.Level = slog.LevelWarn
	LevelError      slog.Level = slog.LevelError
)

type colorKeyType struct{}

var colorKey colorKeyType

// WithColor returns a context whose records are printed in color.
func WithColor(ctx context.Context, color Color) context.Context {
	return context.WithValue(ctx, colorKey, color)
}

// ShellLogHandler prints slog records through a Logger: verbose and info
// records go to stdout, their *Err variants and everything above to stderr.
type ShellLogHandler struct {
	level     slog.Leveler
	logger    *Logger
	showAttrs bool
	attrs     []slog.Attr
}

type ShellLogHandlerOptions struct {
	slog.HandlerOptions
	Logger *Logger
	// ShowAttrs appends the record attributes as key=value pairs.
	ShowAttrs bool
}

// NewShellLogHandler returns a handler for opts.Logger. Without an explicit
// level, verbose records are only shown by a verbose logger.
func NewShellLogHandler(opts *ShellLogHandlerOptions) (*ShellLogHandler, error) {
	h := &ShellLogHandler{}
	if opts != nil {
		h.level = opts.Level
		h.logger = opts.Logger
		h.showAttrs = opts.ShowAttrs
	}
	if h.logger == nil {
		return nil, fmt.Errorf("logger: shell log handler needs a Logger")
	}
	if h.level == nil {
		h.level = LevelInfo
		if h.logger.Verbose {
			h.level = LevelVerbose
		}
	}
	return h, nil
}

func (h *ShellLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *ShellLogHandler) Handle(ctx context.Context, r slog.Record) error {
	color, ok := ctx.Value(colorKey).(Color)
	if !ok {
		color = Default
		if r.Level >= LevelWarn {
			color = Yellow
		}
		if r.Level >= LevelError {
			color = Red
		}
	}

	msg := r.Message
	if h.showAttrs {
		var sb strings.Builder
		sb.WriteString(msg)
		write := func(a slog.Attr) bool {
			fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
			return true
		}
		for _, a := range h.attrs {
			write(a)
		}
		r.Attrs(write)
		msg = sb.String()
	}

	switch {
	case r.Level <= LevelVerbose, r.Level > LevelVerboseErr && r.Level <= LevelInfo:
		h.logger.FOutf(h.logger.Stdout, color, "%s\n", msg)
	default:
		h.logger.FOutf(h.logger.Stderr, color, "%s\n", msg)
	}
	return nil
}

func (h *ShellLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(clone.attrs[:len(clone.attrs):len(clone.attrs)], attrs...)
	return &clone
}

func (h *ShellLogHandler) WithGroup(string) slog.Handler {
	return h
}
