package log

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

/*
Structured logging on top of slog. Log calls take a context, and key/value
tags attached to the context with AddTags are appended to every record logged
under it. The service layer tags contexts with batch identity via WithBatch so
that all records for one batch generation can be correlated.
*/

////////////////////////////////////////////////////////////////////////////////

type contextKey int

const (
	logTagKey contextKey = iota
)

// AddTags returns a context carrying the supplied key/value tags in addition
// to any already present. The combined tags live in a slice of their own, so
// contexts derived from a common parent never share a backing array.
func AddTags(ctx context.Context, kvs ...any) context.Context {
	if len(kvs)%2 != 0 {
		panic("log: AddTags requires an even number of arguments")
	}
	value := ctx.Value(logTagKey)
	tags := []any{}
	if value != nil {
		tagsValue, ok := value.([]any)
		if !ok {
			panic("log: invalid log tags value")
		}
		tags = append(tags, tagsValue...)
	}
	return context.WithValue(
		ctx,
		logTagKey,
		append(tags, kvs...),
	)
}

// WithBatch tags a context with a batch ID and generation UID.
func WithBatch(ctx context.Context, id string, uid string) context.Context {
	return AddTags(ctx, "batch", id, "generation", uid)
}

func fromContext(ctx context.Context) []any {
	tags, _ := ctx.Value(logTagKey).([]any)
	return tags
}

func levelw(ctx context.Context, level slog.Level, msg string, keyvals ...any) {
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	for i := 0; i < len(keyvals); i += 2 {
		r.Add(keyvals[i].(string), keyvals[i+1])
	}
	tags := fromContext(ctx)
	for i := 0; i < len(tags); i += 2 {
		r.Add(tags[i].(string), tags[i+1])
	}
	handler := slog.Default().Handler()
	if handler.Enabled(ctx, level) {
		if err := handler.Handle(ctx, r); err != nil {
			slog.ErrorContext(ctx, "error handling log record", "error", err)
		}
	}
}

// Infow logs a message at info level with key/value pairs.
func Infow(ctx context.Context, msg string, keyvals ...any) {
	levelw(ctx, slog.LevelInfo, msg, keyvals...)
}

// Errorw logs a message at error level with key/value pairs.
func Errorw(ctx context.Context, msg string, keyvals ...any) {
	levelw(ctx, slog.LevelError, msg, keyvals...)
}

// Debugw logs a message at debug level with key/value pairs.
func Debugw(ctx context.Context, msg string, keyvals ...any) {
	levelw(ctx, slog.LevelDebug, msg, keyvals...)
}

// Warnw logs a message at warn level with key/value pairs.
func Warnw(ctx context.Context, msg string, keyvals ...any) {
	levelw(ctx, slog.LevelWarn, msg, keyvals...)
}
