package observability

import (
	"context"
	"log/slog"
	"os"
)

type contextKey string

const (
	// requestIDKey carries the client-generated ID sent upstream as
	// X-Request-ID, so a log line can be matched to a server trace.
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

var logger *slog.Logger

// InitLogger initializes the process logger. Log lines go to stderr:
// stdout belongs to the interactive prompt and command output.
func InitLogger(level, format string) {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: level == "debug",
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func base() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// FromContext returns the process logger annotated with whatever the
// request pipeline put in ctx. An outbound API call carries its request
// ID; calls made on behalf of a signed-in user carry the user ID too.
func FromContext(ctx context.Context) *slog.Logger {
	log := base()
	if reqID, ok := ctx.Value(requestIDKey).(string); ok && reqID != "" {
		log = log.With(slog.String("request_id", reqID))
	}
	if userID, ok := ctx.Value(userIDKey).(string); ok && userID != "" {
		log = log.With(slog.String("user_id", userID))
	}
	return log
}

// WithRequestID tags ctx with the ID of the outbound API request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithUserID tags ctx with the authenticated user's ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Warn logs on the process logger without request context. For code
// paths that outlive the request that spawned them, like persisting
// session state in the background.
func Warn(msg string, args ...any) {
	base().Warn(msg, args...)
}
