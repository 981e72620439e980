package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Operation is a logical unit of client work such as a login or a profile
// refresh. Nested operations record their parent.
type Operation struct {
	name   string
	logger *slog.Logger
	start  time.Time
}

// StartOperation derives a child context whose logger carries the operation
// metadata, and returns a handle that must be ended.
func StartOperation(ctx context.Context, name string) (context.Context, *Operation) {
	if ctx == nil {
		ctx = context.Background()
	}

	id := uuid.NewString()
	logger := FromContext(ctx).With(
		slog.String("operation", name),
		slog.String("operation_id", id),
	)
	if parent := OperationIDFromContext(ctx); parent != "" {
		logger = logger.With(slog.String("parent_operation_id", parent))
	}

	ctx = WithLogger(ctx, logger)
	ctx = context.WithValue(ctx, operationIDKey, id)

	return ctx, &Operation{name: name, logger: logger, start: time.Now()}
}

// End emits a completion entry. A non-nil err is logged at warn level.
func (o *Operation) End(err error) {
	if o == nil {
		return
	}
	elapsed := slog.Duration("duration", time.Since(o.start))
	if err != nil {
		o.logger.Warn("operation failed", elapsed, slog.String("error", err.Error()))
		return
	}
	o.logger.Debug("operation completed", elapsed)
}
