package notify

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/yaroslav/nassession/internal/logging"
	"github.com/yaroslav/nassession/sdk"
)

// ErrorReporter surfaces errors the sign-in flow does not handle itself,
// like a generic error dialog would.
type ErrorReporter interface {
	Report(ctx context.Context, err error)
}

// LogReporter logs reported errors and prints them to an io.Writer.
type LogReporter struct {
	out    io.Writer
	logger *zap.Logger
}

// NewLogReporter creates a LogReporter. out may be nil.
func NewLogReporter(out io.Writer, logger *zap.Logger) *LogReporter {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{out: out, logger: logger}
}

// Report implements ErrorReporter. A logger attached to ctx takes
// precedence over the reporter's own.
func (r *LogReporter) Report(ctx context.Context, err error) {
	if err == nil {
		return
	}

	logger := r.logger
	if l, ok := logging.Lookup(ctx); ok {
		logger = l
	}

	var rpcErr *sdk.RPCError
	if errors.As(err, &rpcErr) {
		logger.Error("rpc call failed",
			zap.String(logging.FieldMethod, rpcErr.Method),
			zap.Int("code", rpcErr.Code),
			zap.Error(err),
		)
		fmt.Fprintf(r.out, "Error: %s (%s, code %d)\n", rpcErr.Message, rpcErr.Method, rpcErr.Code)
		return
	}

	logger.Error("operation failed", zap.Error(err))
	fmt.Fprintf(r.out, "Error: %v\n", err)
}
