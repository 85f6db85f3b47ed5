package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// RunDetached executes handler with a context that survives cancellation of
// ctx and waits for it to return or for timeout to pass.
//
// Behavior:
//   - The logger stored in ctx is carried over to the new context
//   - A panic in handler is recovered, logged with its stack and returned as an error
//   - A zero timeout means no deadline
func RunDetached(ctx context.Context, timeout time.Duration, handler func(ctx context.Context) error) error {
	newCtx := newBackgroundContext(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		newCtx, cancel = context.WithTimeout(newCtx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ctxlog.From(newCtx).Error("panic in detached handler",
					"recover", r,
					"stack", string(debug.Stack()))
				done <- goerr.New("detached handler panicked", goerr.V("recover", r))
			}
		}()
		done <- handler(newCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-newCtx.Done():
		return goerr.Wrap(newCtx.Err(), "detached handler did not finish in time", goerr.V("timeout", timeout))
	}
}

// newBackgroundContext creates a new background context preserving the logger
func newBackgroundContext(ctx context.Context) context.Context {
	return ctxlog.With(context.Background(), ctxlog.From(ctx))
}
