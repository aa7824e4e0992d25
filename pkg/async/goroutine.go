package async

import (
	"context"
	"time"

	"github.com/platinummonkey/venuedesk/pkg/observability"
)

// SafeGo runs fn in a goroutine bounded by timeout, recovering panics and
// logging errors through the logger on parentCtx. The returned channel is
// closed when fn has returned or panicked.
//
// Use this instead of bare `go func()` so a failing background task cannot
// take the process down.
//
//	done := async.SafeGo(ctx, 10*time.Second, "session bootstrap", func(ctx context.Context) error {
//	    return svc.Start(ctx)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	logger := observability.FromContext(parentCtx).WithField("task", taskName)

	go func() {
		defer close(done)
		defer observability.RecoverPanic(logger, taskName)

		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			logger.WithError(err).Warn("background task failed")
		}
	}()

	return done
}

// Detach returns a context that keeps ctx's values but not its deadline or
// cancellation, for work that must outlive the request that started it
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
