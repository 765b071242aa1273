// Package async runs fire-and-forget side effects off the request path.
//
// Handlers use SafeGo for work whose outcome must not affect the
// response, such as recording a view against a media object. The task
// runs on a context detached from the request cancellation so it
// survives the response being written, bounded by its own timeout, with
// panic recovery and error logging.
package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/mediacms-io/mediacms-go/pkg/observability"
)

// SafeGo executes fn in a goroutine with panic recovery, a timeout and
// error logging. The context passed to fn carries the parent's values
// but not its cancellation.
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parentCtx), timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("panic in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Warn("background task failed")
		}
	}()
}
