// Package async provides safe goroutine helpers for background tasks.
//
// SafeGo adds panic recovery, a timeout and error logging to a goroutine:
//
//	async.SafeGo(async.Detach(r.Context()), 10*time.Second, "session bootstrap", func(ctx context.Context) error {
//		return svc.Start(ctx)
//	})
//
// Detach is used when the task must survive the end of the HTTP request
// that triggered it.
package async
