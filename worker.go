package gocuda

import "context"

// WorkerID identifies one logical concurrent caller for resource-ownership
// purposes. It replaces ambient thread identity: goroutines migrate between
// OS threads, so the unit that owns streams and handles must be an explicit
// identifier the caller threads through its call path.
//
// Two callers using the same WorkerID share streams and handles and must
// serialize their use externally; distinct WorkerIDs never share either.
type WorkerID string

type workerContextKey struct{}

// WithWorker returns a context carrying the worker identity, for callers that
// pass identity through context.Context rather than as an explicit argument.
func WithWorker(ctx context.Context, worker WorkerID) context.Context {
	return context.WithValue(ctx, workerContextKey{}, worker)
}

// WorkerFromContext extracts the worker identity set with WithWorker.
func WorkerFromContext(ctx context.Context) (WorkerID, bool) {
	worker, ok := ctx.Value(workerContextKey{}).(WorkerID)
	return worker, ok
}
