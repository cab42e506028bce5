package gocuda

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// streamKey is the composite identity of a stream: the context it is bound to
// and the worker that owns it. Workers sharing a device share the context but
// never the stream.
type streamKey struct {
	ctx    *Context
	worker WorkerID
}

// streamRegistry memoizes one stream per (context, worker) pair. Two
// independent instances exist, one per StreamKind, because the compute and
// library runtimes must not share stream identities.
//
// Creation is serialized by the registry lock: it is rare relative to stream
// use, and making the context current plus creating the stream must not
// interleave with another worker's first use.
type streamRegistry struct {
	kind    StreamKind
	drv     Driver
	create  func() (uintptr, error)
	destroy func(uintptr) error

	mu    sync.RWMutex
	byKey map[streamKey]*Stream
}

func newStreamRegistry(drv Driver, kind StreamKind) *streamRegistry {
	r := &streamRegistry{
		kind:  kind,
		drv:   drv,
		byKey: make(map[streamKey]*Stream),
	}
	if kind == ComputeKind {
		r.create = drv.ComputeStreamCreate
		r.destroy = drv.ComputeStreamDestroy
	} else {
		r.create = drv.LibraryStreamCreate
		r.destroy = drv.LibraryStreamDestroy
	}
	return r
}

// streamFor returns the worker's stream on the given context, creating it
// exactly once on first request. On a miss the target context is made current
// before the stream is created; any nonzero status from either step is fatal
// and surfaced as ErrStreamCreation.
func (r *streamRegistry) streamFor(ctx *Context, worker WorkerID) (*Stream, error) {
	key := streamKey{ctx: ctx, worker: worker}

	r.mu.RLock()
	stream, found := r.byKey[key]
	r.mu.RUnlock()
	if found {
		return stream, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if stream, found = r.byKey[key]; found {
		return stream, nil
	}

	// The driver binds the current context to the calling OS thread, so the
	// goroutine must not migrate between making the context current and
	// creating the stream on it.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := r.drv.CtxSetCurrent(ctx.raw); err != nil {
		return nil, errors.WithMessagef(ErrStreamCreation,
			"failed to make the context of device %d current for worker %q: %v", ctx.device, worker, err)
	}
	raw, err := r.create()
	if err != nil {
		return nil, errors.WithMessagef(ErrStreamCreation,
			"%s stream for worker %q on device %d: %v", r.kind, worker, ctx.device, err)
	}
	stream = &Stream{kind: r.kind, worker: worker, ctx: ctx, raw: raw}
	r.byKey[key] = stream
	klog.V(1).Infof("created %s stream for worker %q on device %d", r.kind, worker, ctx.device)
	return stream, nil
}

// destroyAll tears down every recorded stream. Best-effort, runs once from
// Manager.Close.
func (r *streamRegistry) destroyAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, stream := range r.byKey {
		if err := r.destroy(stream.raw); err != nil {
			klog.Warningf("Failed to destroy %s stream of worker %q on device %d: %v",
				r.kind, key.worker, stream.ctx.device, err)
		}
	}
	r.byKey = make(map[streamKey]*Stream)
}
