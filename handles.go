package gocuda

import (
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// handleRegistry memoizes one cuBLAS handle per worker. Handles carry no
// device or context parameter: the cuBLAS runtime tracks its own
// current-context state, so the key is the worker alone.
type handleRegistry struct {
	drv Driver

	mu       sync.RWMutex
	byWorker map[WorkerID]*Handle
}

func newHandleRegistry(drv Driver) *handleRegistry {
	return &handleRegistry{
		drv:      drv,
		byWorker: make(map[WorkerID]*Handle),
	}
}

// handleFor returns the worker's cuBLAS handle, registering one with the
// library runtime on first request.
func (r *handleRegistry) handleFor(worker WorkerID) (*Handle, error) {
	r.mu.RLock()
	handle, found := r.byWorker[worker]
	r.mu.RUnlock()
	if found {
		return handle, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if handle, found = r.byWorker[worker]; found {
		return handle, nil
	}

	raw, err := r.drv.HandleCreate()
	if err != nil {
		return nil, errors.WithMessagef(ErrHandleCreation, "worker %q: %v", worker, err)
	}
	handle = &Handle{worker: worker, raw: raw}
	r.byWorker[worker] = handle
	klog.V(1).Infof("created cuBLAS handle for worker %q", worker)
	return handle, nil
}

// destroyAll releases every recorded handle with the library runtime.
// Best-effort, runs once from Manager.Close.
func (r *handleRegistry) destroyAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for worker, handle := range r.byWorker {
		if err := r.drv.HandleDestroy(handle.raw); err != nil {
			klog.Warningf("Failed to destroy cuBLAS handle of worker %q: %v", worker, err)
		}
	}
	r.byWorker = make(map[WorkerID]*Handle)
}
