package gocuda

import (
	"math/rand/v2"
	"sync"

	"k8s.io/klog/v2"
)

// assigner spreads workers across devices. Assignments are drawn at random on
// a worker's first request and are fixed for the worker's lifetime. The map
// is read-mostly with one write per worker; two workers landing on the same
// device is an expected outcome of load spreading, not an error.
type assigner struct {
	numDevices int
	pick       func(numDevices int) int

	mu       sync.RWMutex
	byWorker map[WorkerID]int
}

func newAssigner(numDevices int, pick func(int) int) *assigner {
	if pick == nil {
		pick = rand.IntN
	}
	return &assigner{
		numDevices: numDevices,
		pick:       pick,
		byWorker:   make(map[WorkerID]int),
	}
}

// deviceFor returns the device ordinal assigned to the worker, drawing and
// recording one on first request. With a single visible device it always
// returns 0 without consulting or mutating the map, so the common
// single-device case pays no synchronization.
func (a *assigner) deviceFor(worker WorkerID) int {
	if a.numDevices <= 1 {
		return 0
	}

	a.mu.RLock()
	device, found := a.byWorker[worker]
	a.mu.RUnlock()
	if found {
		return device
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// Another worker path may have raced us here with the same WorkerID; the
	// first recorded draw wins so the assignment stays stable.
	if device, found = a.byWorker[worker]; found {
		return device
	}
	device = a.pick(a.numDevices)
	a.byWorker[worker] = device
	klog.V(1).Infof("assigned worker %q to device %d (of %d)", worker, device, a.numDevices)
	return device
}

// snapshot returns a copy of the worker to device assignments.
func (a *assigner) snapshot() map[WorkerID]int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[WorkerID]int, len(a.byWorker))
	for worker, device := range a.byWorker {
		out[worker] = device
	}
	return out
}
