//go:build linux

package gocuda

import (
	"fmt"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threadRecordingDriver records the OS thread id of every make-current and
// stream-create call. Context currency is per OS thread, so the two calls of
// a stream miss path must land on the same thread.
type threadRecordingDriver struct {
	*fakeDriver

	tidMu         sync.Mutex
	setCurrentTID []int
	createTID     []int
}

func (d *threadRecordingDriver) CtxSetCurrent(ctx uintptr) error {
	d.tidMu.Lock()
	d.setCurrentTID = append(d.setCurrentTID, syscall.Gettid())
	d.tidMu.Unlock()
	return d.fakeDriver.CtxSetCurrent(ctx)
}

func (d *threadRecordingDriver) ComputeStreamCreate() (uintptr, error) {
	d.tidMu.Lock()
	d.createTID = append(d.createTID, syscall.Gettid())
	d.tidMu.Unlock()
	return d.fakeDriver.ComputeStreamCreate()
}

func TestStreamCreationThreadAffinity(t *testing.T) {
	const numWorkers = 32
	drv := &threadRecordingDriver{fakeDriver: newFakeDriver(1)}
	mgr := New(WithDriver(drv))
	defer mgr.Close()

	// Hammer the miss path from many goroutines so the scheduler has every
	// chance to migrate an unpinned one between the two driver calls.
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		worker := WorkerID(fmt.Sprintf("w%d", i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.ComputeStream(worker)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// The registry lock serializes misses, so call i of each slice belongs
	// to the same miss.
	drv.tidMu.Lock()
	defer drv.tidMu.Unlock()
	require.Len(t, drv.setCurrentTID, numWorkers)
	require.Len(t, drv.createTID, numWorkers)
	for i := range drv.createTID {
		require.Equal(t, drv.setCurrentTID[i], drv.createTID[i],
			"make-current and stream-create of miss %d ran on different OS threads", i)
	}
}
