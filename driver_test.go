package gocuda

import (
	"sync"

	"github.com/pkg/errors"
)

// fakeDriver implements Driver in memory, with creation/destruction counters
// and injectable failures. Handles are monotonically increasing uintptrs in
// per-kind ranges, so a context can never be confused with a stream in test
// failures.
type fakeDriver struct {
	mu sync.Mutex

	deviceCount    int
	deviceCountErr error
	initErr        error
	deviceGetErr   error
	ctxCreateErr   error
	streamErr      error
	libStreamErr   error
	handleErr      error

	initCalls int
	current   uintptr

	nextContext   uintptr
	nextCompute   uintptr
	nextLibrary   uintptr
	nextHandle    uintptr
	createdCtx    []uintptr
	createdComp   []uintptr
	createdLib    []uintptr
	createdHandle []uintptr

	destroyedCtx    map[uintptr]int
	destroyedComp   map[uintptr]int
	destroyedLib    map[uintptr]int
	destroyedHandle map[uintptr]int

	setCurrentCalls []uintptr
	syncCalls       []uintptr
	boundStreams    map[uintptr]uintptr // handle -> stream
}

func newFakeDriver(deviceCount int) *fakeDriver {
	return &fakeDriver{
		deviceCount:     deviceCount,
		nextContext:     0x1000,
		nextCompute:     0x2000,
		nextLibrary:     0x3000,
		nextHandle:      0x4000,
		destroyedCtx:    make(map[uintptr]int),
		destroyedComp:   make(map[uintptr]int),
		destroyedLib:    make(map[uintptr]int),
		destroyedHandle: make(map[uintptr]int),
		boundStreams:    make(map[uintptr]uintptr),
	}
}

func (f *fakeDriver) DeviceCount() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deviceCountErr != nil {
		return 0, f.deviceCountErr
	}
	return f.deviceCount, nil
}

func (f *fakeDriver) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	return f.initErr
}

func (f *fakeDriver) DeviceGet(ordinal int) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deviceGetErr != nil {
		return 0, f.deviceGetErr
	}
	if ordinal < 0 || ordinal >= f.deviceCount {
		return 0, errors.Errorf("no such device %d", ordinal)
	}
	return uintptr(0x100 + ordinal), nil
}

func (f *fakeDriver) CtxGetCurrent() (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

func (f *fakeDriver) CtxCreate(device uintptr) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ctxCreateErr != nil {
		return 0, f.ctxCreateErr
	}
	f.nextContext++
	ctx := f.nextContext
	f.createdCtx = append(f.createdCtx, ctx)
	f.current = ctx // cuCtxCreate makes the new context current
	return ctx, nil
}

func (f *fakeDriver) CtxSetCurrent(ctx uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = ctx
	f.setCurrentCalls = append(f.setCurrentCalls, ctx)
	return nil
}

func (f *fakeDriver) CtxDestroy(ctx uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyedCtx[ctx]++
	return nil
}

func (f *fakeDriver) ComputeStreamCreate() (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.streamErr != nil {
		return 0, f.streamErr
	}
	f.nextCompute++
	f.createdComp = append(f.createdComp, f.nextCompute)
	return f.nextCompute, nil
}

func (f *fakeDriver) ComputeStreamSynchronize(stream uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCalls = append(f.syncCalls, stream)
	return nil
}

func (f *fakeDriver) ComputeStreamDestroy(stream uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyedComp[stream]++
	return nil
}

func (f *fakeDriver) LibraryStreamCreate() (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.libStreamErr != nil {
		return 0, f.libStreamErr
	}
	f.nextLibrary++
	f.createdLib = append(f.createdLib, f.nextLibrary)
	return f.nextLibrary, nil
}

func (f *fakeDriver) LibraryStreamDestroy(stream uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyedLib[stream]++
	return nil
}

func (f *fakeDriver) HandleCreate() (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handleErr != nil {
		return 0, f.handleErr
	}
	f.nextHandle++
	f.createdHandle = append(f.createdHandle, f.nextHandle)
	return f.nextHandle, nil
}

func (f *fakeDriver) HandleSetStream(handle, stream uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boundStreams[handle] = stream
	return nil
}

func (f *fakeDriver) HandleDestroy(handle uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyedHandle[handle]++
	return nil
}

// locked runs fn under the driver lock, for assertions on the counters.
func (f *fakeDriver) locked(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
}
