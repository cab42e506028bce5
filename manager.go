package gocuda

import (
	"runtime"
	"sync"

	"k8s.io/klog/v2"
)

// Manager owns the per-process CUDA resource registries: worker to device
// assignment, device contexts, the two stream tables and the cuBLAS handle
// table. Construct one at startup, pass it to consumers, and Close it when
// the process is done with the devices.
//
// Each registry is guarded independently, so creating a stream for one worker
// never blocks a handle lookup for another. All methods are safe for
// concurrent use.
type Manager struct {
	drv        Driver
	numDevices int

	assigner *assigner
	contexts *contextRegistry
	compute  *streamRegistry
	library  *streamRegistry
	handles  *handleRegistry

	closeOnce sync.Once
}

type options struct {
	drv  Driver
	pick func(numDevices int) int
}

// Option configures New.
type Option func(*options)

// WithDriver substitutes the Driver used for all device operations. The
// default is Hardware().
func WithDriver(drv Driver) Option {
	return func(o *options) { o.drv = drv }
}

// WithDevicePicker substitutes the random source used to spread workers
// across devices: pick receives the device count and returns an ordinal in
// [0, numDevices). The default draws from math/rand/v2.
func WithDevicePicker(pick func(numDevices int) int) Option {
	return func(o *options) { o.pick = pick }
}

// New creates a Manager, enumerating devices on the spot. Enumeration never
// fails: if the driver reports zero devices or cannot be queried, the Manager
// pretends exactly one device is present so single-GPU and GPU-less
// environments keep working, and resource creation reports the real errors.
//
// Close releases all created streams, handles and contexts; a finalizer backs
// it up for Managers dropped without Close, but relying on the garbage
// collector for device teardown is not recommended.
func New(opts ...Option) *Manager {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.drv == nil {
		o.drv = Hardware()
	}

	numDevices, err := o.drv.DeviceCount()
	if err != nil {
		klog.Errorf("Failed to enumerate CUDA devices, pretending a single device is present: %v", err)
		numDevices = 1
	}
	if numDevices < 1 {
		numDevices = 1
	}
	klog.V(1).Infof("managing %d CUDA device(s)", numDevices)

	m := &Manager{
		drv:        o.drv,
		numDevices: numDevices,
		assigner:   newAssigner(numDevices, o.pick),
		contexts:   newContextRegistry(o.drv, numDevices),
		compute:    newStreamRegistry(o.drv, ComputeKind),
		library:    newStreamRegistry(o.drv, LibraryKind),
		handles:    newHandleRegistry(o.drv),
	}
	runtime.SetFinalizer(m, func(m *Manager) { m.Close() })
	return m
}

// NumDevices returns the number of devices the Manager spreads workers over.
// At least 1, even when no device is actually present.
func (m *Manager) NumDevices() int {
	return m.numDevices
}

// DeviceForWorker returns the device ordinal assigned to the worker, stable
// for the worker's lifetime.
func (m *Manager) DeviceForWorker(worker WorkerID) int {
	return m.assigner.deviceFor(worker)
}

// Context returns the device context for the worker, resolving the worker's
// device assignment first.
func (m *Manager) Context(worker WorkerID) (*Context, error) {
	return m.ContextForDevice(m.assigner.deviceFor(worker))
}

// ContextForDevice returns the shared context of an explicit device. The
// first successful call creates the contexts of all devices as a side effect,
// so every ordinal is a valid execution target once any context exists.
func (m *Manager) ContextForDevice(device int) (*Context, error) {
	return m.contexts.contextFor(device)
}

// ComputeStream returns the worker's compute stream, creating it on first
// request within the worker's device context.
func (m *Manager) ComputeStream(worker WorkerID) (*Stream, error) {
	ctx, err := m.Context(worker)
	if err != nil {
		return nil, err
	}
	return m.compute.streamFor(ctx, worker)
}

// LibraryStream returns the worker's library stream, creating it on first
// request within the worker's device context.
func (m *Manager) LibraryStream(worker WorkerID) (*Stream, error) {
	ctx, err := m.Context(worker)
	if err != nil {
		return nil, err
	}
	return m.library.streamFor(ctx, worker)
}

// Handle returns the worker's cuBLAS handle, creating it on first request.
func (m *Manager) Handle(worker WorkerID) (*Handle, error) {
	return m.handles.handleFor(worker)
}

// BindHandle routes cuBLAS calls through the worker's handle onto the
// worker's library stream, so library work and the worker's own dispatch
// order on the same queue. Both resources are created if missing.
func (m *Manager) BindHandle(worker WorkerID) error {
	handle, err := m.Handle(worker)
	if err != nil {
		return err
	}
	stream, err := m.LibraryStream(worker)
	if err != nil {
		return err
	}
	return m.drv.HandleSetStream(handle.raw, stream.raw)
}

// SynchronizeStream blocks until all work previously enqueued on the worker's
// compute stream has completed. Dispatch is asynchronous with respect to the
// host, so call this after dispatching and before reading results.
func (m *Manager) SynchronizeStream(worker WorkerID) error {
	stream, err := m.ComputeStream(worker)
	if err != nil {
		return err
	}
	return m.drv.ComputeStreamSynchronize(stream.raw)
}

// Devices returns a copy of the enumerated devices recorded by context
// priming, keyed by ordinal. Diagnostic view; empty before the first context
// request.
func (m *Manager) Devices() map[int]Device {
	return m.contexts.devicesSnapshot()
}

// Contexts returns a copy of the device to context mapping. Diagnostic view;
// empty before the first context request.
func (m *Manager) Contexts() map[int]*Context {
	return m.contexts.contextsSnapshot()
}

// Assignments returns a copy of the worker to device assignments recorded so
// far. Diagnostic view; always empty in single-device mode.
func (m *Manager) Assignments() map[WorkerID]int {
	return m.assigner.snapshot()
}

// Close destroys every recorded resource: library streams, then compute
// streams, then cuBLAS handles, then contexts. Destruction is best-effort --
// it runs once, failures are logged and not re-validated, since nothing is
// actionable at teardown. Idempotent and safe for concurrent use.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		runtime.SetFinalizer(m, nil)
		m.library.destroyAll()
		m.compute.destroyAll()
		m.handles.destroyAll()
		m.contexts.destroyAll()
	})
}
