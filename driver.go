package gocuda

// Driver is the narrow surface the registries need from the CUDA stack:
// device enumeration, context management, the two stream runtimes, and cuBLAS
// handle lifecycle. The production implementation (see Hardware) drives the
// real libraries; tests substitute a fake via WithDriver.
//
// Raw handles cross this boundary as uintptr, matching what the dlopen-based
// bindings traffic in. The registries wrap them in the typed Device, Context,
// Stream and Handle values they hand to callers.
type Driver interface {
	// DeviceCount reports how many compute devices are present. A zero count
	// or an error puts the Manager in single pretend-device mode; it is the
	// only driver failure that is downgraded rather than surfaced.
	DeviceCount() (int, error)

	// Init initializes the driver. Idempotent; must precede context calls.
	Init() error

	// DeviceGet returns the device handle for an ordinal in [0, DeviceCount).
	DeviceGet(ordinal int) (uintptr, error)

	// CtxGetCurrent returns the context bound to the calling thread, or 0 if
	// none is active.
	CtxGetCurrent() (uintptr, error)

	// CtxCreate creates a context bound to the device and makes it current.
	CtxCreate(device uintptr) (uintptr, error)

	// CtxSetCurrent binds the context to the calling thread.
	CtxSetCurrent(ctx uintptr) error

	// CtxDestroy destroys a context created by CtxCreate.
	CtxDestroy(ctx uintptr) error

	// ComputeStreamCreate creates a driver-API stream on the current context.
	ComputeStreamCreate() (uintptr, error)

	// ComputeStreamSynchronize blocks until work enqueued on the stream drains.
	ComputeStreamSynchronize(stream uintptr) error

	// ComputeStreamDestroy destroys a compute stream.
	ComputeStreamDestroy(stream uintptr) error

	// LibraryStreamCreate creates a runtime-API stream on the current context.
	// Library streams are a distinct runtime's identity space and must never
	// be mixed with compute streams, even though both key off the same
	// (context, worker) pair.
	LibraryStreamCreate() (uintptr, error)

	// LibraryStreamDestroy destroys a library stream.
	LibraryStreamDestroy(stream uintptr) error

	// HandleCreate registers a new handle with the cuBLAS runtime.
	HandleCreate() (uintptr, error)

	// HandleSetStream routes cuBLAS calls through the handle onto the stream.
	HandleSetStream(handle, stream uintptr) error

	// HandleDestroy releases a cuBLAS handle.
	HandleDestroy(handle uintptr) error
}

// Device describes one enumerated physical compute device.
type Device struct {
	// Ordinal is the device index in [0, Manager.NumDevices()).
	Ordinal int

	raw uintptr
}

// Raw returns the underlying CUdevice handle.
func (d Device) Raw() uintptr { return d.raw }

// Context is the execution context bound to one device. It is created at most
// once per device ordinal and shared by every worker assigned to that device;
// workers use it only as an execution target and never mutate it. Destroyed
// only at Manager.Close.
type Context struct {
	device int
	raw    uintptr
	owned  bool // created by us (as opposed to attached), so ours to destroy
}

// Device returns the ordinal of the device this context is bound to.
func (c *Context) Device() int { return c.device }

// Raw returns the underlying CUcontext handle.
func (c *Context) Raw() uintptr { return c.raw }

// StreamKind distinguishes the two stream runtimes driven by this package.
type StreamKind int

const (
	// ComputeKind streams belong to the driver API (CUstream) and carry
	// general kernel dispatch.
	ComputeKind StreamKind = iota

	// LibraryKind streams belong to the runtime API (cudaStream_t) and carry
	// library-internal work.
	LibraryKind
)

// String implements fmt.Stringer.
func (k StreamKind) String() string {
	if k == ComputeKind {
		return "compute"
	}
	return "library"
}

// Stream is an ordered asynchronous execution queue bound to one context and
// owned exclusively by one worker. Work enqueued by the owner executes in
// enqueue order; no ordering holds across streams, even streams sharing a
// context. Dispatch is asynchronous with respect to the host: synchronize
// before reading results.
type Stream struct {
	kind   StreamKind
	worker WorkerID
	ctx    *Context
	raw    uintptr
}

// Kind returns whether this is a compute or a library stream.
func (s *Stream) Kind() StreamKind { return s.kind }

// Worker returns the owning worker.
func (s *Stream) Worker() WorkerID { return s.worker }

// Context returns the device context the stream is bound to.
func (s *Stream) Context() *Context { return s.ctx }

// Raw returns the underlying stream handle.
func (s *Stream) Raw() uintptr { return s.raw }

// Handle is a per-worker handle into the cuBLAS runtime, independent of
// device context identity: cuBLAS tracks its own current-context state.
type Handle struct {
	worker WorkerID
	raw    uintptr
}

// Worker returns the owning worker.
func (h *Handle) Worker() WorkerID { return h.worker }

// Raw returns the underlying cublasHandle_t.
func (h *Handle) Raw() uintptr { return h.raw }
