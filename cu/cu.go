// Package cu binds the subset of the CUDA Driver API needed to manage
// devices, contexts and streams.
//
// The bindings load libcuda at runtime with purego (dlopen), so the package
// compiles and links on machines without a CUDA installation -- calls simply
// return an error until the driver library is present.
package cu

import (
	"sync"

	"github.com/ebitengine/purego"
	"github.com/pkg/errors"
)

// Opaque driver handles. CUdevice is an ordinal-like int32 in the driver API;
// contexts and streams are pointers.
type (
	Device  int32
	Context uintptr
	Stream  uintptr
)

// Names libcuda is published under, tried in order.
var libraryNames = []string{"libcuda.so.1", "libcuda.so", "libcuda.dylib"}

var (
	loadOnce sync.Once
	loadErr  error

	cuInit              func(flags uint32) Result
	cuDeviceGetCount    func(count *int32) Result
	cuDeviceGet         func(device *int32, ordinal int32) Result
	cuDeviceGetName     func(name *byte, length int32, device int32) Result
	cuDeviceTotalMem    func(bytes *uint64, device int32) Result
	cuCtxCreate         func(pctx *uintptr, flags uint32, device int32) Result
	cuCtxGetCurrent     func(pctx *uintptr) Result
	cuCtxSetCurrent     func(ctx uintptr) Result
	cuCtxDestroy        func(ctx uintptr) Result
	cuStreamCreate      func(pstream *uintptr, flags uint32) Result
	cuStreamSynchronize func(stream uintptr) Result
	cuStreamDestroy     func(stream uintptr) Result
)

// load dlopens libcuda and registers the function pointers. Memoized; safe
// for concurrent use.
func load() error {
	loadOnce.Do(func() {
		var lib uintptr
		for _, name := range libraryNames {
			lib, loadErr = purego.Dlopen(name, purego.RTLD_LAZY|purego.RTLD_GLOBAL)
			if loadErr == nil {
				break
			}
		}
		if loadErr != nil {
			loadErr = errors.Wrapf(loadErr, "failed to load the CUDA driver library (tried %v); is the NVidia driver installed?", libraryNames)
			return
		}
		purego.RegisterLibFunc(&cuInit, lib, "cuInit")
		purego.RegisterLibFunc(&cuDeviceGetCount, lib, "cuDeviceGetCount")
		purego.RegisterLibFunc(&cuDeviceGet, lib, "cuDeviceGet")
		purego.RegisterLibFunc(&cuDeviceGetName, lib, "cuDeviceGetName")
		purego.RegisterLibFunc(&cuDeviceTotalMem, lib, "cuDeviceTotalMem_v2")
		purego.RegisterLibFunc(&cuCtxCreate, lib, "cuCtxCreate_v2")
		purego.RegisterLibFunc(&cuCtxGetCurrent, lib, "cuCtxGetCurrent")
		purego.RegisterLibFunc(&cuCtxSetCurrent, lib, "cuCtxSetCurrent")
		purego.RegisterLibFunc(&cuCtxDestroy, lib, "cuCtxDestroy_v2")
		purego.RegisterLibFunc(&cuStreamCreate, lib, "cuStreamCreate")
		purego.RegisterLibFunc(&cuStreamSynchronize, lib, "cuStreamSynchronize")
		purego.RegisterLibFunc(&cuStreamDestroy, lib, "cuStreamDestroy_v2")
	})
	return loadErr
}

// Init initializes the driver. Must precede any other driver call.
func Init() error {
	if err := load(); err != nil {
		return err
	}
	return toError("cuInit", cuInit(0))
}

// DeviceGetCount returns the number of compute-capable devices.
func DeviceGetCount() (int, error) {
	if err := load(); err != nil {
		return 0, err
	}
	var count int32
	if err := toError("cuDeviceGetCount", cuDeviceGetCount(&count)); err != nil {
		return 0, err
	}
	return int(count), nil
}

// DeviceGet returns the device handle for the given ordinal.
func DeviceGet(ordinal int) (Device, error) {
	if err := load(); err != nil {
		return 0, err
	}
	var dev int32
	if err := toError("cuDeviceGet", cuDeviceGet(&dev, int32(ordinal))); err != nil {
		return 0, err
	}
	return Device(dev), nil
}

// DeviceName returns the human-readable name of the device.
func DeviceName(dev Device) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	buf := make([]byte, 256)
	if err := toError("cuDeviceGetName", cuDeviceGetName(&buf[0], int32(len(buf)), int32(dev))); err != nil {
		return "", err
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf), nil
}

// DeviceTotalMem returns the total memory of the device in bytes.
func DeviceTotalMem(dev Device) (uint64, error) {
	if err := load(); err != nil {
		return 0, err
	}
	var bytes uint64
	if err := toError("cuDeviceTotalMem", cuDeviceTotalMem(&bytes, int32(dev))); err != nil {
		return 0, err
	}
	return bytes, nil
}

// CtxCreate creates a new context bound to the device and makes it current on
// the calling thread.
func CtxCreate(dev Device) (Context, error) {
	if err := load(); err != nil {
		return 0, err
	}
	var ctx uintptr
	if err := toError("cuCtxCreate", cuCtxCreate(&ctx, 0, int32(dev))); err != nil {
		return 0, err
	}
	return Context(ctx), nil
}

// CtxGetCurrent returns the context current on the calling thread, or 0 if
// none is bound.
func CtxGetCurrent() (Context, error) {
	if err := load(); err != nil {
		return 0, err
	}
	var ctx uintptr
	if err := toError("cuCtxGetCurrent", cuCtxGetCurrent(&ctx)); err != nil {
		return 0, err
	}
	return Context(ctx), nil
}

// CtxSetCurrent binds the context to the calling thread.
func CtxSetCurrent(ctx Context) error {
	if err := load(); err != nil {
		return err
	}
	return toError("cuCtxSetCurrent", cuCtxSetCurrent(uintptr(ctx)))
}

// CtxDestroy destroys the context.
func CtxDestroy(ctx Context) error {
	if err := load(); err != nil {
		return err
	}
	return toError("cuCtxDestroy", cuCtxDestroy(uintptr(ctx)))
}

// StreamCreate creates a stream on the current context with default flags.
func StreamCreate() (Stream, error) {
	if err := load(); err != nil {
		return 0, err
	}
	var stream uintptr
	if err := toError("cuStreamCreate", cuStreamCreate(&stream, 0)); err != nil {
		return 0, err
	}
	return Stream(stream), nil
}

// StreamSynchronize blocks until all work enqueued on the stream completes.
func StreamSynchronize(stream Stream) error {
	if err := load(); err != nil {
		return err
	}
	return toError("cuStreamSynchronize", cuStreamSynchronize(uintptr(stream)))
}

// StreamDestroy destroys the stream.
func StreamDestroy(stream Stream) error {
	if err := load(); err != nil {
		return err
	}
	return toError("cuStreamDestroy", cuStreamDestroy(uintptr(stream)))
}
