// Package cudart binds the subset of the CUDA Runtime API used for
// library-side streams (cudaStream_t).
//
// The runtime API is a separate library from the driver API (libcudart vs
// libcuda) and its stream identities must not be mixed with driver streams,
// so the bindings live in their own package. Loading is done at runtime with
// purego, no cgo.
package cudart

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/pkg/errors"
)

// Stream is a cudaStream_t.
type Stream uintptr

// Error is a cudaError_t status code.
type Error uint32

// Runtime status codes used by this package.
const (
	Success                    Error = 0
	ErrorInvalidValue          Error = 1
	ErrorMemoryAllocation      Error = 2
	ErrorInitializationError   Error = 3
	ErrorNoDevice              Error = 100
	ErrorInvalidResourceHandle Error = 400
)

var errorNames = map[Error]string{
	Success:                    "cudaSuccess",
	ErrorInvalidValue:          "cudaErrorInvalidValue",
	ErrorMemoryAllocation:      "cudaErrorMemoryAllocation",
	ErrorInitializationError:   "cudaErrorInitializationError",
	ErrorNoDevice:              "cudaErrorNoDevice",
	ErrorInvalidResourceHandle: "cudaErrorInvalidResourceHandle",
}

// String returns the cudaError name, or a numeric rendering for codes not in
// the table.
func (e Error) String() string {
	if name, found := errorNames[e]; found {
		return name
	}
	return fmt.Sprintf("cudaError(%d)", uint32(e))
}

func toError(op string, e Error) error {
	if e == Success {
		return nil
	}
	return errors.Errorf("CUDA runtime error on %s (code=%d): %s", op, uint32(e), e)
}

var libraryNames = []string{"libcudart.so.12", "libcudart.so.11.0", "libcudart.so", "libcudart.dylib"}

var (
	loadOnce sync.Once
	loadErr  error

	cudaStreamCreate      func(pstream *uintptr) Error
	cudaStreamSynchronize func(stream uintptr) Error
	cudaStreamDestroy     func(stream uintptr) Error
)

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
			loadErr = errors.Wrapf(loadErr, "failed to load the CUDA runtime library (tried %v)", libraryNames)
			return
		}
		purego.RegisterLibFunc(&cudaStreamCreate, lib, "cudaStreamCreate")
		purego.RegisterLibFunc(&cudaStreamSynchronize, lib, "cudaStreamSynchronize")
		purego.RegisterLibFunc(&cudaStreamDestroy, lib, "cudaStreamDestroy")
	})
	return loadErr
}

// StreamCreate creates a runtime stream on the current device context.
func StreamCreate() (Stream, error) {
	if err := load(); err != nil {
		return 0, err
	}
	var stream uintptr
	if err := toError("cudaStreamCreate", cudaStreamCreate(&stream)); err != nil {
		return 0, err
	}
	return Stream(stream), nil
}

// StreamSynchronize blocks until all work enqueued on the stream completes.
func StreamSynchronize(stream Stream) error {
	if err := load(); err != nil {
		return err
	}
	return toError("cudaStreamSynchronize", cudaStreamSynchronize(uintptr(stream)))
}

// StreamDestroy destroys the stream.
func StreamDestroy(stream Stream) error {
	if err := load(); err != nil {
		return err
	}
	return toError("cudaStreamDestroy", cudaStreamDestroy(uintptr(stream)))
}
