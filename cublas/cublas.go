// Package cublas binds the subset of the cuBLAS API needed to create and
// destroy library handles and to route cuBLAS calls onto a stream.
//
// Loaded at runtime with purego, no cgo. cuBLAS tracks the current device
// context on its own, so handles here carry no context parameter.
package cublas

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/pkg/errors"
)

// Handle is a cublasHandle_t.
type Handle uintptr

// Status is a cublasStatus_t code.
type Status uint32

// cuBLAS status codes used by this package.
const (
	StatusSuccess         Status = 0
	StatusNotInitialized  Status = 1
	StatusAllocFailed     Status = 3
	StatusInvalidValue    Status = 7
	StatusExecutionFailed Status = 13
	StatusNotSupported    Status = 15
)

var statusNames = map[Status]string{
	StatusSuccess:         "CUBLAS_STATUS_SUCCESS",
	StatusNotInitialized:  "CUBLAS_STATUS_NOT_INITIALIZED",
	StatusAllocFailed:     "CUBLAS_STATUS_ALLOC_FAILED",
	StatusInvalidValue:    "CUBLAS_STATUS_INVALID_VALUE",
	StatusExecutionFailed: "CUBLAS_STATUS_EXECUTION_FAILED",
	StatusNotSupported:    "CUBLAS_STATUS_NOT_SUPPORTED",
}

// String returns the CUBLAS_STATUS_* name, or a numeric rendering for codes
// not in the table.
func (s Status) String() string {
	if name, found := statusNames[s]; found {
		return name
	}
	return fmt.Sprintf("CUBLAS_STATUS(%d)", uint32(s))
}

func toError(op string, s Status) error {
	if s == StatusSuccess {
		return nil
	}
	return errors.Errorf("cuBLAS error on %s (code=%d): %s", op, uint32(s), s)
}

var libraryNames = []string{"libcublas.so.12", "libcublas.so.11", "libcublas.so", "libcublas.dylib"}

var (
	loadOnce sync.Once
	loadErr  error

	cublasCreate    func(handle *uintptr) Status
	cublasDestroy   func(handle uintptr) Status
	cublasSetStream func(handle uintptr, stream uintptr) Status
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
			loadErr = errors.Wrapf(loadErr, "failed to load the cuBLAS library (tried %v)", libraryNames)
			return
		}
		purego.RegisterLibFunc(&cublasCreate, lib, "cublasCreate_v2")
		purego.RegisterLibFunc(&cublasDestroy, lib, "cublasDestroy_v2")
		purego.RegisterLibFunc(&cublasSetStream, lib, "cublasSetStream_v2")
	})
	return loadErr
}

// Create creates a cuBLAS handle bound to the library runtime.
func Create() (Handle, error) {
	if err := load(); err != nil {
		return 0, err
	}
	var handle uintptr
	if err := toError("cublasCreate", cublasCreate(&handle)); err != nil {
		return 0, err
	}
	return Handle(handle), nil
}

// Destroy releases the handle.
func Destroy(handle Handle) error {
	if err := load(); err != nil {
		return err
	}
	return toError("cublasDestroy", cublasDestroy(uintptr(handle)))
}

// SetStream routes subsequent cuBLAS calls through the handle onto the given
// stream (a cudaStream_t value).
func SetStream(handle Handle, stream uintptr) error {
	if err := load(); err != nil {
		return err
	}
	return toError("cublasSetStream", cublasSetStream(uintptr(handle), uintptr(stream)))
}
