package cu

import (
	"fmt"

	"github.com/pkg/errors"
)

// Result is a CUresult status code returned by driver API calls.
type Result uint32

// Driver status codes this package cares about. The full enum is much larger;
// unknown codes still render through String.
const (
	Success                 Result = 0
	ErrorInvalidValue       Result = 1
	ErrorOutOfMemory        Result = 2
	ErrorNotInitialized     Result = 3
	ErrorDeinitialized      Result = 4
	ErrorNoDevice           Result = 100
	ErrorInvalidDevice      Result = 101
	ErrorInvalidContext     Result = 201
	ErrorInvalidHandle      Result = 400
	ErrorNotReady           Result = 600
	ErrorContextIsDestroyed Result = 709
	ErrorLaunchFailed       Result = 719
	ErrorUnknown            Result = 999
)

var resultNames = map[Result]string{
	Success:                 "CUDA_SUCCESS",
	ErrorInvalidValue:       "CUDA_ERROR_INVALID_VALUE",
	ErrorOutOfMemory:        "CUDA_ERROR_OUT_OF_MEMORY",
	ErrorNotInitialized:     "CUDA_ERROR_NOT_INITIALIZED",
	ErrorDeinitialized:      "CUDA_ERROR_DEINITIALIZED",
	ErrorNoDevice:           "CUDA_ERROR_NO_DEVICE",
	ErrorInvalidDevice:      "CUDA_ERROR_INVALID_DEVICE",
	ErrorInvalidContext:     "CUDA_ERROR_INVALID_CONTEXT",
	ErrorContextIsDestroyed: "CUDA_ERROR_CONTEXT_IS_DESTROYED",
	ErrorInvalidHandle:      "CUDA_ERROR_INVALID_HANDLE",
	ErrorNotReady:           "CUDA_ERROR_NOT_READY",
	ErrorLaunchFailed:       "CUDA_ERROR_LAUNCH_FAILED",
	ErrorUnknown:            "CUDA_ERROR_UNKNOWN",
}

// String returns the CUDA_ERROR_* name for the code, or a numeric rendering
// for codes not in the table.
func (r Result) String() string {
	if name, found := resultNames[r]; found {
		return name
	}
	return fmt.Sprintf("CUDA_ERROR(%d)", uint32(r))
}

// toError converts a driver status to a Go error, nil on success.
func toError(op string, r Result) error {
	if r == Success {
		return nil
	}
	return errors.Errorf("CUDA driver error on %s (code=%d): %s", op, uint32(r), r)
}
