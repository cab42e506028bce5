package gocuda

import "github.com/pkg/errors"

// The four unrecoverable failure kinds surfaced by the registries. They are
// never retried internally: retrying without a changed device or driver state
// is presumed futile. Check with errors.Is; the wrapped message carries the
// originating status description.
var (
	// ErrDriverInit indicates the CUDA driver could not be initialized or no
	// usable device exists.
	ErrDriverInit = errors.New("failed to initialize the CUDA driver")

	// ErrContextCreation indicates a device context could not be attached to
	// or created.
	ErrContextCreation = errors.New("failed to create a device context")

	// ErrStreamCreation indicates a stream could not be created on an
	// otherwise valid context.
	ErrStreamCreation = errors.New("failed to create a stream")

	// ErrHandleCreation indicates the cuBLAS runtime rejected handle creation.
	ErrHandleCreation = errors.New("failed to create a cuBLAS handle")
)
