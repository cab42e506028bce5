package cublas

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusString(t *testing.T) {
	require.Equal(t, "CUBLAS_STATUS_SUCCESS", StatusSuccess.String())
	require.Equal(t, "CUBLAS_STATUS_ALLOC_FAILED", StatusAllocFailed.String())
	require.Equal(t, "CUBLAS_STATUS(42)", Status(42).String())
}

func TestToError(t *testing.T) {
	require.NoError(t, toError("cublasCreate", StatusSuccess))

	err := toError("cublasCreate", StatusNotInitialized)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cublasCreate")
	require.Contains(t, err.Error(), "CUBLAS_STATUS_NOT_INITIALIZED")
}
