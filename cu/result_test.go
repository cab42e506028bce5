package cu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResultString(t *testing.T) {
	require.Equal(t, "CUDA_SUCCESS", Success.String())
	require.Equal(t, "CUDA_ERROR_NO_DEVICE", ErrorNoDevice.String())
	require.Equal(t, "CUDA_ERROR(12345)", Result(12345).String())
}

func TestToError(t *testing.T) {
	require.NoError(t, toError("cuInit", Success))

	err := toError("cuCtxCreate", ErrorOutOfMemory)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cuCtxCreate")
	require.Contains(t, err.Error(), "CUDA_ERROR_OUT_OF_MEMORY")
	require.Contains(t, err.Error(), "code=2")
}
