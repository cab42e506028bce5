package cudart

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	require.Equal(t, "cudaSuccess", Success.String())
	require.Equal(t, "cudaErrorInvalidResourceHandle", ErrorInvalidResourceHandle.String())
	require.Equal(t, "cudaError(777)", Error(777).String())
}

func TestToError(t *testing.T) {
	require.NoError(t, toError("cudaStreamCreate", Success))

	err := toError("cudaStreamCreate", ErrorMemoryAllocation)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cudaStreamCreate")
	require.Contains(t, err.Error(), "cudaErrorMemoryAllocation")
}
