package gocuda

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkerContextCarriage(t *testing.T) {
	ctx := context.Background()
	_, found := WorkerFromContext(ctx)
	require.False(t, found)

	ctx = WithWorker(ctx, "trainer-3")
	worker, found := WorkerFromContext(ctx)
	require.True(t, found)
	require.Equal(t, WorkerID("trainer-3"), worker)

	// Inner values shadow outer ones, as usual for contexts.
	inner := WithWorker(ctx, "trainer-7")
	worker, found = WorkerFromContext(inner)
	require.True(t, found)
	require.Equal(t, WorkerID("trainer-7"), worker)
}
