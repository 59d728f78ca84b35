package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckAllAggregates(t *testing.T) {
	r := NewRegistry()
	r.Register("up", func(context.Context) Status {
		return Status{Name: "up", Healthy: true}
	})
	r.Register("down", func(context.Context) Status {
		return Status{Name: "down", Detail: "connection refused"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	require.False(t, healthy)
	require.Len(t, statuses, 2)
	require.True(t, statuses[0].Healthy)
	require.False(t, statuses[1].Healthy)
}

func TestCheckAllEmptyIsHealthy(t *testing.T) {
	healthy, statuses := NewRegistry().CheckAll(context.Background())
	require.True(t, healthy)
	require.Empty(t, statuses)
}
