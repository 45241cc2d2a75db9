package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticProber bool

func (p staticProber) Probe(context.Context) bool {
	return bool(p)
}

func TestCheckBackend(t *testing.T) {
	require.NoError(t, checkBackend(context.Background(), "http://bot-service:8000", staticProber(true)))

	err := checkBackend(context.Background(), "http://bot-service:8000", staticProber(false))
	require.ErrorIs(t, err, errBackendUnhealthy)
	require.ErrorContains(t, err, "http://bot-service:8000")
}
