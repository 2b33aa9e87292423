package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDoesNotWrap(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoff(1))
	assert.Equal(t, 254*time.Second, backoff(127))
	assert.Equal(t, 256*time.Second, backoff(128))
	assert.Equal(t, 510*time.Second, backoff(255))
}

func TestCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Check(ctx, "server=127.0.0.1;port=1;dial timeout=2;encrypt=disable", 3)

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
}

func TestCheckExhaustsAttempts(t *testing.T) {
	err := Check(context.Background(), "server=127.0.0.1;port=1;dial timeout=2;encrypt=disable", 1)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
}
