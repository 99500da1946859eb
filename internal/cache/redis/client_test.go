package redis

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientConfigOptions(t *testing.T) {
	opts := ClientConfig{Addr: "cache:6379", Password: "pw", DB: 2, PoolSize: 5, MaxRetries: 1}.options()
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 5, opts.PoolSize)
	assert.Nil(t, opts.TLSConfig)

	tlsOpts := ClientConfig{Addr: "cache:6380", TLSEnabled: true}.options()
	require.NotNil(t, tlsOpts.TLSConfig)
}

func TestDialEventBusFailsWithoutServer(t *testing.T) {
	// Reserve a port and release it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bus, err := DialEventBus(ctx, ClientConfig{Addr: addr, MaxRetries: -1})
	assert.Nil(t, bus)
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr)
}
