package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUDPTransportLoopback(t *testing.T) {
	ctx := context.Background()

	recv := NewUDPTransport("127.0.0.1:0", 47808)
	require.NoError(t, recv.Open(ctx))
	defer recv.Close()

	send := NewUDPTransport("127.0.0.1:0", 47808)
	require.NoError(t, send.Open(ctx))
	defer send.Close()

	recvAddr := recv.LocalAddr()
	require.NotNil(t, recvAddr)

	payload := []byte{0x81, 0x0A, 0x00, 0x06, 0x01, 0x00}
	addr, err := net.ResolveUDPAddr("udp4", recvAddr.String())
	require.NoError(t, err)
	require.NoError(t, send.Send(ctx, addr, payload))

	data, from, err := recv.ReceiveWithTimeout(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.NotNil(t, from)
}

func TestUDPTransportReceiveTimeout(t *testing.T) {
	recv := NewUDPTransport("127.0.0.1:0", 47808)
	require.NoError(t, recv.Open(context.Background()))
	defer recv.Close()

	_, _, err := recv.ReceiveWithTimeout(50 * time.Millisecond)
	assert.Error(t, err)
}

func TestUDPTransportNotOpen(t *testing.T) {
	tr := NewUDPTransport("", 47808)
	err := tr.Send(context.Background(), nil, []byte{0x00})
	assert.Error(t, err)

	_, _, err = tr.Receive(context.Background())
	assert.Error(t, err)

	assert.NoError(t, tr.Close())
	assert.False(t, tr.IsClosed())
}

func TestUDPTransportCloseIdempotent(t *testing.T) {
	tr := NewUDPTransport("127.0.0.1:0", 47808)
	require.NoError(t, tr.Open(context.Background()))
	require.NoError(t, tr.Close())
	assert.True(t, tr.IsClosed())
	assert.NoError(t, tr.Close())
}

func TestSetBroadcastAddress(t *testing.T) {
	tr := NewUDPTransport("", 47808)
	assert.NoError(t, tr.SetBroadcastAddress("192.168.1.255:47808"))
	assert.Error(t, tr.SetBroadcastAddress("not an address"))
}
