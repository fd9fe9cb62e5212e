package companion

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startServer(t *testing.T, store Store) (*Client, *Server) {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(store, zap.NewNop())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, conn) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	return NewClient(conn.LocalAddr().String(), WithTimeout(2*time.Second)), srv
}

func TestRegistryRoundTrip(t *testing.T) {
	client, _ := startServer(t, NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))
	require.NoError(t, client.Set(ctx, "app.LoggingAspect", []byte("definition")))

	value, err := client.Get(ctx, "app.LoggingAspect")
	require.NoError(t, err)
	assert.Equal(t, []byte("definition"), value)

	keys, err := client.List(ctx, "app.")
	require.NoError(t, err)
	assert.Equal(t, []string{"app.LoggingAspect"}, keys)
}

func TestRegistryLastSetWins(t *testing.T) {
	client, _ := startServer(t, NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k", []byte("first")))
	require.NoError(t, client.Set(ctx, "k", []byte("second")))

	value, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), value)
}

func TestRegistryNotFound(t *testing.T) {
	client, _ := startServer(t, NewMemoryStore())

	_, err := client.Get(context.Background(), "app.Missing")
	require.Error(t, err)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "app.Missing", nf.Key)
	assert.Equal(t, "app.Missing is not registered", err.Error())
}

func TestRegistryEmptyList(t *testing.T) {
	client, _ := startServer(t, NewMemoryStore())

	keys, err := client.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{}, keys)
}

func TestClientRefusesOversizedRequest(t *testing.T) {
	client, _ := startServer(t, NewMemoryStore())

	err := client.Set(context.Background(), "big", make([]byte, MaxPayload+1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPayloadTooLarge))
}

func TestServerReportsOversizedReply(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "big", make([]byte, MaxPayload-2)))
	client, _ := startServer(t, store)

	_, err := client.Get(context.Background(), "big")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not fit in a datagram")
}

func TestClientUnavailable(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := conn.LocalAddr().String()
	require.NoError(t, conn.Close())

	client := NewClient(addr, WithTimeout(300*time.Millisecond))
	err = client.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestClientHonorsContext(t *testing.T) {
	// a bound socket that never answers
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = NewClient(conn.LocalAddr().String()).Ping(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestServerHandleUnknownOp(t *testing.T) {
	srv := NewServer(NewMemoryStore(), nil)

	resp := srv.Handle(context.Background(), &Request{ID: "1", Op: Op(99)})
	assert.Equal(t, "1", resp.ID)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Message, "unknown operation")
}

func TestServerMalformedDatagram(t *testing.T) {
	client, srv := startServer(t, NewMemoryStore())

	conn, err := net.Dial("udp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte{0xff})
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	buf := make([]byte, MaxPayload)
	n, err := conn.Read(buf)
	require.NoError(t, err)

	resp, err := UnmarshalResponse(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, StatusError, resp.Status)

	// the server keeps serving
	assert.NoError(t, client.Ping(context.Background()))
}
