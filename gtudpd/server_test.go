package gtudpd

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// len reports how many clients the limiter is tracking.
func (l *rateLimiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

func echo(_ context.Context, req []byte, _ *net.UDPAddr) []byte {
	return append([]byte("r"), req...)
}

func startServer(t *testing.T, cfg Config, h Handler) *Server {
	t.Helper()
	cfg.DefaultPort = "127.0.0.1:0"
	srv, err := NewServer(cfg, h, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		_ = srv.Close()
	})
	return srv
}

func query(t *testing.T, addr net.Addr, req []byte) ([]byte, error) {
	t.Helper()
	conn, err := net.DialUDP("udp", nil, addr.(*net.UDPAddr))
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_, err = conn.Write(req)
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(500*time.Millisecond)))
	buf := make([]byte, 128)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func TestServeRoundTrip(t *testing.T) {
	srv := startServer(t, Config{}, echo)
	got, err := query(t, srv.Addr(), []byte("ping"))
	require.NoError(t, err)
	require.True(t, bytes.Equal(got, []byte("rping")), "reply %q", got)
}

func TestServeNilReply(t *testing.T) {
	srv := startServer(t, Config{}, func(context.Context, []byte, *net.UDPAddr) []byte { return nil })
	_, err := query(t, srv.Addr(), []byte("ping"))
	require.Error(t, err)
}

func TestServeRefusesClient(t *testing.T) {
	// An empty config directory allows nobody.
	srv := startServer(t, Config{ConfigDir: t.TempDir()}, echo)
	_, err := query(t, srv.Addr(), []byte("ping"))
	require.Error(t, err)
}

func TestServeRateLimit(t *testing.T) {
	srv := startServer(t, Config{MaxRequestsPerIP: 1, RateLimitWindow: time.Hour}, echo)
	_, err := query(t, srv.Addr(), []byte("one"))
	require.NoError(t, err)
	_, err = query(t, srv.Addr(), []byte("two"))
	require.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1000, 0)
	l := newRateLimiter(3, time.Second)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		require.True(t, l.allow("10.0.0.1"), "request %d", i)
	}
	require.False(t, l.allow("10.0.0.1"))
	require.True(t, l.allow("10.0.0.2"))

	now = now.Add(1500 * time.Millisecond)
	require.True(t, l.allow("10.0.0.1"), "new window")
	require.Equal(t, 2, l.len())

	now = now.Add(2500 * time.Millisecond)
	l.allow("10.0.0.3")
	l.sweep()
	require.Equal(t, 1, l.len())
}
