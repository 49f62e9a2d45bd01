// Package gtudpd is a small UDP request/response server with per-client
// rate limiting, a bound on concurrent responses and DJB-style access
// control from a config directory.
package gtudpd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler answers one request. A nil reply sends nothing.
type Handler func(ctx context.Context, req []byte, from *net.UDPAddr) []byte

// Server answers datagrams on one UDP socket.
type Server struct {
	conn    *net.UDPConn
	handle  Handler
	cfg     Config
	limiter *rateLimiter
	slots   chan struct{}
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewServer binds the port named by cfg.
func NewServer(cfg Config, h Handler, log *zap.Logger) (*Server, error) {
	cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	port := cfg.Port()
	addr, err := net.ResolveUDPAddr("udp", port)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		if strings.Contains(err.Error(), "permission denied") {
			return nil, fmt.Errorf("permission denied binding to port %s - try running as root or use a port >= 1024", port)
		}
		return nil, err
	}
	return &Server{
		conn:    conn,
		handle:  h,
		cfg:     cfg,
		limiter: newRateLimiter(cfg.MaxRequestsPerIP, cfg.RateLimitWindow),
		slots:   make(chan struct{}, cfg.MaxConcurrentResponses),
		log:     log,
	}, nil
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr { return s.conn.LocalAddr() }

// Close releases the socket. Serve returns soon after.
func (s *Server) Close() error { return s.conn.Close() }

// Serve answers requests until ctx is done, then waits for in-flight
// responses.
func (s *Server) Serve(ctx context.Context) error {
	defer s.wg.Wait()

	sweepCtx, stop := context.WithCancel(ctx)
	defer stop()
	go s.sweep(sweepCtx)

	buf := make([]byte, s.cfg.MaxRequestSize)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return err
		}
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Debug("read failed", zap.Error(err))
			continue
		}
		s.dispatch(ctx, append([]byte(nil), buf[:n]...), from)
	}
}

func (s *Server) dispatch(ctx context.Context, req []byte, from *net.UDPAddr) {
	if !s.limiter.allow(from.IP.String()) {
		s.log.Debug("rate limited", zap.Stringer("client", from))
		return
	}
	if !s.cfg.ClientOK(from.IP) {
		s.log.Debug("client refused", zap.Stringer("client", from))
		return
	}
	select {
	case s.slots <- struct{}{}:
	default:
		s.log.Warn("response slots exhausted, dropping request", zap.Stringer("client", from))
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.slots }()
		s.respond(ctx, req, from)
	}()
}

func (s *Server) respond(ctx context.Context, req []byte, from *net.UDPAddr) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ResponseTimeout)
	defer cancel()
	reply := s.handle(ctx, req, from)
	if reply == nil || ctx.Err() != nil {
		return
	}
	if _, err := s.conn.WriteToUDP(reply, from); err != nil {
		s.log.Debug("write failed", zap.Stringer("client", from), zap.Error(err))
	}
}

func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(2 * s.cfg.RateLimitWindow)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.limiter.sweep()
		case <-ctx.Done():
			return
		}
	}
}
