package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/coursework/internal/model"
	"github.com/pavelanni/coursework/internal/protocol"
)

const readBufferSize = 4096

// Stats counts connections and requests since start.
type Stats struct {
	Accepted int64 `json:"accepted"`
	Active   int64 `json:"active"`
	Requests int64 `json:"requests"`
}

// Server accepts raw TCP connections and serves framed requests on them,
// one goroutine per connection.
type Server struct {
	handler   protocol.Handler
	config    model.ServerConfig
	translate protocol.Translator
	log       *slog.Logger

	accepted atomic.Int64
	active   atomic.Int64
	requests atomic.Int64

	closing atomic.Bool
	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
}

// New creates a Server. A nil translator falls back to
// protocol.DefaultTranslator.
func New(h protocol.Handler, cfg model.ServerConfig, t protocol.Translator, log *slog.Logger) *Server {
	if t == nil {
		t = protocol.DefaultTranslator
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		handler:   h,
		config:    cfg,
		translate: t,
		log:       log,
		conns:     make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. On cancellation
// it stops accepting, interrupts connections waiting for input and waits
// for in-flight requests to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("listening", "addr", ln.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		s.closing.Store(true)
		ln.Close()
		s.interruptConns()
	})
	defer stop()

	connCtx := context.WithoutCancel(ctx)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() {
				s.wg.Wait()
				s.log.Info("server stopped")
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.log.Warn("accept failed", "error", err)
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.accepted.Add(1)
		s.track(conn)
		s.wg.Add(1)
		go s.serveConn(connCtx, conn)
	}
}

// Stats returns a snapshot of the counters.
func (s *Server) Stats() Stats {
	return Stats{
		Accepted: s.accepted.Load(),
		Active:   s.active.Load(),
		Requests: s.requests.Load(),
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
	s.active.Add(1)
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
	s.active.Add(-1)
}

// interruptConns unblocks every pending Read. A connection in the middle
// of a request finishes it and then sees the expired deadline.
func (s *Server) interruptConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.SetReadDeadline(time.Now())
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	id := uuid.NewString()
	ctx = model.ContextWithConnID(ctx, id)
	log := s.log.With("conn", id, "remote", conn.RemoteAddr().String())
	log.Debug("connection opened")

	framer := protocol.NewFramer(s.config.MaxRequestBytes)
	buf := make([]byte, readBufferSize)
	for {
		if s.config.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))
		}
		if s.closing.Load() {
			log.Debug("connection closed by shutdown")
			return
		}

		n, err := conn.Read(buf)
		if n > 0 {
			if _, werr := framer.Write(buf[:n]); werr != nil {
				log.Warn("request rejected", "error", werr, "buffered", framer.Len())
				s.reject(ctx, conn, protocol.MsgRequestTooLarge)
				return
			}
			if framer.Complete() {
				if !s.serveRequest(ctx, conn, framer, log) {
					return
				}
			}
		}
		if err != nil {
			var ne net.Error
			switch {
			case errors.Is(err, io.EOF):
				log.Debug("connection closed by client")
			case errors.As(err, &ne) && ne.Timeout():
				log.Debug("connection idle, closing")
			default:
				log.Warn("read failed", "error", err)
			}
			return
		}
	}
}

// serveRequest parses the buffered request, dispatches it and writes the
// response. It reports whether the connection may keep reading.
func (s *Server) serveRequest(ctx context.Context, conn net.Conn, framer *protocol.Framer, log *slog.Logger) bool {
	req, err := protocol.ParseRequest(framer.Bytes())
	framer.Reset()
	if err != nil {
		log.Warn("request rejected", "error", err)
		s.reject(ctx, conn, protocol.MsgMalformedRequest)
		return false
	}
	req.RemoteAddr = conn.RemoteAddr().String()
	s.requests.Add(1)

	resp := s.handler.ServeRequest(ctx, req)
	if err := protocol.WriteResponse(conn, resp); err != nil {
		log.Warn("write failed", "error", err)
		return false
	}
	return true
}

func (s *Server) reject(ctx context.Context, conn net.Conn, msgID string) {
	if err := protocol.WriteResponse(conn, protocol.Error(400, s.translate(ctx, msgID))); err != nil {
		s.log.Debug("write failed", "error", err)
	}
}
