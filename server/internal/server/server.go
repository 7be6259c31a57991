package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxLineBytes applies when Options.MaxLineBytes is zero.
const DefaultMaxLineBytes = 64 * 1024

// respLineTooLong is sent before closing a connection whose request line
// exceeds the configured limit.
const respLineTooLong = "Error: Line too long\r\n"

// drainTimeout bounds how long unread input is discarded before closing.
const drainTimeout = 100 * time.Millisecond

const (
	acceptBackoffInitial = 5 * time.Millisecond
	acceptBackoffMax     = time.Second
)

// Handler turns one request line into one terminated response.
// command.Interpreter satisfies it.
type Handler interface {
	Respond(line string) []byte
}

// Options configures a Server.
type Options struct {
	// MaxLineBytes caps the length of one request line.
	MaxLineBytes int
}

// Server accepts TCP connections and serves the line protocol, one goroutine
// per connection. Commands on a connection are handled strictly in order.
type Server struct {
	addr    string
	handler Handler
	maxLine int

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool

	active atomic.Int64
	wg     sync.WaitGroup
}

// New creates a Server that will listen on addr and pass every line to h.
func New(addr string, h Handler, opts Options) *Server {
	maxLine := opts.MaxLineBytes
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	return &Server{
		addr:    addr,
		handler: h,
		maxLine: maxLine,
		conns:   make(map[net.Conn]struct{}),
	}
}

// ListenAndServe binds the configured address and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes the
// listener and every open connection and waits for their goroutines.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		ln.Close()
		s.closeConns()
	})
	defer stop()

	slog.Info("server: listening", "addr", ln.Addr().String())

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			if backoff == 0 {
				backoff = acceptBackoffInitial
			} else {
				backoff = min(backoff*2, acceptBackoffMax)
			}
			slog.Warn("server: accept failed, retrying", "err", err, "retry_in", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		if !s.track(conn) {
			conn.Close()
			continue
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Addr returns the bound listener address, or nil before Serve starts.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Active returns the number of open client connections.
func (s *Server) Active() int {
	return int(s.active.Load())
}

// handleConn reads lines until the peer disconnects or an I/O error occurs.
// A panic while handling a line closes this connection only.
func (s *Server) handleConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("server: connection handler panicked", "remote", remote, "panic", r)
		}
		s.untrack(conn)
		conn.Close()
		s.wg.Done()
	}()

	slog.Debug("server: connection opened", "remote", remote)

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, min(4096, s.maxLine)), s.maxLine)
	for sc.Scan() {
		if _, err := conn.Write(s.handler.Respond(sc.Text())); err != nil {
			slog.Debug("server: write failed", "remote", remote, "err", err)
			return
		}
	}

	switch err := sc.Err(); {
	case err == nil:
		slog.Debug("server: connection closed by peer", "remote", remote)
	case errors.Is(err, bufio.ErrTooLong):
		slog.Warn("server: request line too long", "remote", remote, "limit", s.maxLine)
		_, _ = conn.Write([]byte(respLineTooLong))
		// Drain pending input so closing does not reset the reply in flight.
		_ = conn.SetReadDeadline(time.Now().Add(drainTimeout))
		_, _ = io.Copy(io.Discard, conn)
	case errors.Is(err, net.ErrClosed):
	default:
		slog.Debug("server: read failed", "remote", remote, "err", err)
	}
}

// track registers conn; it reports false once the server is shutting down.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.active.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	if _, ok := s.conns[conn]; ok {
		delete(s.conns, conn)
		s.active.Add(-1)
	}
	s.mu.Unlock()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.conns {
		c.Close()
	}
}
