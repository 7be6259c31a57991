package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	backoffInitial      = 100 * time.Millisecond
	backoffMax          = 2 * time.Second
	backoffMultiplier   = 2.0
	DefaultDialAttempts = 5
	DefaultTimeout      = 5 * time.Second
)

// ErrMultiline is returned by Do when the request contains a line break.
var ErrMultiline = errors.New("request must be a single line")

// Options tunes dialing and request deadlines. Zero values use the defaults.
type Options struct {
	DialAttempts int
	Timeout      time.Duration
}

// dialFunc opens the TCP connection. Tests replace it.
type dialFunc func(ctx context.Context, addr string) (net.Conn, error)

// Client sends one request line at a time and reads one response line back.
// A failed request drops the connection; the next Do redials.
type Client struct {
	addr   string
	opts   Options
	dialFn dialFunc

	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

// New returns a Client for addr. It does not connect until Connect or Do.
func New(addr string, opts Options) *Client {
	if opts.DialAttempts <= 0 {
		opts.DialAttempts = DefaultDialAttempts
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	var d net.Dialer
	return &Client{addr: addr, opts: opts, dialFn: func(ctx context.Context, addr string) (net.Conn, error) {
		return d.DialContext(ctx, "tcp", addr)
	}}
}

// Addr returns the server address.
func (c *Client) Addr() string { return c.addr }

// Timeout returns the per-request deadline applied by Do.
func (c *Client) Timeout() time.Duration { return c.opts.Timeout }

// Connect dials the server, retrying with exponential backoff.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connect(ctx)
}

// Do sends line and returns the response without its "\r\n" terminator.
func (c *Client) Do(ctx context.Context, line string) (string, error) {
	if strings.ContainsAny(line, "\r\n") {
		return "", ErrMultiline
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(ctx); err != nil {
		return "", err
	}

	deadline := time.Now().Add(c.opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetDeadline(deadline) //nolint:errcheck

	if _, err := fmt.Fprintf(c.conn, "%s\n", line); err != nil {
		c.drop()
		return "", fmt.Errorf("client: write: %w", err)
	}
	resp, err := c.r.ReadString('\n')
	if err != nil {
		c.drop()
		return "", fmt.Errorf("client: read: %w", err)
	}
	return strings.TrimRight(resp, "\r\n"), nil
}

// Close closes the current connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn, c.r = nil, nil
	return err
}

// connect is a no-op when already connected. Callers hold mu.
func (c *Client) connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	bo := newBackoff()
	var lastErr error
	for attempt := 1; attempt <= c.opts.DialAttempts; attempt++ {
		conn, err := c.dialFn(ctx, c.addr)
		if err == nil {
			c.conn, c.r = conn, bufio.NewReader(conn)
			slog.Debug("client: connected", "addr", c.addr, "attempt", attempt)
			return nil
		}
		lastErr = err
		if attempt == c.opts.DialAttempts {
			break
		}
		wait := bo.next()
		slog.Debug("client: dial failed, will retry", "addr", c.addr, "err", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("client: dial %s after %d attempts: %w", c.addr, c.opts.DialAttempts, lastErr)
}

func (c *Client) drop() {
	c.conn.Close()
	c.conn, c.r = nil, nil
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}
