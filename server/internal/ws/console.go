package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	// maxMessageBytes caps one incoming command frame.
	maxMessageBytes = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Allow all origins; restrict at the reverse proxy if needed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Executor runs one command line and returns the response without a line
// terminator. command.Interpreter satisfies it.
type Executor interface {
	Execute(line string) string
}

// Console serves the command protocol over WebSocket: every text frame from a
// client is one command line and is answered by one text frame.
type Console struct {
	exec Executor

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Console that runs commands with exec.
func New(exec Executor) *Console {
	return &Console{
		exec:    exec,
		clients: make(map[*client]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (c *Console) Run(ctx context.Context) {
	<-ctx.Done()
	c.closeAll()
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves commands
// until the connection closes. Replies are sent in request order.
func (c *Console) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	cl := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	c.register(cl)
	defer c.unregister(cl)

	slog.Debug("ws: console client connected", "remote", r.RemoteAddr)

	go cl.writePump()
	c.readPump(cl) // blocks until connection closes
}

// Active returns the number of connected console clients.
func (c *Console) Active() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients)
}

// --- internal ---------------------------------------------------------------

func (c *Console) register(cl *client) {
	c.mu.Lock()
	c.clients[cl] = struct{}{}
	c.mu.Unlock()
}

func (c *Console) unregister(cl *client) {
	c.mu.Lock()
	if _, ok := c.clients[cl]; ok {
		delete(c.clients, cl)
		close(cl.send)
	}
	c.mu.Unlock()
}

func (c *Console) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for cl := range c.clients {
		close(cl.send)
		delete(c.clients, cl)
	}
}

// readPump executes each incoming text frame and queues the reply. A panic
// while executing closes this client only.
func (c *Console) readPump(cl *client) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("ws: console handler panicked", "panic", r)
		}
		cl.conn.Close()
	}()
	cl.conn.SetReadLimit(maxMessageBytes)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		typ, msg, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		reply := []byte(c.exec.Execute(string(msg)))
		if !c.enqueue(cl, reply) {
			return
		}
	}
}

// enqueue hands reply to the client's write pump. It reports false when the
// client has been removed or is not reading its replies.
func (c *Console) enqueue(cl *client, reply []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.clients[cl]; !ok {
		return false
	}
	select {
	case cl.send <- reply:
		return true
	default:
		// Client's outgoing buffer is full; disconnect it.
		return false
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (cl *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (console is shutting down or client removed).
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
