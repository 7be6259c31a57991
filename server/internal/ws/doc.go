// Package ws implements the WebSocket console for minikv-server.
//
// Console runs the same line protocol as the TCP listener over WebSocket:
// each text frame a client sends is one command line, and each reply is one
// text frame holding the response without the trailing "\r\n". Replies are
// sent in request order.
//
// New(exec) creates a Console. Console.Run(ctx) blocks until ctx is
// cancelled, then closes all active connections. The endpoint is mounted at
// /ws/console by the server. The upgrader accepts all origins.
package ws
