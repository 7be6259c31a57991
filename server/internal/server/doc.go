// Package server is the TCP front end of minikv-server.
//
// New(addr, handler, opts) creates a Server; ListenAndServe(ctx) binds and
// accepts until ctx is cancelled. Each connection gets its own goroutine that
// reads newline-terminated requests (a trailing "\r" is dropped), hands each
// one to the Handler and writes the response back before reading the next.
//
// A read or write error, an oversized line or a panic in the Handler closes
// that connection only; the listener and other connections keep running.
package server
