// Package client is a line protocol client for minikv-server. Each Do call
// writes one request line and reads one "\r\n"-terminated response. Dialing
// retries with exponential backoff and a broken connection is re-established
// on the next request.
package client
