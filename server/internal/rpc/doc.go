// Package rpc exposes the gRPC side of minikv-server: the standard
// grpc.health.v1.Health service for load balancers and orchestrators, and
// interceptors that convert handler panics into codes.Internal.
//
// The key-value protocol itself is not served over gRPC.
package rpc
