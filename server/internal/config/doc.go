// Package config loads the minikv-server configuration from a YAML file.
//
// Config fields:
//   - Server.Host, Server.Port   line protocol listener (default 127.0.0.1:6379)
//   - Server.HTTPPort            JSON API, /metrics, WebSocket console (0 = off)
//   - Server.GRPCPort            gRPC health service (0 = off)
//   - Server.MaxLineBytes        longest accepted request line (default 64 KiB)
//   - Store.DefaultTTL           TTL when a command gives none (default 60s)
//   - Store.SweepInterval        expiry sweep period (default 1s)
//   - Log.Level                  debug | info | warn | error
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, fn) reloads on file change; Store and Log settings can be
// applied live, Server settings need a restart.
package config
