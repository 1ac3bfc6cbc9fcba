// Package timeouts defines shared timeout constants used across the service.
// Per-call budgets live here so the directory fan-out, the store query, and
// the HTTP server agree on the same values.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// DirectoryCall caps one directory list or member-detail request.
const DirectoryCall = 5 * time.Second

// StoreQuery caps one structured record store query.
const StoreQuery = 5 * time.Second

// TokenExchange caps one credential exchange or sign-in link request.
const TokenExchange = 5 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
