// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between the authority and its
// peers and makes the durations discoverable.
package timeouts

import "time"

// RelayDial caps the wait time when a peer dials the authority.
const RelayDial = 2 * time.Second

// RelayAck caps the time a peer waits for the authority to acknowledge one
// relayed command.
const RelayAck = 10 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
