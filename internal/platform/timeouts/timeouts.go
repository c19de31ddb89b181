// Package timeouts defines shared timeout constants used by the service.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight work during graceful
// shutdown.
const Shutdown = 5 * time.Second

// StorageRequest caps a single storage round trip made on behalf of a
// request.
const StorageRequest = 3 * time.Second

// ExternalLookup caps one call to the nutrition lookup provider.
const ExternalLookup = 8 * time.Second

// StreamPing is the interval between keepalive frames on reward streams.
const StreamPing = 25 * time.Second
