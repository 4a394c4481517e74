// internal/protocol/protocol.go
package protocol

import (
	"context"
	"time"
)

// Connection is a datagram link to a robot bridge. The protocol on top is
// strictly synchronous: one request outstanding at a time, replies matched
// to requests purely by temporal adjacency.
type Connection interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Send transmits one datagram, fire-and-forget.
	Send(ctx context.Context, payload string) error

	// Receive waits for the next datagram, bounded by timeout. The timeout
	// replaces any previously set deadline. A single missed reply returns
	// driver.ErrReplyTimeout; timeouts arriving too frequently latch the
	// connection faulted and return driver.ErrLinkFault instead.
	Receive(ctx context.Context, timeout time.Duration) (string, error)

	// Reset reopens the link after a fault and clears the timeout history.
	Reset(ctx context.Context) error

	// Diagnostics
	Stats() ConnectionStats
	RemoteAddr() string
}

// ConnectionStats provides link-level statistics
type ConnectionStats struct {
	BytesWritten    int64     `json:"bytes_written"`
	BytesRead       int64     `json:"bytes_read"`
	PacketsSent     int64     `json:"packets_sent"`
	PacketsReceived int64     `json:"packets_received"`
	TimeoutCount    int64     `json:"timeout_count"`
	ErrorCount      int64     `json:"error_count"`
	LastActivity    time.Time `json:"last_activity"`
	// TimeoutAverage is the mean interval between recent timeouts in
	// seconds, 100 when no timeout has been seen yet.
	TimeoutAverage float64 `json:"timeout_average"`
	IsConnected    bool    `json:"is_connected"`
	Faulted        bool    `json:"faulted"`
}
