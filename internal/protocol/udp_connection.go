// internal/protocol/udp_connection.go
package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sparki-service/pkg/driver"
)

// UDPConfig represents the robot datagram endpoint
type UDPConfig struct {
	// Name is an mDNS host name; ".local" is appended when missing. Either
	// Name or IP must be set.
	Name string
	IP   string
	Port int

	MaxPacketSize int

	// FaultThreshold: when the average interval between receive timeouts
	// drops below this, the link is declared dead.
	FaultThreshold time.Duration
}

// host returns the host to resolve, preferring a literal IP
func (c *UDPConfig) host() string {
	if c.IP != "" {
		return c.IP
	}
	name := c.Name
	if !strings.Contains(name, ".local") {
		name += ".local"
	}
	return name
}

// UDPConnection implements Connection over a single UDP socket
type UDPConnection struct {
	config *UDPConfig
	conn   *net.UDPConn
	addr   *net.UDPAddr
	logger *zap.Logger
	mutex  sync.Mutex
	isOpen bool

	// faulted latches after too-frequent timeouts; only Reset clears it
	faulted     bool
	timeouts    *TimeoutRing
	lastTimeout time.Time

	stats ConnectionStats
}

// NewUDPConnection creates a UDP connection for the given endpoint. An
// endpoint with neither a name nor an IP is a configuration error.
func NewUDPConnection(config *UDPConfig, logger *zap.Logger) (*UDPConnection, error) {
	if config.Name == "" && config.IP == "" {
		return nil, fmt.Errorf("%w: need a host name or an IP", driver.ErrConfiguration)
	}
	if config.Port <= 0 {
		return nil, fmt.Errorf("%w: port %d", driver.ErrConfiguration, config.Port)
	}
	if config.MaxPacketSize <= 0 {
		config.MaxPacketSize = 300
	}
	if config.FaultThreshold <= 0 {
		config.FaultThreshold = 100 * time.Millisecond
	}

	return &UDPConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "udp"),
			zap.String("host", config.host()),
			zap.Int("port", config.Port),
		),
		timeouts: NewTimeoutRing(timeoutRingSize),
	}, nil
}

// Open resolves the endpoint and binds the socket
func (uc *UDPConnection) Open(ctx context.Context) error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if uc.isOpen {
		return nil
	}

	endpoint := net.JoinHostPort(uc.config.host(), strconv.Itoa(uc.config.Port))
	uc.logger.Info("Opening UDP session", zap.String("endpoint", endpoint))

	addr, err := net.ResolveUDPAddr("udp", endpoint)
	if err != nil {
		uc.logger.Error("Failed to resolve robot endpoint", zap.Error(err))
		return fmt.Errorf("%w: cannot resolve %q: %v", driver.ErrConfiguration, endpoint, err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		uc.logger.Error("Failed to open UDP socket", zap.Error(err))
		return fmt.Errorf("failed to open UDP socket to %s: %w", addr, err)
	}

	uc.conn = conn
	uc.addr = addr
	uc.isOpen = true
	uc.faulted = false
	uc.lastTimeout = time.Now()
	uc.stats.IsConnected = true
	uc.stats.Faulted = false
	uc.stats.LastActivity = time.Now()

	uc.logger.Info("UDP session opened", zap.String("address", addr.String()))
	return nil
}

// Close releases the socket. Safe to call on a closed connection.
func (uc *UDPConnection) Close() error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if !uc.isOpen || uc.conn == nil {
		return nil
	}

	if err := uc.conn.Close(); err != nil {
		uc.logger.Error("Failed to close UDP socket", zap.Error(err))
		return fmt.Errorf("failed to close UDP socket: %w", err)
	}

	uc.conn = nil
	uc.isOpen = false
	uc.stats.IsConnected = false

	uc.logger.Info("UDP session closed")
	return nil
}

// IsOpen returns whether the connection is open
func (uc *UDPConnection) IsOpen() bool {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()
	return uc.isOpen && uc.conn != nil
}

// Send transmits one datagram, fire-and-forget
func (uc *UDPConnection) Send(ctx context.Context, payload string) error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if !uc.isOpen || uc.conn == nil {
		return fmt.Errorf("UDP session not open")
	}
	if uc.faulted {
		return fmt.Errorf("send %q: %w", payload, driver.ErrLinkFault)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	n, err := uc.conn.Write([]byte(payload))
	if err != nil {
		uc.stats.ErrorCount++
		uc.logger.Error("UDP send failed", zap.Error(err))
		return fmt.Errorf("failed to send datagram: %w", err)
	}

	uc.stats.BytesWritten += int64(n)
	uc.stats.PacketsSent++
	uc.stats.LastActivity = time.Now()

	uc.logger.Debug("Datagram sent", zap.String("payload", payload))
	return nil
}

// Receive waits for the next datagram, bounded by timeout. Cancellation
// mid-call is not supported; the deadline is the only bail-out.
func (uc *UDPConnection) Receive(ctx context.Context, timeout time.Duration) (string, error) {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if !uc.isOpen || uc.conn == nil {
		return "", fmt.Errorf("UDP session not open")
	}
	if uc.faulted {
		return "", fmt.Errorf("receive: %w", driver.ErrLinkFault)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	// A fresh deadline per call; it replaces whatever was set before.
	if err := uc.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", fmt.Errorf("failed to set read deadline: %w", err)
	}

	uc.logger.Debug("Waiting to receive", zap.Duration("timeout", timeout))

	buffer := make([]byte, uc.config.MaxPacketSize)
	n, err := uc.conn.Read(buffer)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return "", uc.recordTimeout(timeout)
		}
		uc.stats.ErrorCount++
		return "", fmt.Errorf("failed to read datagram: %w", err)
	}

	uc.stats.BytesRead += int64(n)
	uc.stats.PacketsReceived++
	uc.stats.LastActivity = time.Now()

	text := string(buffer[:n])
	uc.logger.Debug("Datagram received", zap.String("payload", text))
	return text, nil
}

// recordTimeout feeds the inter-timeout interval into the ring and decides
// between an ordinary timeout and a link fault. Caller holds the mutex.
func (uc *UDPConnection) recordTimeout(timeout time.Duration) error {
	now := time.Now()
	uc.timeouts.Record(now.Sub(uc.lastTimeout).Seconds())
	uc.lastTimeout = now
	uc.stats.TimeoutCount++

	period := uc.timeouts.Average()
	uc.logger.Error("Receive timed out",
		zap.Duration("timeout", timeout),
		zap.Float64("avg_timeout_interval_s", period),
	)

	if period < uc.config.FaultThreshold.Seconds() {
		uc.faulted = true
		uc.stats.Faulted = true
		return fmt.Errorf("timeouts every %.3fs on average: %w", period, driver.ErrLinkFault)
	}

	return driver.ErrReplyTimeout
}

// Reset reopens the link and clears the timeout history
func (uc *UDPConnection) Reset(ctx context.Context) error {
	if err := uc.Close(); err != nil {
		return err
	}

	uc.mutex.Lock()
	uc.timeouts.Reset()
	uc.faulted = false
	uc.stats.Faulted = false
	uc.mutex.Unlock()

	return uc.Open(ctx)
}

// Stats returns a snapshot of the link statistics
func (uc *UDPConnection) Stats() ConnectionStats {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	stats := uc.stats
	stats.TimeoutAverage = uc.timeouts.Average()
	return stats
}

// RemoteAddr returns the resolved robot address, empty before Open
func (uc *UDPConnection) RemoteAddr() string {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if uc.addr == nil {
		return ""
	}
	return uc.addr.String()
}
