package protocol

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"sparki-service/pkg/driver"
)

// fakeRobot is a loopback UDP endpoint standing in for the ESP32 bridge.
// The handler receives each datagram and returns the reply to send, or ""
// to stay silent.
func fakeRobot(t *testing.T, handler func(msg string) string) *net.UDPAddr {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { pc.Close() })

	go func() {
		buf := make([]byte, 512)
		for {
			n, addr, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			if reply := handler(string(buf[:n])); reply != "" {
				pc.WriteTo([]byte(reply), addr)
			}
		}
	}()

	return pc.LocalAddr().(*net.UDPAddr)
}

func testConnection(t *testing.T, addr *net.UDPAddr) *UDPConnection {
	t.Helper()

	conn, err := NewUDPConnection(&UDPConfig{
		IP:   "127.0.0.1",
		Port: addr.Port,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	if err := conn.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestNewUDPConnection_RequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := NewUDPConnection(&UDPConfig{Port: 3141}, zap.NewNop())
	if !errors.Is(err, driver.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestUDPConfig_HostAppendsLocal(t *testing.T) {
	t.Parallel()

	cfg := &UDPConfig{Name: "sparki"}
	if got := cfg.host(); got != "sparki.local" {
		t.Fatalf("host = %q, want sparki.local", got)
	}

	cfg = &UDPConfig{Name: "sparki.local"}
	if got := cfg.host(); got != "sparki.local" {
		t.Fatalf("host = %q, want sparki.local", got)
	}

	// A literal IP wins over the name.
	cfg = &UDPConfig{Name: "sparki", IP: "10.0.0.7"}
	if got := cfg.host(); got != "10.0.0.7" {
		t.Fatalf("host = %q, want 10.0.0.7", got)
	}
}

func TestUDPConnection_SendReceive(t *testing.T) {
	t.Parallel()

	addr := fakeRobot(t, func(msg string) string {
		if strings.HasPrefix(msg, "p") {
			return "12.5"
		}
		return "ACK"
	})
	conn := testConnection(t, addr)

	ctx := context.Background()
	if err := conn.Send(ctx, "p"); err != nil {
		t.Fatalf("send: %v", err)
	}
	reply, err := conn.Receive(ctx, time.Second)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if reply != "12.5" {
		t.Fatalf("reply = %q, want 12.5", reply)
	}

	stats := conn.Stats()
	if stats.PacketsSent != 1 || stats.PacketsReceived != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.TimeoutAverage != 100 {
		t.Fatalf("timeout average = %v, want sentinel 100", stats.TimeoutAverage)
	}
}

func TestUDPConnection_SingleTimeoutIsRecoverable(t *testing.T) {
	t.Parallel()

	addr := fakeRobot(t, func(string) string { return "" }) // silent robot
	conn := testConnection(t, addr)

	ctx := context.Background()

	// Make the first inter-timeout interval comfortably wide so one miss
	// cannot look like a timeout storm.
	time.Sleep(150 * time.Millisecond)

	if err := conn.Send(ctx, "p"); err != nil {
		t.Fatalf("send: %v", err)
	}
	_, err := conn.Receive(ctx, 20*time.Millisecond)
	if !errors.Is(err, driver.ErrReplyTimeout) {
		t.Fatalf("err = %v, want ErrReplyTimeout", err)
	}
	if errors.Is(err, driver.ErrLinkFault) {
		t.Fatal("single timeout must not be a link fault")
	}

	if got := conn.Stats().TimeoutCount; got != 1 {
		t.Fatalf("timeout count = %d, want 1", got)
	}
}

func TestUDPConnection_RapidTimeoutsLatchFault(t *testing.T) {
	t.Parallel()

	addr := fakeRobot(t, func(string) string { return "" })
	conn := testConnection(t, addr)

	ctx := context.Background()
	time.Sleep(150 * time.Millisecond)

	var err error
	faulted := false
	for i := 0; i < 10; i++ {
		_, err = conn.Receive(ctx, 20*time.Millisecond)
		if i == 0 && !errors.Is(err, driver.ErrReplyTimeout) {
			t.Fatalf("first miss: err = %v, want ErrReplyTimeout", err)
		}
		if errors.Is(err, driver.ErrLinkFault) {
			faulted = true
			break
		}
	}
	if !faulted {
		t.Fatalf("no link fault after 10 rapid timeouts, last err = %v", err)
	}

	// Faulted is terminal: the next calls fail immediately.
	if _, err := conn.Receive(ctx, time.Second); !errors.Is(err, driver.ErrLinkFault) {
		t.Fatalf("receive after fault: err = %v, want ErrLinkFault", err)
	}
	if err := conn.Send(ctx, "X"); !errors.Is(err, driver.ErrLinkFault) {
		t.Fatalf("send after fault: err = %v, want ErrLinkFault", err)
	}
	if !conn.Stats().Faulted {
		t.Fatal("stats should report the faulted state")
	}

	// Reset clears the history and reopens the link.
	if err := conn.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if _, err := conn.Receive(ctx, 20*time.Millisecond); !errors.Is(err, driver.ErrReplyTimeout) {
		t.Fatalf("receive after reset: err = %v, want ErrReplyTimeout", err)
	}
}

func TestUDPConnection_SendOnClosedSessionFails(t *testing.T) {
	t.Parallel()

	conn, err := NewUDPConnection(&UDPConfig{IP: "127.0.0.1", Port: 3141}, zap.NewNop())
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	if err := conn.Send(context.Background(), "X"); err == nil {
		t.Fatal("send on a session that was never opened must fail")
	}
}
