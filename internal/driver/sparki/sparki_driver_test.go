// internal/driver/sparki/sparki_driver_test.go
package sparki

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"sparki-service/internal/protocol"
	"sparki-service/pkg/driver"
)

// fakeConn is a scripted stand-in for the UDP link. Each sent payload is
// recorded; Receive returns the reply scripted for the last payload sent.
type fakeConn struct {
	sent    []string
	replies map[string]string
	recvErr error
	open    bool
}

func (f *fakeConn) Open(ctx context.Context) error { f.open = true; return nil }
func (f *fakeConn) Close() error                   { f.open = false; return nil }
func (f *fakeConn) IsOpen() bool                   { return f.open }

func (f *fakeConn) Send(ctx context.Context, payload string) error {
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeConn) Receive(ctx context.Context, timeout time.Duration) (string, error) {
	if f.recvErr != nil {
		return "", f.recvErr
	}
	if len(f.sent) == 0 {
		return "", driver.ErrReplyTimeout
	}
	reply, ok := f.replies[f.sent[len(f.sent)-1]]
	if !ok {
		return "", driver.ErrReplyTimeout
	}
	return reply, nil
}

func (f *fakeConn) Reset(ctx context.Context) error { f.open = true; return nil }
func (f *fakeConn) Stats() protocol.ConnectionStats { return protocol.ConnectionStats{} }

// RemoteAddr mirrors the real session: the endpoint resolves on Open
func (f *fakeConn) RemoteAddr() string {
	if !f.open {
		return ""
	}
	return "sparki.local:3141"
}

func testDriver(replies map[string]string) (*SparkiDriver, *fakeConn) {
	conn := &fakeConn{replies: replies, open: true}
	d := newDriverWithConnection(conn, &SparkiConfig{Name: "sparki"}, zap.NewNop())
	d.isConnected = true
	return d, conn
}

func lastSent(t *testing.T, conn *fakeConn) string {
	t.Helper()
	if len(conn.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	return conn.sent[len(conn.sent)-1]
}

func TestMove_KeywordEncoding(t *testing.T) {
	tests := []struct {
		direction string
		want      string
	}{
		{"forward", "V1"},
		{"f", "V1"},
		{"FORWARD", "V1"},
		{"backward", "V-1"},
		{"B", "V-1"},
		{"stop", "V0"},
		{"s", "V0"},
	}

	for _, tt := range tests {
		t.Run(tt.direction, func(t *testing.T) {
			d, conn := testDriver(nil)
			if err := d.Move(context.Background(), tt.direction); err != nil {
				t.Fatalf("Move(%q): %v", tt.direction, err)
			}
			if got := lastSent(t, conn); got != tt.want {
				t.Errorf("Move(%q) sent %q, want %q", tt.direction, got, tt.want)
			}
		})
	}
}

func TestMove_UnknownKeyword(t *testing.T) {
	d, _ := testDriver(nil)
	err := d.Move(context.Background(), "sideways")
	if !errors.Is(err, driver.ErrInvalidParameter) {
		t.Fatalf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestTurn_KeywordEncoding(t *testing.T) {
	tests := []struct {
		direction string
		want      string
	}{
		{"right", "T1"},
		{"R", "T1"},
		{"left", "T-1"},
		{"l", "T-1"},
		{"stop", "T0"},
	}

	for _, tt := range tests {
		d, conn := testDriver(nil)
		if err := d.Turn(context.Background(), tt.direction); err != nil {
			t.Fatalf("Turn(%q): %v", tt.direction, err)
		}
		if got := lastSent(t, conn); got != tt.want {
			t.Errorf("Turn(%q) sent %q, want %q", tt.direction, got, tt.want)
		}
	}
}

func TestGripper_KeywordEncoding(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{"open", "G1"},
		{"o", "G1"},
		{"OPEN", "G1"},
		{"close", "G-1"},
		{"C", "G-1"},
		{"stop", "G0"},
		{"s", "G0"},
	}

	for _, tt := range tests {
		d, conn := testDriver(nil)
		if err := d.Gripper(context.Background(), tt.action); err != nil {
			t.Fatalf("Gripper(%q): %v", tt.action, err)
		}
		if got := lastSent(t, conn); got != tt.want {
			t.Errorf("Gripper(%q) sent %q, want %q", tt.action, got, tt.want)
		}
	}

	d, _ := testDriver(nil)
	if err := d.Gripper(context.Background(), "clench"); !errors.Is(err, driver.ErrInvalidParameter) {
		t.Fatalf("Gripper(clench) err = %v, want ErrInvalidParameter", err)
	}
}

func TestMoveDistance_EncodingAndAck(t *testing.T) {
	d, conn := testDriver(map[string]string{"v5.5": "ACK"})
	if err := d.MoveDistance(context.Background(), 5.5); err != nil {
		t.Fatalf("MoveDistance: %v", err)
	}
	if got := lastSent(t, conn); got != "v5.5" {
		t.Errorf("sent %q, want v5.5", got)
	}

	// Distances are rounded to two decimals with no trailing zeros.
	d, conn = testDriver(map[string]string{"v-2.35": "ACK"})
	if err := d.MoveDistance(context.Background(), -2.34999); err != nil {
		t.Fatalf("MoveDistance: %v", err)
	}
	if got := lastSent(t, conn); got != "v-2.35" {
		t.Errorf("sent %q, want v-2.35", got)
	}
}

func TestTurnAngle_Encoding(t *testing.T) {
	d, conn := testDriver(map[string]string{"t90": "ACK"})
	if err := d.TurnAngle(context.Background(), 90); err != nil {
		t.Fatalf("TurnAngle: %v", err)
	}
	if got := lastSent(t, conn); got != "t90" {
		t.Errorf("sent %q, want t90", got)
	}
}

func TestStop_Encoding(t *testing.T) {
	d, conn := testDriver(nil)
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := lastSent(t, conn); got != "X" {
		t.Errorf("sent %q, want X", got)
	}
}

func TestMotors_ClampingAndOffset(t *testing.T) {
	speed := func(v int) *int { return &v }

	tests := []struct {
		name        string
		left, right *int
		want        string
	}{
		{"in range", speed(50), speed(-30), "m150.70"},
		{"clamped high and low", speed(150), speed(-200), "m200.0"},
		{"at limits", speed(100), speed(-100), "m200.0"},
		{"nil means unspecified", nil, speed(30), "m500.130"},
		{"both nil", nil, nil, "m500.500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, conn := testDriver(nil)
			if err := d.Motors(context.Background(), tt.left, tt.right); err != nil {
				t.Fatalf("Motors: %v", err)
			}
			if got := lastSent(t, conn); got != tt.want {
				t.Errorf("sent %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServo_Encoding(t *testing.T) {
	d, conn := testDriver(nil)
	if err := d.Servo(context.Background(), -45); err != nil {
		t.Fatalf("Servo: %v", err)
	}
	if got := lastSent(t, conn); got != "s-45" {
		t.Errorf("sent %q, want s-45", got)
	}
}

func TestLED_Encoding(t *testing.T) {
	d, conn := testDriver(nil)
	if err := d.LED(context.Background(), []int{255, 0, 128}); err != nil {
		t.Fatalf("LED: %v", err)
	}
	if got := lastSent(t, conn); got != "dr255g0b128" {
		t.Errorf("sent %q, want dr255g0b128", got)
	}

	if err := d.LED(context.Background(), []int{255, 0}); !errors.Is(err, driver.ErrInvalidParameter) {
		t.Fatalf("LED with 2 channels: err = %v, want ErrInvalidParameter", err)
	}
}

func TestBeep_Encoding(t *testing.T) {
	d, conn := testDriver(nil)
	if err := d.Beep(context.Background(), 440, 0.25); err != nil {
		t.Fatalf("Beep: %v", err)
	}
	if got := lastSent(t, conn); got != "e1f440d0.25" {
		t.Errorf("sent %q, want e1f440d0.25", got)
	}

	if err := d.NoBeep(context.Background()); err != nil {
		t.Fatalf("NoBeep: %v", err)
	}
	if got := lastSent(t, conn); got != "e0" {
		t.Errorf("sent %q, want e0", got)
	}
}

func TestSetCommTimeout_Encoding(t *testing.T) {
	d, conn := testDriver(nil)
	if err := d.SetCommTimeout(context.Background(), 0.5); err != nil {
		t.Fatalf("SetCommTimeout: %v", err)
	}
	if got := lastSent(t, conn); got != "i500" {
		t.Errorf("sent %q, want i500", got)
	}

	if err := d.SetCommTimeout(context.Background(), 1.4996); err != nil {
		t.Fatalf("SetCommTimeout: %v", err)
	}
	if got := lastSent(t, conn); got != "i1500" {
		t.Errorf("sent %q, want i1500", got)
	}

	if err := d.SetCommTimeout(context.Background(), 0); !errors.Is(err, driver.ErrInvalidParameter) {
		t.Fatalf("SetCommTimeout(0) err = %v, want ErrInvalidParameter", err)
	}

	// Sub-millisecond values must not slip through as a disabled watchdog
	if err := d.SetCommTimeout(context.Background(), 0.0004); !errors.Is(err, driver.ErrInvalidParameter) {
		t.Fatalf("SetCommTimeout(0.0004) err = %v, want ErrInvalidParameter", err)
	}
}

func TestPing_Decoding(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  float64
	}{
		{"valid", "12.5", 12.5},
		{"negative is no reading", "-3", driver.NoReading},
		{"unparsable is no reading", "junk", driver.NoReading},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := testDriver(map[string]string{"p": tt.reply})
			got, err := d.Ping(context.Background())
			if err != nil {
				t.Fatalf("Ping: %v", err)
			}
			if got != tt.want {
				t.Errorf("Ping = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLidar_Decoding(t *testing.T) {
	d, _ := testDriver(map[string]string{"L": "250"})
	got, err := d.Lidar(context.Background())
	if err != nil {
		t.Fatalf("Lidar: %v", err)
	}
	if got != 25 {
		t.Errorf("Lidar = %v, want 25", got)
	}

	// Raw -13 is the firmware's "sensor never booted" marker.
	d, _ = testDriver(map[string]string{"L": "-13"})
	if _, err := d.Lidar(context.Background()); !errors.Is(err, driver.ErrHardwareNotReady) {
		t.Fatalf("Lidar(-13) err = %v, want ErrHardwareNotReady", err)
	}

	// Any other negative reading degrades to the sentinel.
	d, _ = testDriver(map[string]string{"L": "-50"})
	got, err = d.Lidar(context.Background())
	if err != nil {
		t.Fatalf("Lidar: %v", err)
	}
	if got != driver.NoReading {
		t.Errorf("Lidar = %v, want NoReading", got)
	}

	d, _ = testDriver(map[string]string{"L": "garbage"})
	got, err = d.Lidar(context.Background())
	if err != nil {
		t.Fatalf("Lidar: %v", err)
	}
	if got != driver.NoReading {
		t.Errorf("Lidar = %v, want NoReading", got)
	}
}

func TestLine_Decoding(t *testing.T) {
	d, _ := testDriver(map[string]string{"n": "10 20 30 40 50"})

	asMap, err := d.Line(context.Background())
	if err != nil {
		t.Fatalf("Line: %v", err)
	}
	want := map[string]float64{
		"edge left": 10, "left": 20, "center": 30, "right": 40, "edge right": 50,
	}
	if !reflect.DeepEqual(asMap, want) {
		t.Errorf("Line = %v, want %v", asMap, want)
	}

	asList, err := d.LineValues(context.Background())
	if err != nil {
		t.Fatalf("LineValues: %v", err)
	}
	if !reflect.DeepEqual(asList, []float64{10, 20, 30, 40, 50}) {
		t.Errorf("LineValues = %v", asList)
	}
}

func TestLine_ShortReplyZipsToShorter(t *testing.T) {
	d, _ := testDriver(map[string]string{"n": "10 20"})
	got, err := d.Line(context.Background())
	if err != nil {
		t.Fatalf("Line: %v", err)
	}
	want := map[string]float64{"edge left": 10, "left": 20}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Line = %v, want %v", got, want)
	}
}

func TestLine_MalformedReplyDegradesToZeros(t *testing.T) {
	d, _ := testDriver(map[string]string{"n": "10 oops 30"})
	got, err := d.LineValues(context.Background())
	if err != nil {
		t.Fatalf("LineValues: %v", err)
	}
	if !reflect.DeepEqual(got, make([]float64, 5)) {
		t.Errorf("LineValues = %v, want five zeros", got)
	}
}

func TestLight_Decoding(t *testing.T) {
	d, _ := testDriver(map[string]string{"l": "100 200 300"})
	got, err := d.Light(context.Background())
	if err != nil {
		t.Fatalf("Light: %v", err)
	}
	want := map[string]float64{"left": 100, "center": 200, "right": 300}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Light = %v, want %v", got, want)
	}
}

func TestAccel_MilliScaling(t *testing.T) {
	d, _ := testDriver(map[string]string{"a": "100 -200 1000"})
	got, err := d.Accel(context.Background())
	if err != nil {
		t.Fatalf("Accel: %v", err)
	}
	want := driver.Vector3{X: 0.1, Y: -0.2, Z: 1.0}
	if got != want {
		t.Errorf("Accel = %+v, want %+v", got, want)
	}
}

func TestMag_MilliScaling(t *testing.T) {
	d, _ := testDriver(map[string]string{"c": "1500 0 -500"})
	got, err := d.Mag(context.Background())
	if err != nil {
		t.Fatalf("Mag: %v", err)
	}
	want := driver.Vector3{X: 1.5, Y: 0, Z: -0.5}
	if got != want {
		t.Errorf("Mag = %+v, want %+v", got, want)
	}
}

func TestBattery_Decoding(t *testing.T) {
	d, _ := testDriver(map[string]string{"b": "4.2"})
	got, err := d.Battery(context.Background())
	if err != nil {
		t.Fatalf("Battery: %v", err)
	}
	if got != 4.2 {
		t.Errorf("Battery = %v, want 4.2", got)
	}
}

func TestNACKRejectsCommand(t *testing.T) {
	// NACK anywhere in the reply aborts the call, regardless of the rest.
	replies := []string{"NACK", "error NACK bad checksum", "xNACKx"}
	for _, reply := range replies {
		d, _ := testDriver(map[string]string{"p": reply})
		_, err := d.Ping(context.Background())
		if !errors.Is(err, driver.ErrCommandRejected) {
			t.Errorf("reply %q: err = %v, want ErrCommandRejected", reply, err)
		}
	}
}

func TestTimeoutPropagates(t *testing.T) {
	d, _ := testDriver(nil) // no scripted replies, Receive times out
	_, err := d.Ping(context.Background())
	if !errors.Is(err, driver.ErrReplyTimeout) {
		t.Fatalf("err = %v, want ErrReplyTimeout", err)
	}

	if stats := d.Stats(); stats.CommandCount != 1 {
		t.Errorf("command count = %d, want 1 (timeouts still count)", stats.CommandCount)
	}
}

func TestAckTimeoutScaling(t *testing.T) {
	d, _ := testDriver(nil)

	tests := []struct {
		seconds float64
		want    time.Duration
	}{
		{0.2, time.Second}, // below the floor
		{1.0, time.Second}, // exactly the floor
		{5.0, 5 * time.Second},
		{math.Abs(-30) * 0.05, 1500 * time.Millisecond}, // 30 degree turn
	}

	for _, tt := range tests {
		if got := d.ackTimeout(tt.seconds); got != tt.want {
			t.Errorf("ackTimeout(%v) = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}

func TestConnectHaltsRobot(t *testing.T) {
	conn := &fakeConn{}
	d := newDriverWithConnection(conn, &SparkiConfig{Name: "sparki"}, zap.NewNop())

	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !d.IsConnected() {
		t.Fatal("driver should be connected")
	}
	if got := lastSent(t, conn); got != "X" {
		t.Errorf("connect sent %q, want the halt command X", got)
	}

	if err := d.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if d.IsConnected() {
		t.Fatal("driver should be disconnected")
	}
}

func TestConnectResolvesAddress(t *testing.T) {
	conn := &fakeConn{}
	d := newDriverWithConnection(conn, &SparkiConfig{Name: "sparki"}, zap.NewNop())

	if addr := d.GetRobotInfo().Address; addr != "" {
		t.Fatalf("address before connect = %q, want empty", addr)
	}

	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if addr := d.GetRobotInfo().Address; addr != "sparki.local:3141" {
		t.Errorf("address after connect = %q, want sparki.local:3141", addr)
	}
}
