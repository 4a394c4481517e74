// internal/driver/sparki/sparki_helper.go
package sparki

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"sparki-service/pkg/driver"
)

// Helper methods for the Sparki driver

// fire sends a command without waiting for a reply
func (d *SparkiDriver) fire(ctx context.Context, kind, msg string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	start := time.Now()
	err := d.conn.Send(ctx, msg)
	d.logger.LogCommand(kind, msg, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}

// execute sends a command and waits for the reply, bounded by timeout. The
// round trip is accumulated into the command statistics. A reply containing
// the NACK token means the robot refused the command.
func (d *SparkiDriver) execute(ctx context.Context, kind, msg string, timeout time.Duration) (string, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	start := time.Now()
	reply, err := d.transact(ctx, msg, timeout)
	elapsed := time.Since(start)

	d.commandCount++
	d.commandTime += elapsed
	d.logger.LogCommand(kind, msg, elapsed, err)

	if err != nil {
		return "", fmt.Errorf("%s: %w", kind, err)
	}
	return reply, nil
}

func (d *SparkiDriver) transact(ctx context.Context, msg string, timeout time.Duration) (string, error) {
	if err := d.conn.Send(ctx, msg); err != nil {
		return "", err
	}

	reply, err := d.conn.Receive(ctx, timeout)
	if err != nil {
		return "", err
	}
	if strings.Contains(reply, "NACK") {
		return "", fmt.Errorf("%w: try resetting the robot", driver.ErrCommandRejected)
	}
	return reply, nil
}

// queryVector sends a sensor query and parses a whitespace-separated numeric
// reply. A malformed reply degrades to a zero vector of the expected width,
// logged but not failed, so the robot stays controllable over a noisy link.
func (d *SparkiDriver) queryVector(ctx context.Context, kind, query string, timeout time.Duration, width int) ([]float64, error) {
	reply, err := d.execute(ctx, kind, query, timeout)
	if err != nil {
		return nil, err
	}

	fields := strings.Fields(reply)
	values := make([]float64, 0, len(fields))
	for _, field := range fields {
		v, perr := strconv.ParseFloat(field, 64)
		if perr != nil {
			d.logger.Warn("Malformed sensor vector reply",
				zap.String("sensor", kind),
				zap.String("reply", reply),
			)
			return make([]float64, width), nil
		}
		values = append(values, v)
	}
	return values, nil
}

// ackTimeout scales the acknowledgement wait with the commanded magnitude,
// never below the configured floor
func (d *SparkiDriver) ackTimeout(seconds float64) time.Duration {
	floor := d.config.AckTimeout
	if floor <= 0 {
		floor = time.Second
	}

	scaled := time.Duration(seconds * float64(time.Second))
	if scaled < floor {
		return floor
	}
	return scaled
}

// queryTimeout returns the configured per-sensor reply timeout, or the
// sensor's default when unconfigured
func (d *SparkiDriver) queryTimeout(configured, fallback time.Duration) time.Duration {
	if configured > 0 {
		return configured
	}
	return fallback
}

// encodeMotorSpeed clamps a speed to [-100, 100] and applies the +100 wire
// offset. A nil speed encodes the firmware's unspecified marker instead, which
// is deliberately not clamped.
func encodeMotorSpeed(speed *int) string {
	if speed == nil {
		return strconv.Itoa(motorUnspecified + 100)
	}

	v := *speed
	if v < -100 {
		v = -100
	} else if v > 100 {
		v = 100
	}
	return strconv.Itoa(v + 100)
}

// zipLabels pairs position names with parsed values, truncated to the shorter
// of the two
func zipLabels(labels []string, values []float64) map[string]float64 {
	n := len(labels)
	if len(values) < n {
		n = len(values)
	}

	out := make(map[string]float64, n)
	for i := 0; i < n; i++ {
		out[labels[i]] = values[i]
	}
	return out
}

// toVector3 scales a milli-unit sensor vector to whole units
func toVector3(values []float64) driver.Vector3 {
	var v driver.Vector3
	if len(values) > 0 {
		v.X = values[0] / 1000.0
	}
	if len(values) > 1 {
		v.Y = values[1] / 1000.0
	}
	if len(values) > 2 {
		v.Z = values[2] / 1000.0
	}
	return v
}

// formatNumber renders a distance or angle rounded to two decimals, with no
// trailing zeros
func formatNumber(v float64) string {
	rounded := math.Round(v*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

// formatDuration renders a beep duration rounded to three decimals
func formatDuration(v float64) string {
	rounded := math.Round(v*1000) / 1000
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
