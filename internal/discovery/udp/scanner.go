// 📁 internal/discovery/udp/scanner.go - UDP Network Scanner Implementation
package udp

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"sparki-service/internal/discovery"
	"sparki-service/internal/model"
)

// Scanner implements UDP robot discovery. It sweeps the configured network
// ranges with a ping query datagram and records every endpoint that answers
// with numeric text.
type Scanner struct {
	logger *zap.Logger
	config *Config
}

// Config for UDP scanner
type Config struct {
	ScanTimeout   time.Duration `json:"scan_timeout"`
	NetworkRanges []string      `json:"network_ranges"`
	RobotPort     int           `json:"robot_port"`
	ProbePayload  string        `json:"probe_payload"`
}

// NewScanner creates a new UDP scanner
func NewScanner(logger *zap.Logger, config *Config) *Scanner {
	if config == nil {
		config = &Config{}
	}
	if config.ScanTimeout <= 0 {
		config.ScanTimeout = 3 * time.Second
	}
	if len(config.NetworkRanges) == 0 {
		config.NetworkRanges = []string{"192.168.1.0/24"}
	}
	if config.RobotPort <= 0 {
		config.RobotPort = 3141
	}
	if config.ProbePayload == "" {
		config.ProbePayload = "p"
	}

	return &Scanner{
		logger: logger.With(zap.String("scanner", "udp")),
		config: config,
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "udp"
}

// IsAvailable checks if UDP scanning is available
func (s *Scanner) IsAvailable() bool {
	return true
}

// Scan probes every host in the configured ranges and collects replies until
// the scan timeout elapses
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredRobot, error) {
	s.logger.Info("Starting UDP robot scan",
		zap.Strings("ranges", s.config.NetworkRanges),
		zap.Int("port", s.config.RobotPort),
	)

	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("failed to open scan socket: %w", err)
	}
	defer conn.Close()

	sentAt := make(map[string]time.Time)
	for _, cidr := range s.config.NetworkRanges {
		hosts, err := enumerateHosts(cidr)
		if err != nil {
			s.logger.Warn("Skipping unparsable network range",
				zap.String("range", cidr),
				zap.Error(err),
			)
			continue
		}

		for _, host := range hosts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			addr := &net.UDPAddr{IP: host, Port: s.config.RobotPort}
			if _, err := conn.WriteTo([]byte(s.config.ProbePayload), addr); err != nil {
				continue
			}
			sentAt[addr.IP.String()] = time.Now()
		}
	}

	deadline := time.Now().Add(s.config.ScanTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetReadDeadline(deadline)

	var discovered []*discovery.DiscoveredRobot
	seen := make(map[string]bool)
	buf := make([]byte, 512)

	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			break // deadline reached
		}

		udpAddr, ok := from.(*net.UDPAddr)
		if !ok {
			continue
		}
		ip := udpAddr.IP.String()
		if seen[ip] {
			continue
		}
		seen[ip] = true

		reply := strings.TrimSpace(string(buf[:n]))
		robot := &discovery.DiscoveredRobot{
			IP:         ip,
			Port:       udpAddr.Port,
			Model:      model.RobotModelSparki,
			Reply:      reply,
			Confidence: replyConfidence(reply),
		}
		if probed, ok := sentAt[ip]; ok {
			robot.LatencyMs = float64(time.Since(probed)) / float64(time.Millisecond)
		}
		discovered = append(discovered, robot)
	}

	s.logger.Info("UDP scan completed", zap.Int("robots_found", len(discovered)))
	return discovered, nil
}

// replyConfidence scores how much a reply looks like a Sparki ping response.
// A plain number is what the firmware sends; anything else still answered on
// the robot port, so it is not discounted entirely.
func replyConfidence(reply string) float64 {
	if reply == "" {
		return 0.3
	}
	for _, r := range reply {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != ' ' {
			return 0.5
		}
	}
	return 0.9
}

// enumerateHosts expands a CIDR into its host addresses, excluding the
// network and broadcast addresses
func enumerateHosts(cidr string) ([]net.IP, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}

	var hosts []net.IP
	for addr := ip.Mask(ipnet.Mask); ipnet.Contains(addr); addr = nextIP(addr) {
		hosts = append(hosts, addr)
	}

	if len(hosts) > 2 {
		hosts = hosts[1 : len(hosts)-1]
	}
	return hosts, nil
}

func nextIP(ip net.IP) net.IP {
	next := make(net.IP, len(ip))
	copy(next, ip)
	for i := len(next) - 1; i >= 0; i-- {
		next[i]++
		if next[i] != 0 {
			break
		}
	}
	return next
}
