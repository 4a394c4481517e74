// 📁 internal/discovery/udp/scanner_test.go
package udp

import (
	"testing"
)

func TestEnumerateHosts(t *testing.T) {
	hosts, err := enumerateHosts("192.168.1.0/30")
	if err != nil {
		t.Fatalf("enumerateHosts: %v", err)
	}

	want := []string{"192.168.1.1", "192.168.1.2"}
	if len(hosts) != len(want) {
		t.Fatalf("got %d hosts, want %d", len(hosts), len(want))
	}
	for i, host := range hosts {
		if host.String() != want[i] {
			t.Errorf("host[%d] = %s, want %s", i, host, want[i])
		}
	}
}

func TestEnumerateHosts_BadCIDR(t *testing.T) {
	if _, err := enumerateHosts("not-a-network"); err == nil {
		t.Fatal("expected error for malformed CIDR")
	}
}

func TestReplyConfidence(t *testing.T) {
	tests := []struct {
		reply string
		want  float64
	}{
		{"12.5", 0.9},
		{"-13", 0.9},
		{"10 20 30", 0.9},
		{"hello", 0.5},
		{"", 0.3},
	}

	for _, tt := range tests {
		if got := replyConfidence(tt.reply); got != tt.want {
			t.Errorf("replyConfidence(%q) = %v, want %v", tt.reply, got, tt.want)
		}
	}
}
