package probe

import (
	"context"
	"testing"
	"time"
)

func TestExtractLatency(t *testing.T) {
	cases := []struct {
		name string
		text string
		want float64
		ok   bool
	}{
		{
			name: "linux reply line",
			text: "64 bytes from 1.1.1.1: icmp_seq=0 ttl=56 time=12.3 ms",
			want: 12.3,
			ok:   true,
		},
		{
			name: "windows average",
			text: "Minimum = 10ms, Maximum = 15ms, Average = 12ms",
			want: 12,
			ok:   true,
		},
		{
			name: "unparseable",
			text: "Request timed out.",
			ok:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := extractLatency(tc.text)
			if !tc.ok {
				if got != nil {
					t.Fatalf("expected nil, got %v", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected %v, got nil", tc.want)
			}
			if *got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, *got)
			}
		})
	}
}

func TestExtractHops(t *testing.T) {
	got := extractHops("64 bytes from 1.1.1.1: icmp_seq=0 ttl=56 time=12.3 ms")
	if got == nil || *got != 56 {
		t.Fatalf("expected ttl 56, got %v", got)
	}

	if extractHops("no ttl here") != nil {
		t.Fatal("expected nil when no ttl field present")
	}
}

func TestPingNeverErrors(t *testing.T) {
	// TEST-NET-1 (RFC 5737): guaranteed unreachable, exercises the
	// packet-loss path without depending on real network access.
	result := Ping(context.Background(), "192.0.2.1", 200*time.Millisecond)
	if !result.PacketLoss {
		t.Fatalf("expected packet loss for unreachable test-net address, got %+v", result)
	}
	if result.LatencyMs != nil || result.Hops != nil {
		t.Fatalf("packet-loss result must have nil latency and hops, got %+v", result)
	}
}
