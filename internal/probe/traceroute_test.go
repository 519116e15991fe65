package probe

import "testing"

func TestParseTraceOutputLinux(t *testing.T) {
	output := []byte(
		"traceroute to 1.1.1.1 (1.1.1.1), 30 hops max\n" +
			" 1  router.local (192.168.1.1)  1.234 ms\n" +
			" 2  * * *\n" +
			" 3  10.0.0.1 (10.0.0.1)  15.678 ms\n",
	)

	hops := parseTraceOutput(output)
	if len(hops) != 3 {
		t.Fatalf("expected 3 hops, got %d: %+v", len(hops), hops)
	}

	if hops[0].IsTimeout {
		t.Fatal("hop 1 should not be a timeout")
	}
	if hops[0].Host == nil || *hops[0].Host != "router.local" {
		t.Fatalf("expected host router.local, got %v", hops[0].Host)
	}
	if hops[0].IP == nil || *hops[0].IP != "192.168.1.1" {
		t.Fatalf("expected ip 192.168.1.1, got %v", hops[0].IP)
	}
	if hops[0].RTTMs == nil || *hops[0].RTTMs != 1.234 {
		t.Fatalf("expected rtt 1.234, got %v", hops[0].RTTMs)
	}

	if !hops[1].IsTimeout {
		t.Fatalf("hop 2 should be a timeout, got %+v", hops[1])
	}
	if hops[1].Host != nil || hops[1].IP != nil || hops[1].RTTMs != nil {
		t.Fatalf("timeout hop must have nil fields, got %+v", hops[1])
	}

	if hops[2].Hop != 3 {
		t.Fatalf("expected hop number 3, got %d", hops[2].Hop)
	}
}

func TestParseHopFieldsBareIP(t *testing.T) {
	hop := parseHopFields(1, "10.0.0.1  2.5 ms")
	if hop.IP == nil || *hop.IP != "10.0.0.1" {
		t.Fatalf("expected bare ip parsed, got %+v", hop)
	}
	if hop.RTTMs == nil || *hop.RTTMs != 2.5 {
		t.Fatalf("expected rtt 2.5, got %v", hop.RTTMs)
	}
}
