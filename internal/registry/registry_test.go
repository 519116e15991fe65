package registry

import "testing"

func TestValidateIP(t *testing.T) {
	if err := validateIP("203.0.113.5"); err != nil {
		t.Fatalf("expected valid IPv4 to pass, got %v", err)
	}
	if err := validateIP("2001:db8::1"); err != nil {
		t.Fatalf("expected valid IPv6 to pass, got %v", err)
	}
	if err := validateIP("not-an-ip"); err == nil {
		t.Fatalf("expected invalid IP to fail")
	}
}

func TestValidateFrequency(t *testing.T) {
	if err := validateFrequency(1); err != nil {
		t.Fatalf("expected 1s frequency to pass, got %v", err)
	}
	if err := validateFrequency(0); err == nil {
		t.Fatalf("expected zero frequency to fail")
	}
	if err := validateFrequency(-5); err == nil {
		t.Fatalf("expected negative frequency to fail")
	}
}

func TestAnnFieldSkipsEmptyOrMissing(t *testing.T) {
	if got := annField(false, "US"); got != nil {
		t.Fatalf("expected nil when annotation absent, got %v", got)
	}
	if got := annField(true, ""); got != nil {
		t.Fatalf("expected nil for empty string, got %v", got)
	}
	got := annField(true, "US")
	if got == nil || *got != "US" {
		t.Fatalf("expected \"US\", got %v", got)
	}
}
