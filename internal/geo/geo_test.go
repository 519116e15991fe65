package geo

import "testing"

func TestLookupWithoutDatabaseReportsUnavailable(t *testing.T) {
	var s Service
	_, err := s.Lookup("8.8.8.8")
	if err != ErrUnavailable {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestLookupWithNilReaderReportsUnavailable(t *testing.T) {
	var s Service
	s.reader = nil // still unloaded; the unavailable check runs before IP parsing
	if _, err := s.Lookup("8.8.8.8"); err != ErrUnavailable {
		t.Fatalf("expected ErrUnavailable before any database is loaded, got %v", err)
	}
}
