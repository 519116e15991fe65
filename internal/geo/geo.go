// Package geo provides best-effort IP geolocation for monitor targets,
// backed by a local MaxMind GeoLite2-City database. A missing or unreadable
// database degrades to every lookup reporting ErrUnavailable; callers must
// treat annotation as optional and never fail target creation on it.
package geo

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnavailable is returned when no database is loaded.
var ErrUnavailable = errors.New("geo: database not loaded")

// Annotation is the subset of a GeoIP City lookup stored on a target.
type Annotation struct {
	CountryCode string
	CountryName string
	City        string
	Latitude    float64
	Longitude   float64
}

// Service resolves IP addresses to Annotations. The zero value is usable and
// behaves as if no database were configured.
type Service struct {
	mu     sync.RWMutex
	reader *geoip2.Reader
}

var instance Service

// Shared returns the process-wide geo service. It is a singleton because the
// mmdb reader is an expensive, read-only, memory-mapped resource meant to be
// opened once and shared by every target lookup — the same shape as the
// teacher's GeoIP service.
func Shared() *Service {
	return &instance
}

// Load opens the GeoLite2-City database at path. Called once at startup;
// a failure here is logged by the caller and left non-fatal, per spec.
func (s *Service) Load(path string) error {
	reader, err := geoip2.Open(path)
	if err != nil {
		return fmt.Errorf("geo: open %s: %w", path, err)
	}

	s.mu.Lock()
	if s.reader != nil {
		s.reader.Close()
	}
	s.reader = reader
	s.mu.Unlock()
	return nil
}

// Close releases the underlying database, if one is loaded.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader != nil {
		s.reader.Close()
		s.reader = nil
	}
}

// Lookup resolves ip to an Annotation. Returns ErrUnavailable if no database
// is loaded, or an error if ip does not parse or has no City record.
func (s *Service) Lookup(ipStr string) (Annotation, error) {
	s.mu.RLock()
	reader := s.reader
	s.mu.RUnlock()
	if reader == nil {
		return Annotation{}, ErrUnavailable
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return Annotation{}, fmt.Errorf("geo: invalid ip %q", ipStr)
	}

	city, err := reader.City(ip)
	if err != nil {
		return Annotation{}, fmt.Errorf("geo: lookup %s: %w", ipStr, err)
	}
	if city.Country.IsoCode == "" {
		return Annotation{}, fmt.Errorf("geo: no record for %s", ipStr)
	}

	ann := Annotation{
		CountryCode: city.Country.IsoCode,
		CountryName: city.Country.Names["en"],
		Latitude:    city.Location.Latitude,
		Longitude:   city.Location.Longitude,
	}
	if len(city.City.Names) > 0 {
		ann.City = city.City.Names["en"]
	}
	return ann, nil
}
