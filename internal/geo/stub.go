package geo

import (
	"context"
	"strings"
	"sync"

	"github.com/DukeRupert/aidnexus/internal/domain"
)

// Stub is an in-memory Geocoder for tests and offline use. Lookups are
// case-insensitive on the trimmed address.
type Stub struct {
	mu        sync.Mutex
	addresses map[string]domain.Coordinates

	// ReverseAddress is returned by every ReverseGeocode call when set.
	ReverseAddress string

	// Call tracking for testing
	GeocodeCalls int
	ReverseCalls int
}

// NewStub creates a stub that resolves the given addresses.
func NewStub(addresses map[string]domain.Coordinates) *Stub {
	s := &Stub{addresses: make(map[string]domain.Coordinates, len(addresses))}
	for addr, c := range addresses {
		s.addresses[stubKey(addr)] = c
	}
	return s
}

// GeocodeAddress implements Geocoder.
func (s *Stub) GeocodeAddress(ctx context.Context, address string) (domain.Coordinates, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GeocodeCalls++
	c, ok := s.addresses[stubKey(address)]
	return c, ok
}

// ReverseGeocode implements Geocoder.
func (s *Stub) ReverseGeocode(ctx context.Context, lat, lon float64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReverseCalls++
	return s.ReverseAddress, s.ReverseAddress != ""
}

func stubKey(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
