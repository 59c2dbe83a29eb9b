// Package geo resolves addresses and coordinates through an external
// geocoding service.
package geo

import (
	"context"
	"fmt"
	"net/url"

	"github.com/DukeRupert/aidnexus/internal/domain"
)

// Geocoder maps addresses to coordinates and back. Implementations never
// return errors: a failed or timed-out lookup reports false.
type Geocoder interface {
	GeocodeAddress(ctx context.Context, address string) (domain.Coordinates, bool)
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, bool)
}

const navigationBaseURL = "https://www.google.com/maps/dir/"

// NavigationURL returns a Google Maps directions link to the given point.
// When name is set it is passed as the search query so the destination is
// labeled.
func NavigationURL(lat, lon float64, name string) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("destination", fmt.Sprintf("%g,%g", lat, lon))
	if name != "" {
		q.Set("q", name)
	}
	return navigationBaseURL + "?" + q.Encode()
}

// WithNavigation pairs a facility with its directions link. Facilities
// without coordinates get an empty link.
type WithNavigation struct {
	domain.Facility
	NavigationURL string `json:"navigation_url,omitempty"`
}

// AttachNavigation returns facilities annotated with directions links.
func AttachNavigation(facilities []domain.Facility) []WithNavigation {
	out := make([]WithNavigation, len(facilities))
	for i, f := range facilities {
		out[i] = WithNavigation{Facility: f}
		if f.Coordinates != nil {
			out[i].NavigationURL = NavigationURL(f.Coordinates.Lat, f.Coordinates.Lon, f.Name)
		}
	}
	return out
}
