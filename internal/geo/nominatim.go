package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DukeRupert/aidnexus/internal/domain"
	"github.com/DukeRupert/aidnexus/internal/metrics"
)

const (
	// DefaultBaseURL is the public OpenStreetMap Nominatim endpoint.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultUserAgent identifies the application, as Nominatim's usage
	// policy requires.
	DefaultUserAgent = "AidNexus/1.0"

	// DefaultTimeout bounds each lookup.
	DefaultTimeout = 5 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// Config contains configuration for the Nominatim client.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Nominatim is a Geocoder backed by the OpenStreetMap Nominatim API.
type Nominatim struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// NewNominatim creates a Nominatim client, filling unset config with defaults.
func NewNominatim(config Config, logger *slog.Logger) *Nominatim {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &Nominatim{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type reverseResult struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// GeocodeAddress returns the coordinates of the best match for address.
func (n *Nominatim) GeocodeAddress(ctx context.Context, address string) (domain.Coordinates, bool) {
	const op = "search"

	address = strings.TrimSpace(address)
	if address == "" {
		return domain.Coordinates{}, false
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	var results []searchResult
	if err := n.get(ctx, "/search", q, &results); err != nil {
		n.logger.Warn("geocode failed", "address", address, "error", err)
		metrics.GeocodeError(op)
		return domain.Coordinates{}, false
	}
	if len(results) == 0 {
		metrics.GeocodeMiss(op)
		return domain.Coordinates{}, false
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
	coords := domain.Coordinates{Lat: lat, Lon: lon}
	if errLat != nil || errLon != nil || !coords.Valid() {
		n.logger.Warn("geocode returned unusable coordinates", "address", address, "lat", results[0].Lat, "lon", results[0].Lon)
		metrics.GeocodeError(op)
		return domain.Coordinates{}, false
	}

	metrics.GeocodeHit(op)
	return coords, true
}

// ReverseGeocode returns a display address for the given point.
func (n *Nominatim) ReverseGeocode(ctx context.Context, lat, lon float64) (string, bool) {
	const op = "reverse"

	if !(domain.Coordinates{Lat: lat, Lon: lon}).Valid() {
		return "", false
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")

	var result reverseResult
	if err := n.get(ctx, "/reverse", q, &result); err != nil {
		n.logger.Warn("reverse geocode failed", "lat", lat, "lon", lon, "error", err)
		metrics.GeocodeError(op)
		return "", false
	}
	if result.Error != "" || result.DisplayName == "" {
		metrics.GeocodeMiss(op)
		return "", false
	}

	metrics.GeocodeHit(op)
	return result.DisplayName, true
}

func (n *Nominatim) get(ctx context.Context, path string, query url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, n.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.config.BaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", n.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
