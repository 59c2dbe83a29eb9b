package parse

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/DukeRupert/aidnexus/internal/domain"
	"github.com/DukeRupert/aidnexus/internal/metrics"
)

// AddressGeocoder resolves a free-text address to coordinates. It reports
// false on any failure, including timeouts.
type AddressGeocoder interface {
	GeocodeAddress(ctx context.Context, address string) (domain.Coordinates, bool)
}

// Parse strategies, in priority order. The names double as metric labels.
const (
	StrategyPipe        = "pipe"
	StrategyCoordinates = "coordinates"
	StrategyComma       = "comma"
	StrategyGeneric     = "generic"
)

var (
	// "1. Name | Address | 30.2672, -97.7431"
	pipeLine = regexp.MustCompile(`^\d+\.\s*(.+?)\s*\|\s*(.+?)\s*\|\s*([+-]?\d+\.?\d*)\s*,\s*([+-]?\d+\.?\d*)`)

	// A decimal coordinate pair anywhere in the line.
	coordinatePair = regexp.MustCompile(`([+-]?\d{1,3}\.\d+)\s*,\s*([+-]?\d{1,3}\.\d+)`)

	// "2. Name, Address"
	commaLine = regexp.MustCompile(`^\d+\.\s*(.+?),\s*(.+)$`)

	// "3. anything"
	numberedContent = regexp.MustCompile(`^\d+\.\s*(.+)$`)

	listNumber     = regexp.MustCompile(`^\d+\.\s*`)
	facilitySplit  = regexp.MustCompile(`\s*[|,\-–—]\s*`)
	separatorChars = "|,-–— \t"
	prefixTrim     = separatorChars + "([:"
)

// FacilityParser extracts facilities from a numbered list returned by a
// hospital search prompt.
type FacilityParser struct {
	geocoder AddressGeocoder
	logger   *slog.Logger
}

// NewFacilityParser creates a parser. geocoder may be nil, in which case
// facilities without inline coordinates are returned without them.
func NewFacilityParser(geocoder AddressGeocoder, logger *slog.Logger) *FacilityParser {
	return &FacilityParser{
		geocoder: geocoder,
		logger:   logger,
	}
}

// Parse returns the facilities found in text, in order. Lines that match no
// strategy are skipped. The geocoder is consulted at most once per facility.
func (p *FacilityParser) Parse(ctx context.Context, text string) []domain.Facility {
	facilities := []domain.Facility{}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.ReplaceAll(raw, "**", ""))
		if !listNumber.MatchString(line) {
			continue
		}

		f, strategy, ok := p.parseLine(ctx, line)
		if !ok {
			p.logger.Debug("skipping unparseable facility line", "line", line)
			continue
		}

		metrics.FacilitiesParsed.WithLabelValues(strategy).Inc()
		facilities = append(facilities, f)
	}

	return facilities
}

func (p *FacilityParser) parseLine(ctx context.Context, line string) (domain.Facility, string, bool) {
	if f, ok := parsePipeLine(line); ok {
		return f, StrategyPipe, true
	}
	if f, ok := parseCoordinateLine(line); ok {
		return f, StrategyCoordinates, true
	}
	if !strings.Contains(line, "|") {
		if m := commaLine.FindStringSubmatch(line); m != nil {
			f := domain.Facility{
				Name:    strings.TrimSpace(m[1]),
				Address: strings.TrimSpace(m[2]),
			}
			if f.Name != "" && f.Address != "" {
				p.attachCoordinates(ctx, &f)
				return f, StrategyComma, true
			}
		}
	}
	if m := numberedContent.FindStringSubmatch(line); m != nil {
		parts := splitFacility(m[1])
		if len(parts) >= 2 {
			f := domain.Facility{
				Name:    parts[0],
				Address: strings.Join(parts[1:], ", "),
			}
			p.attachCoordinates(ctx, &f)
			return f, StrategyGeneric, true
		}
	}
	return domain.Facility{}, "", false
}

func (p *FacilityParser) attachCoordinates(ctx context.Context, f *domain.Facility) {
	if p.geocoder == nil {
		return
	}
	coords, ok := p.geocoder.GeocodeAddress(ctx, f.Address)
	if !ok {
		p.logger.Debug("no coordinates for facility", "name", f.Name)
		return
	}
	f.Coordinates = &coords
}

func parsePipeLine(line string) (domain.Facility, bool) {
	m := pipeLine.FindStringSubmatch(line)
	if m == nil {
		return domain.Facility{}, false
	}
	coords, ok := parseCoordinates(m[3], m[4])
	if !ok {
		return domain.Facility{}, false
	}
	return domain.Facility{
		Name:        strings.TrimSpace(m[1]),
		Address:     strings.TrimSpace(m[2]),
		Coordinates: &coords,
	}, true
}

func parseCoordinateLine(line string) (domain.Facility, bool) {
	loc := coordinatePair.FindStringSubmatchIndex(line)
	if loc == nil {
		return domain.Facility{}, false
	}
	coords, ok := parseCoordinates(line[loc[2]:loc[3]], line[loc[4]:loc[5]])
	if !ok {
		return domain.Facility{}, false
	}

	prefix := listNumber.ReplaceAllString(line[:loc[0]], "")
	prefix = strings.TrimRight(prefix, prefixTrim)
	if prefix == "" {
		return domain.Facility{}, false
	}

	f := domain.Facility{Coordinates: &coords}
	if sep := facilitySplit.FindStringIndex(prefix); sep != nil {
		f.Name = strings.TrimSpace(prefix[:sep[0]])
		f.Address = strings.Trim(prefix[sep[1]:], separatorChars)
	} else {
		f.Name = strings.TrimSpace(prefix)
	}
	if f.Name == "" {
		return domain.Facility{}, false
	}
	return f, true
}

func parseCoordinates(latText, lonText string) (domain.Coordinates, bool) {
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return domain.Coordinates{}, false
	}
	lon, err := strconv.ParseFloat(lonText, 64)
	if err != nil {
		return domain.Coordinates{}, false
	}
	c := domain.Coordinates{Lat: lat, Lon: lon}
	return c, c.Valid()
}

func splitFacility(content string) []string {
	var parts []string
	for _, part := range facilitySplit.Split(content, -1) {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
