package domain

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the pair is inside the WGS84 range.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Facility is a healthcare location candidate produced by a facility search.
// Facilities are never stored.
type Facility struct {
	Name        string       `json:"name"`
	Address     string       `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// HasCoordinates reports whether the facility can be placed on a map.
func (f Facility) HasCoordinates() bool {
	return f.Coordinates != nil
}

// MappableFacilities returns the facilities that carry coordinates, in order.
func MappableFacilities(facilities []Facility) []Facility {
	out := make([]Facility, 0, len(facilities))
	for _, f := range facilities {
		if f.HasCoordinates() {
			out = append(out, f)
		}
	}
	return out
}
