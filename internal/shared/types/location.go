package types

// LatLng is a geographic coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a denormalized report location: the citizen-entered text plus
// coordinates, which may be refined later by an asynchronous geocoding lookup
// keyed on the text.
type Location struct {
	Text string  `json:"location_text"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// HasCoordinates reports whether the location carries a usable coordinate pair.
func (l Location) HasCoordinates() bool {
	return l.Lat != 0 || l.Lng != 0
}
