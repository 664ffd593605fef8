// Package geo has the coordinate math shared by the tracking client and the
// ingest path: haversine distance, WGS84 range checks, and depot boundary
// containment.
package geo

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/xy"
)

const earthRadiusMeters = 6371000

// ErrInvalidCoordinate rejects positions outside WGS84 bounds.
var ErrInvalidCoordinate = errors.New("coordinate out of range")

// ValidateCoordinate checks latitude in [-90,90] and longitude in [-180,180].
func ValidateCoordinate(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// Distance calculates the great-circle distance in meters between two
// geographical points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ParseBoundary parses a GeoJSON Polygon string into WKB bytes for storage.
func ParseBoundary(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	var g geom.T
	if err := gjson.Unmarshal([]byte(raw), &g); err != nil {
		return nil, err
	}
	if _, ok := g.(*geom.Polygon); !ok {
		return nil, errors.New("depot boundary must be a GeoJSON Polygon")
	}
	return wkb.Marshal(g, binary.LittleEndian)
}

// BoundaryToGeoJSON converts stored WKB boundary bytes back to a GeoJSON
// string for API responses.
func BoundaryToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WithinBoundary reports whether the point lies inside the depot polygon's
// outer ring. Coordinates follow GeoJSON order: (lon, lat).
func WithinBoundary(wkbBytes []byte, lat, lon float64) (bool, error) {
	if len(wkbBytes) == 0 {
		return false, nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return false, err
	}
	poly, ok := g.(*geom.Polygon)
	if !ok || poly.NumLinearRings() == 0 {
		return false, errors.New("stored boundary is not a polygon")
	}
	ring := poly.LinearRing(0)
	point := geom.Coord{lon, lat}
	return xy.IsPointInRing(poly.Layout(), point, ring.FlatCoords()), nil
}
