package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCoordinate(t *testing.T) {
	assert.NoError(t, ValidateCoordinate(0, 0))
	assert.NoError(t, ValidateCoordinate(-90, 180))
	assert.NoError(t, ValidateCoordinate(90, -180))

	assert.ErrorIs(t, ValidateCoordinate(91, 0), ErrInvalidCoordinate)
	assert.ErrorIs(t, ValidateCoordinate(-90.001, 0), ErrInvalidCoordinate)
	assert.ErrorIs(t, ValidateCoordinate(0, 180.5), ErrInvalidCoordinate)
	assert.ErrorIs(t, ValidateCoordinate(0, -181), ErrInvalidCoordinate)
}

func TestDistance(t *testing.T) {
	// Same point.
	assert.Equal(t, 0.0, Distance(14.5995, 120.9842, 14.5995, 120.9842))

	// One degree of latitude is ~111.2 km.
	d := Distance(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 200)

	// Short hop: ~11m north at the equator.
	d = Distance(0, 0, 0.0001, 0)
	assert.InDelta(t, 11.1, d, 0.2)
}

const yardPolygon = `{"type":"Polygon","coordinates":[[[120.98,14.59],[121.00,14.59],[121.00,14.61],[120.98,14.61],[120.98,14.59]]]}`

func TestBoundaryRoundTrip(t *testing.T) {
	wkbBytes, err := ParseBoundary(yardPolygon)
	require.NoError(t, err)
	require.NotEmpty(t, wkbBytes)

	out, err := BoundaryToGeoJSON(wkbBytes)
	require.NoError(t, err)
	assert.Contains(t, out, `"Polygon"`)
}

func TestParseBoundaryRejectsNonPolygon(t *testing.T) {
	_, err := ParseBoundary(`{"type":"Point","coordinates":[120.98,14.59]}`)
	assert.Error(t, err)
}

func TestParseBoundaryEmpty(t *testing.T) {
	wkbBytes, err := ParseBoundary("")
	require.NoError(t, err)
	assert.Nil(t, wkbBytes)
}

func TestWithinBoundary(t *testing.T) {
	wkbBytes, err := ParseBoundary(yardPolygon)
	require.NoError(t, err)

	inside, err := WithinBoundary(wkbBytes, 14.60, 120.99)
	require.NoError(t, err)
	assert.True(t, inside)

	outside, err := WithinBoundary(wkbBytes, 14.70, 120.99)
	require.NoError(t, err)
	assert.False(t, outside)
}

func TestWithinBoundaryNoBoundary(t *testing.T) {
	inside, err := WithinBoundary(nil, 14.60, 120.99)
	require.NoError(t, err)
	assert.False(t, inside)
}
