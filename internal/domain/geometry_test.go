package domain

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRegion = BoundingBox{MinLat: -53, MinLng: 165, MaxLat: -29, MaxLng: 180}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtractPolygon_ClosesOpenRing(t *testing.T) {
	raw := "-41.0,174.0 -41.5,174.5 -42.0,174.0 -41.5,173.5"

	poly := ExtractPolygon(raw, testRegion, discardLogger())

	require.Len(t, poly, 5)
	assert.Equal(t, poly[0], poly[len(poly)-1])
	assert.Equal(t, Point{Lat: -41.0, Lng: 174.0}, poly[0])
	assert.Equal(t, Point{Lat: -41.5, Lng: 173.5}, poly[3])
}

func TestExtractPolygon_AlreadyClosed(t *testing.T) {
	raw := "-41.0,174.0 -41.5,174.5 -42.0,174.0 -41.0,174.0"

	poly := ExtractPolygon(raw, testRegion, discardLogger())

	require.Len(t, poly, 4)
	assert.Equal(t, poly[0], poly[3])
}

func TestExtractPolygon_TooFewPoints(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"single point", "-41.0,174.0"},
		{"two points", "-41.0,174.0 -41.5,174.5"},
		{"three pairs one invalid", "-41.0,174.0 -41.5,abc -42.0,174.0"},
		{"garbage", "not a polygon at all"},
		{"only non-finite pairs", "NaN,NaN nan,1 inf,2"},
		{"non-finite leaves two points", "-41.0,174.0 NaN,1 Inf,2 -Infinity,3 -42.0,174.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, ExtractPolygon(tt.raw, testRegion, discardLogger()))
		})
	}
}

func TestExtractPolygon_SkipsInvalidPairs(t *testing.T) {
	raw := "-41.0,174.0 bogus -41.5,174.5 12 -42.0,174.0 ,"

	poly := ExtractPolygon(raw, testRegion, discardLogger())

	require.Len(t, poly, 4)
	assert.Equal(t, Point{Lat: -41.5, Lng: 174.5}, poly[1])
}

func TestExtractPolygon_SkipsNonFiniteCoordinates(t *testing.T) {
	tests := []struct {
		name string
		pair string
	}{
		{"NaN latitude", "NaN,1"},
		{"Inf latitude", "Inf,2"},
		{"negative infinity", "-Infinity,3"},
		{"NaN longitude", "-41.7,nan"},
		{"Inf longitude", "-41.7,+Inf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := "-41.0,174.0 " + tt.pair + " -41.5,174.5 -42.0,174.0"

			poly := ExtractPolygon(raw, testRegion, discardLogger())

			require.Len(t, poly, 4)
			assert.Equal(t, poly[0], poly[3])
			_, err := json.Marshal(poly)
			assert.NoError(t, err)
		})
	}
}

func TestExtractPolygon_OutsideRegionKept(t *testing.T) {
	raw := "35.0,-97.0 35.5,-97.5 36.0,-97.0"

	poly := ExtractPolygon(raw, testRegion, discardLogger())

	require.Len(t, poly, 4)
	assert.Equal(t, Point{Lat: 35.0, Lng: -97.0}, poly[0])
}

func TestExtractPolygon_ZeroRegionSkipsCheck(t *testing.T) {
	poly := ExtractPolygon("1,1 2,2 3,1", BoundingBox{}, discardLogger())
	assert.Len(t, poly, 4)
}

func TestExtractPolygon_RingLengthProperty(t *testing.T) {
	rings := []string{
		"0,0 0,1 1,1",
		"0,0 0,1 1,1 1,0",
		"-40,170 -40,171 -41,171 -41,170 -40.5,169.5",
	}
	for _, raw := range rings {
		poly := ExtractPolygon(raw, BoundingBox{}, discardLogger())
		distinct := len(splitFields(raw))
		require.Len(t, poly, distinct+1, raw)
		assert.Equal(t, poly[0], poly[len(poly)-1], raw)
	}
}

func splitFields(s string) []string {
	var out []string
	start := -1
	for i, r := range s {
		if r == ' ' {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

func TestBoundingBox_Contains(t *testing.T) {
	assert.True(t, testRegion.Contains(Point{Lat: -41.3, Lng: 174.8}))
	assert.True(t, testRegion.Contains(Point{Lat: -53, Lng: 165}))
	assert.False(t, testRegion.Contains(Point{Lat: 35, Lng: -97}))
	assert.True(t, BoundingBox{}.IsZero())
	assert.False(t, testRegion.IsZero())
}

func TestCentroid(t *testing.T) {
	poly := Polygon{{0, 0}, {0, 2}, {2, 2}, {2, 0}, {0, 0}}

	c, ok := Centroid(poly)
	require.True(t, ok)
	assert.InDelta(t, 1.0, c.Lat, 1e-9)
	assert.InDelta(t, 1.0, c.Lng, 1e-9)

	_, ok = Centroid(nil)
	assert.False(t, ok)
}
