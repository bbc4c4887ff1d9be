package domain

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// minPolygonPoints is the smallest ring that encloses an area: a triangle.
const minPolygonPoints = 3

// BoundingBox is an inclusive lat/lng rectangle. The zero value disables
// region checks.
type BoundingBox struct {
	MinLat float64
	MinLng float64
	MaxLat float64
	MaxLng float64
}

// IsZero reports whether the box is unset.
func (b BoundingBox) IsZero() bool {
	return b == BoundingBox{}
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// ExtractPolygon parses a CAP polygon string ("lat,lng lat,lng ...") into a
// closed ring. Malformed pairs are skipped with a warning. Fewer than three
// valid points yields nil. Points outside region are logged but kept, since
// alerts for other regions are still valid data.
func ExtractPolygon(raw string, region BoundingBox, logger *slog.Logger) Polygon {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	fields := strings.Fields(raw)
	points := make(Polygon, 0, len(fields)+1)
	outside := 0

	for i, pair := range fields {
		p, ok := parsePoint(pair)
		if !ok {
			logger.Warn("skipping invalid polygon coordinate", "index", i, "pair", pair)
			continue
		}
		if !region.IsZero() && !region.Contains(p) {
			outside++
		}
		points = append(points, p)
	}

	if len(points) < minPolygonPoints {
		if len(fields) > 0 {
			logger.Warn("polygon rejected: too few valid points", "valid", len(points), "required", minPolygonPoints)
		}
		return nil
	}

	if outside > 0 {
		logger.Warn("polygon has coordinates outside expected region",
			"outside", outside,
			"points", len(points),
		)
	}

	if points[0] != points[len(points)-1] {
		points = append(points, points[0])
	}
	return points
}

func parsePoint(pair string) (Point, bool) {
	parts := strings.Split(pair, ",")
	if len(parts) < 2 {
		return Point{}, false
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLng != nil || !finite(lat) || !finite(lng) {
		return Point{}, false
	}
	return Point{Lat: lat, Lng: lng}, true
}

// finite rejects the NaN and Inf spellings ParseFloat accepts.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Centroid returns the mean of the ring's vertices, ignoring the closing point.
// It returns false for an empty polygon.
func Centroid(p Polygon) (Point, bool) {
	n := len(p)
	if n == 0 {
		return Point{}, false
	}
	if n > 1 && p[0] == p[n-1] {
		n--
	}
	var sum Point
	for _, pt := range p[:n] {
		sum.Lat += pt.Lat
		sum.Lng += pt.Lng
	}
	return Point{Lat: sum.Lat / float64(n), Lng: sum.Lng / float64(n)}, true
}
