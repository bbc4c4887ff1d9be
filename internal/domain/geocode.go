package domain

import (
	"context"
	"log/slog"
)

// EnrichAreaDescription fills an empty area description from the polygon
// centroid. If geocoder is nil, the alert has no geometry, or the lookup
// fails, the alert is returned unchanged.
func EnrichAreaDescription(ctx context.Context, alert Alert, geocoder ReverseGeocoder, logger *slog.Logger) Alert {
	if geocoder == nil || alert.AreaDesc != "" || !alert.HasGeometry {
		return alert
	}

	center, ok := Centroid(alert.Polygon)
	if !ok {
		return alert
	}

	result, err := geocoder.ReverseGeocode(ctx, center.Lat, center.Lng)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"alert_id", alert.ID,
			"lat", center.Lat,
			"lng", center.Lng,
			"error", err,
		)
		return alert
	}

	switch {
	case result.FormattedAddress != "":
		alert.AreaDesc = result.FormattedAddress
	case result.PlaceName != "":
		alert.AreaDesc = result.PlaceName
	}
	return alert
}
