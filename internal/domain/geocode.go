package domain

import (
	"context"
	"log/slog"
	"strings"
)

// GeocodeQuery joins the non-empty location parts into a single
// "address, city, state zip" search string.
func GeocodeQuery(loc Location) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{loc.Address, loc.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	tail := strings.TrimSpace(strings.TrimSpace(loc.State) + " " + strings.TrimSpace(loc.ZipCode))
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}

// EnrichWithGeocoding attaches coordinates for the case location. If
// geocoder is nil, or the lookup fails or finds nothing, the case is
// returned with Geo cleared so stale coordinates never outlive an edit.
func EnrichWithGeocoding(ctx context.Context, c Case, geocoder Geocoder, logger *slog.Logger) Case {
	if geocoder == nil {
		return c
	}
	c.Geo = nil

	query := GeocodeQuery(c.Location)
	if query == "" {
		return c
	}

	result, err := geocoder.ForwardGeocode(ctx, query)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"case_id", c.ID,
			"query", query,
			"error", err,
		)
		return c
	}
	if result.Lat == 0 && result.Lon == 0 {
		return c
	}

	c.Geo = &Geo{
		Lat:              result.Lat,
		Lon:              result.Lon,
		FormattedAddress: result.FormattedAddress,
		Confidence:       result.Confidence,
	}
	return c
}
