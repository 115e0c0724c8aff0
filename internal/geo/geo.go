package geo

import (
	"fmt"
	"math"

	apperrors "github.com/khojhub/shop-service/pkg/errors"
)

// EarthRadiusKm is the mean Earth radius used for the spherical
// approximation. The ~0.3% error against the true ellipsoid is accepted for
// neighborhood-scale proximity search.
const EarthRadiusKm = 6378.1

// Point is a WGS84 coordinate pair.
type Point struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Validate checks that the coordinates are within valid WGS84 ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Longitude) || math.IsNaN(p.Latitude) {
		return apperrors.InvalidInput("coordinates must be numbers")
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return apperrors.InvalidInput(fmt.Sprintf("longitude %v out of range [-180, 180]", p.Longitude))
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return apperrors.InvalidInput(fmt.Sprintf("latitude %v out of range [-90, 90]", p.Latitude))
	}
	return nil
}

// RadiusKmToRadians converts a search radius in kilometers to the central
// angle of the matching spherical cap.
func RadiusKmToRadians(km float64) float64 {
	return km / EarthRadiusKm
}

// CentralAngle returns the great-circle angle between two points in radians,
// computed with the haversine formula.
func CentralAngle(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * math.Asin(math.Min(1, math.Sqrt(h)))
}

// DistanceKm returns the great-circle distance between two points in
// kilometers.
func DistanceKm(a, b Point) float64 {
	return CentralAngle(a, b) * EarthRadiusKm
}

// Within reports whether p lies inside the spherical cap centered on center
// with the given radius in kilometers. Boundary points are inside.
func Within(center Point, radiusKm float64, p Point) bool {
	return CentralAngle(center, p) <= RadiusKmToRadians(radiusKm)
}

// SphericalCapSQL renders the spherical-cap membership test as a SQL
// predicate over longitude/latitude columns. The center and radius are bound
// as query parameters so the same plan is reused across searches; argIndex is
// the 1-based index of the first of three placeholders (latitude, longitude,
// radius in radians).
func SphericalCapSQL(lonCol, latCol string, argIndex int) string {
	return fmt.Sprintf(
		"2 * asin(least(1, sqrt("+
			"power(sin((radians(%[2]s) - radians($%[3]d)) / 2), 2) + "+
			"cos(radians($%[3]d)) * cos(radians(%[2]s)) * "+
			"power(sin((radians(%[1]s) - radians($%[4]d)) / 2), 2)"+
			"))) <= $%[5]d",
		lonCol, latCol, argIndex, argIndex+1, argIndex+2,
	)
}
