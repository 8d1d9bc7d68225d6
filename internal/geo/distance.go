package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// Point is a coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat" mapstructure:"lat"`
	Lon float64 `json:"lon" mapstructure:"lon"`
}

// Haversine returns the great-circle distance between two points in kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Asin(math.Min(1, math.Sqrt(a)))

	return EarthRadiusKm * c
}

// DistanceKm is Haversine over two points.
func DistanceKm(a, b Point) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}
