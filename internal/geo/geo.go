// Package geo holds the single distance formula used by every location filter.
//
// Queries prefilter rows with a bounding box in SQL and then keep only the
// rows whose great-circle distance is within the requested radius.
package geo

import "math"

const (
	EarthRadiusKm = 6371.0
	KmPerDegree   = 111.0
)

type Point struct {
	Lat float64
	Lng float64
}

// Distance returns the Haversine great-circle distance between a and b in km.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Within reports whether p lies within radiusKm of center.
func Within(center, p Point, radiusKm float64) bool {
	return Distance(center, p) <= radiusKm
}

// Box is a latitude/longitude rectangle in degrees.
type Box struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BoxAround returns a rectangle that fully contains the circle of radiusKm
// around center. The longitude span widens with latitude so the box never
// clips the circle.
func BoxAround(center Point, radiusKm float64) Box {
	dLat := radiusKm / KmPerDegree
	dLng := dLat
	if c := math.Cos(center.Lat * math.Pi / 180); c > 0.01 {
		dLng = dLat / c
	} else {
		dLng = 180
	}
	return Box{
		MinLat: center.Lat - dLat,
		MaxLat: center.Lat + dLat,
		MinLng: center.Lng - dLng,
		MaxLng: center.Lng + dLng,
	}
}

func (b Box) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
