// Package region answers inclusion queries against a region border loaded
// from GeoJSON. Coordinates are treated on a flat lon/lat plane; there is
// no antimeridian wraparound handling.
package region

import (
	"math"
	"os"

	"basestation-mapper/internal/apperr"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Boundary is a read-only multipolygon region.
type Boundary struct {
	geometry orb.MultiPolygon
	bound    orb.Bound
}

// New wraps an existing multipolygon.
func New(mp orb.MultiPolygon) *Boundary {
	return &Boundary{geometry: mp, bound: mp.Bound()}
}

// Load reads a GeoJSON feature collection and keeps the first
// MultiPolygon feature it finds.
func Load(path string) (*Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "region", err, "cannot read %s", path)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.Format, "region", err, "%s is not a GeoJSON feature collection", path)
	}

	for _, f := range fc.Features {
		if mp, ok := f.Geometry.(orb.MultiPolygon); ok {
			return New(mp), nil
		}
	}

	return nil, apperr.New(apperr.Format, "region", "%s has no MultiPolygon feature", path)
}

// Contains reports whether the point lies inside the region. Holes are
// excluded.
func (b *Boundary) Contains(lat, lon float64) bool {
	p := orb.Point{lon, lat}
	if !b.bound.Contains(p) {
		return false
	}
	return planar.MultiPolygonContains(b.geometry, p)
}

// DistanceToBoundaryKm returns the great-circle distance from the point
// to the nearest point on any ring of the region. The nearest point on
// each segment is found in an equirectangular projection centred on the
// query latitude.
func (b *Boundary) DistanceToBoundaryKm(lat, lon float64) float64 {
	p := orb.Point{lon, lat}
	scale := math.Cos(lat * math.Pi / 180)

	best := math.Inf(1)
	for _, polygon := range b.geometry {
		for _, ring := range polygon {
			for i := 0; i+1 < len(ring); i++ {
				q := closestPointOnSegment(p, ring[i], ring[i+1], scale)
				if d := geo.DistanceHaversine(p, q); d < best {
					best = d
				}
			}
			// Rings that are not explicitly closed still have a closing edge.
			if n := len(ring); n > 1 && !ring.Closed() {
				q := closestPointOnSegment(p, ring[n-1], ring[0], scale)
				if d := geo.DistanceHaversine(p, q); d < best {
					best = d
				}
			}
		}
	}

	return best / 1000
}

// closestPointOnSegment clamps the projection of p onto vw. Longitude
// differences are multiplied by scale so the projection is locally
// conformal.
func closestPointOnSegment(p, v, w orb.Point, scale float64) orb.Point {
	dx, dy := (w[0]-v[0])*scale, w[1]-v[1]
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return v
	}

	t := ((p[0]-v[0])*scale*dx + (p[1]-v[1])*dy) / l2
	t = math.Max(0, math.Min(1, t))

	return orb.Point{v[0] + t*(w[0]-v[0]), v[1] + t*(w[1]-v[1])}
}
