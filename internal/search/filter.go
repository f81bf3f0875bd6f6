// Package search narrows coarse spatial-index results down to the entities that are really
// within reach of a point, and picks preferred roads out of a candidate list.
package search

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
	"github.com/mohammed-shakir/osm-area-store/internal/core/wkt"
	"github.com/mohammed-shakir/osm-area-store/internal/zone"
)

// Unbounded reports whether maxDistance places no limit on the search (0 is "no limit").
func Unbounded(maxDistance float64) bool {
	return maxDistance <= 0 || math.IsInf(maxDistance, 1) || math.IsNaN(maxDistance)
}

// BoundingSquare is the lon/lat box of the given side length in metres centred on center.
func BoundingSquare(center model.Coordinate, side float64) orb.Bound {
	return geo.NewBoundAroundPoint(center, side/2)
}

// Filter measures exact distances; the zero value is not usable, see NewFilter.
type Filter struct {
	zones *zone.Resolver
}

func NewFilter(zones *zone.Resolver) *Filter {
	if zones == nil {
		zones = zone.NewResolver(0)
	}
	return &Filter{zones: zones}
}

var defaultFilter = NewFilter(nil)

// DistanceFilter keeps the candidates within maxDistance metres of center, in input order.
// Candidates whose geometry does not parse are dropped; Filter.Within reports them.
func DistanceFilter(candidates []*model.Entity, center model.Coordinate, maxDistance float64) []*model.Entity {
	out, _ := defaultFilter.Within(candidates, center, maxDistance)
	return out
}

// Within returns the candidates within maxDistance metres of center, in input order,
// and separately those whose stored geometry failed to parse.
func (f *Filter) Within(candidates []*model.Entity, center model.Coordinate, maxDistance float64) (kept, unparseable []*model.Entity) {
	if Unbounded(maxDistance) {
		return candidates, nil
	}
	kept = make([]*model.Entity, 0, len(candidates))
	for _, e := range candidates {
		g, err := wkt.Parse(e.Geometry)
		if err != nil {
			unparseable = append(unparseable, e)
			continue
		}
		if f.Distance(center, g) <= maxDistance {
			kept = append(kept, e)
		}
	}
	return kept, unparseable
}

// Distance is the distance in metres from center to the nearest part of g; zero when an
// areal g contains center.
func (f *Filter) Distance(center model.Coordinate, g orb.Geometry) float64 {
	if p, ok := g.(orb.Point); ok {
		return geo.Distance(center, p)
	}
	if containsPoint(g, center) {
		return 0
	}

	proj := f.zones.Projector(center)
	local := project.Geometry(orb.Clone(g), proj.Forward)
	return planar.DistanceFrom(local, proj.Forward(center))
}

func containsPoint(g orb.Geometry, p orb.Point) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, p)
	case orb.Collection:
		for _, sub := range g {
			if containsPoint(sub, p) {
				return true
			}
		}
	}
	return false
}
