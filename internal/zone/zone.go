// Package zone picks the UTM zone for a coordinate and reprojects geometry into and out of it.
package zone

import (
	"fmt"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/wroge/wgs84"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
)

const (
	NorthBase = 32600
	SouthBase = 32700
)

// Resolve returns the EPSG code of the WGS 84 / UTM zone covering c (lon, lat).
func Resolve(c model.Coordinate) int {
	base := NorthBase
	if c[1] < 0 {
		base = SouthBase
	}
	return base + int(math.Floor((c[0]+186)/6))
}

// Band is the longitude band part of a zone id.
func Band(id int) int {
	if id >= SouthBase {
		return id - SouthBase
	}
	return id - NorthBase
}

func IsSouth(id int) bool { return id >= SouthBase }

type transformFunc = func(a, b, c float64) (float64, float64, float64)

// Projector converts between the storage system and one zone's planar metres.
type Projector struct {
	Zone    int
	forward transformFunc
	inverse transformFunc
}

func newProjector(id int) *Projector {
	// the band formula can yield 0 or 61 right at the antimeridian
	band := min(max(Band(id), 1), 60)
	base := NorthBase
	if IsSouth(id) {
		base = SouthBase
	}

	epsg := wgs84.EPSG()
	planar := epsg.Code(base + band)
	geographic := wgs84.WGS84().LonLat()
	return &Projector{
		Zone:    id,
		forward: wgs84.Transform(geographic, planar),
		inverse: wgs84.Transform(planar, geographic),
	}
}

func (p *Projector) Forward(c model.Coordinate) model.Coordinate {
	x, y, _ := p.forward(c[0], c[1], 0)
	return model.Coordinate{x, y}
}

func (p *Projector) Inverse(c model.Coordinate) model.Coordinate {
	lon, lat, _ := p.inverse(c[0], c[1], 0)
	return model.Coordinate{lon, lat}
}

func (p *Projector) ForwardChain(cs model.Chain) (model.Chain, error) {
	return mapChain(cs, p.Forward)
}

func (p *Projector) InverseChain(cs model.Chain) (model.Chain, error) {
	return mapChain(cs, p.Inverse)
}

func mapChain(cs model.Chain, f func(model.Coordinate) model.Coordinate) (model.Chain, error) {
	out := make(model.Chain, len(cs))
	for i, c := range cs {
		p := f(c)
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
			return nil, fmt.Errorf("coordinate %d (%v) cannot be projected", i, c)
		}
		out[i] = p
	}
	return out, nil
}

// Resolver hands out projectors, caching them per zone.
type Resolver struct {
	mu    sync.Mutex
	cache *lru.Cache[int, *Projector]
}

func NewResolver(size int) *Resolver {
	if size <= 0 {
		size = 16
	}
	c, _ := lru.New[int, *Projector](size)
	return &Resolver{cache: c}
}

func (r *Resolver) Resolve(c model.Coordinate) int { return Resolve(c) }

// Projector returns the projector for the zone that covers anchor.
func (r *Resolver) Projector(anchor model.Coordinate) *Projector {
	return r.ForZone(Resolve(anchor))
}

func (r *Resolver) ForZone(id int) *Projector {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.cache.Get(id); ok {
		return p
	}
	p := newProjector(id)
	r.cache.Add(id, p)
	return p
}
