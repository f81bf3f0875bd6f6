// Package footprint derives containment polygons for linear features that carry a physical
// width, buffering them in a locally accurate UTM zone.
package footprint

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-geos"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
	"github.com/mohammed-shakir/osm-area-store/internal/core/wkt"
	"github.com/mohammed-shakir/osm-area-store/internal/geometry/stitch"
	"github.com/mohammed-shakir/osm-area-store/internal/zone"
)

var (
	// ErrDegenerateBuffer means no valid polygon could be built from the line and width.
	ErrDegenerateBuffer = errors.New("degenerate buffer")
	// ErrNotApplicable means the request does not satisfy the footprint preconditions.
	ErrNotApplicable = errors.New("footprint not applicable")
)

const defaultQuadSegs = 8

// Request asks for the footprint of Source at the given physical width in metres.
type Request struct {
	Source model.Chain
	Width  float64
	Anchor model.Coordinate
}

// NewRequest anchors the request at the first point of the source line.
func NewRequest(source model.Chain, width float64) Request {
	r := Request{Source: source, Width: width}
	if len(source) > 0 {
		r.Anchor = source[0]
	}
	return r
}

// WidthCapability reports whether entities with a discriminator declare a width attribute.
type WidthCapability interface {
	SupportsWidth(discriminator string) bool
}

type Options struct {
	// QuadSegs is the number of segments used per quarter circle on round caps and joins.
	QuadSegs int
	// WidthIsDiameter buffers by half the width so the footprint is Width metres across.
	// When false the line is buffered by the full width on each side.
	WidthIsDiameter bool
	Logger          *slog.Logger
}

type Polygonizer struct {
	zones *zone.Resolver
	caps  WidthCapability
	opts  Options
	log   *slog.Logger
}

func New(zones *zone.Resolver, caps WidthCapability, opts Options) *Polygonizer {
	if zones == nil {
		zones = zone.NewResolver(0)
	}
	if opts.QuadSegs <= 0 {
		opts.QuadSegs = defaultQuadSegs
	}
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Polygonizer{zones: zones, caps: caps, opts: opts, log: l}
}

func (p *Polygonizer) distance(width float64) float64 {
	if p.opts.WidthIsDiameter {
		return width / 2
	}
	return width
}

// Footprint returns the buffered polygon in storage coordinates: the first ring is the outer
// boundary, any further rings are holes (a closed source line yields an annulus).
func (p *Polygonizer) Footprint(req Request) (orb.Polygon, error) {
	if req.Width <= 0 {
		return nil, fmt.Errorf("width %v: %w", req.Width, ErrNotApplicable)
	}
	if len(req.Source) < 2 {
		return nil, fmt.Errorf("%d coordinates: %w", len(req.Source), ErrDegenerateBuffer)
	}

	proj := p.zones.Projector(req.Anchor)
	planar, err := proj.ForwardChain(req.Source)
	if err != nil {
		return nil, fmt.Errorf("project to zone %d: %v: %w", proj.Zone, err, ErrDegenerateBuffer)
	}
	if allSame(planar) {
		return nil, fmt.Errorf("source collapses to a single point: %w", ErrDegenerateBuffer)
	}

	rings, err := buffer(planar, p.distance(req.Width), p.opts.QuadSegs)
	if err != nil {
		return nil, err
	}

	out := make(orb.Polygon, 0, len(rings))
	for i, r := range rings {
		back, err := proj.InverseChain(r)
		if err != nil {
			return nil, fmt.Errorf("project ring %d back from zone %d: %v: %w", i, proj.Zone, err, ErrDegenerateBuffer)
		}
		ring, err := stitch.ToRing(stitch.EnsureClosed(back))
		if err != nil {
			return nil, fmt.Errorf("ring %d: %v: %w", i, err, ErrDegenerateBuffer)
		}
		out = append(out, ring)
	}
	return out, nil
}

// buffer runs GEOS over planar coordinates and returns the rings of the resulting polygon.
func buffer(line model.Chain, dist float64, quadSegs int) (rings []model.Chain, err error) {
	defer func() {
		// go-geos turns GEOS exceptions into panics
		if r := recover(); r != nil {
			rings, err = nil, fmt.Errorf("geos: %v: %w", r, ErrDegenerateBuffer)
		}
	}()

	coords := make([][]float64, len(line))
	for i, c := range line {
		coords[i] = []float64{c[0], c[1]}
	}
	g := geos.NewLineString(coords)
	buf := g.Buffer(dist, quadSegs)
	if buf == nil || buf.IsEmpty() || buf.TypeID() != geos.TypeIDPolygon || !buf.IsValid() {
		return nil, ErrDegenerateBuffer
	}

	rings = append(rings, toChain(buf.ExteriorRing().CoordSeq().ToCoords()))
	for i := 0; i < buf.NumInteriorRings(); i++ {
		rings = append(rings, toChain(buf.InteriorRing(i).CoordSeq().ToCoords()))
	}
	return rings, nil
}

func toChain(coords [][]float64) model.Chain {
	out := make(model.Chain, len(coords))
	for i, c := range coords {
		out[i] = model.Coordinate{c[0], c[1]}
	}
	return out
}

func allSame(c model.Chain) bool {
	for _, p := range c[1:] {
		if p != c[0] {
			return false
		}
	}
	return true
}

// Apply replaces a wide line's geometry with its footprint, keeping the line in
// OriginalGeometry. It reports whether the entity changed. On error the entity is untouched.
func (p *Polygonizer) Apply(e *model.Entity) (bool, error) {
	if e.EffectiveWidth <= 0 {
		return false, nil
	}
	if p.caps != nil && !p.caps.SupportsWidth(e.Discriminator) {
		return false, nil
	}
	if wkt.GeometryType(e.Geometry) != wkt.TypeLineString {
		return false, nil
	}

	line, err := wkt.ParseChain(e.Geometry)
	if err != nil {
		return false, fmt.Errorf("entity %s: %w", e.ID, err)
	}
	poly, err := p.Footprint(NewRequest(line, e.EffectiveWidth))
	if err != nil {
		return false, fmt.Errorf("entity %s: %w", e.ID, err)
	}
	rings := make([]model.Chain, len(poly))
	for i, r := range poly {
		rings[i] = model.Chain(r)
	}
	text, err := wkt.Polygon(rings...)
	if err != nil {
		return false, fmt.Errorf("entity %s: %v: %w", e.ID, err, ErrDegenerateBuffer)
	}

	p.log.Debug("creating containment polygon", "entity", e.ID, "width", e.EffectiveWidth)
	e.OriginalGeometry = e.Geometry
	e.Geometry = text
	return true, nil
}
