package h3mapper

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
)

type Mapper struct{}

func New() *Mapper { return &Mapper{} }

func (m *Mapper) CellForPoint(p orb.Point, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: p[1], Lng: p[0]}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell for point: %w", err)
	}
	return c.String(), nil
}

// Cover returns every cell a bound touches: the polyfill of the box plus the cells under its
// corners and centre, so boxes smaller than a cell still map to at least one cell.
func (m *Mapper) Cover(b orb.Bound, res int) (model.Cells, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []string
	add := func(c string) {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}

	if b.Min[0] < b.Max[0] && b.Min[1] < b.Max[1] {
		cells, err := m.CellsForPolygon(b.ToPolygon(), res)
		if err != nil {
			return nil, err
		}
		for _, c := range cells {
			add(c)
		}
	}
	for _, p := range []orb.Point{b.Min, b.Max, b.LeftTop(), b.RightBottom(), b.Center()} {
		c, err := m.CellForPoint(p, res)
		if err != nil {
			return nil, err
		}
		add(c)
	}
	sort.Strings(out)
	return out, nil
}

// Dilate adds the k-ring around every cell, for queries that must also reach cells whose
// centres fall just outside the queried box.
func (m *Mapper) Dilate(cells model.Cells, k int) (model.Cells, error) {
	if k <= 0 {
		return cells, nil
	}
	seen := make(map[string]struct{}, len(cells)*7)
	out := make([]string, 0, len(cells)*7)
	for _, s := range cells {
		c := h3.Cell(h3.IndexFromString(s))
		if !c.IsValid() {
			return nil, fmt.Errorf("invalid h3 cell %q", s)
		}
		disk, err := h3.GridDisk(c, k)
		if err != nil {
			return nil, fmt.Errorf("h3 grid disk: %w", err)
		}
		for _, d := range disk {
			ds := d.String()
			if _, ok := seen[ds]; ok {
				continue
			}
			seen[ds] = struct{}{}
			out = append(out, ds)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Mapper) CellsForPolygon(poly orb.Polygon, res int) (model.Cells, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	if len(poly) == 0 {
		return nil, errors.New("empty polygon")
	}
	outer := toLoop(poly[0])
	if len(outer) < 3 {
		return nil, errors.New("outer ring has < 4 vertices")
	}
	var holes []h3.GeoLoop
	for i := 1; i < len(poly); i++ {
		h := toLoop(poly[i])
		if len(h) < 3 {
			return nil, fmt.Errorf("hole %d has < 4 vertices", i-1)
		}
		holes = append(holes, h)
	}
	return polyfillOne(outer, holes, res)
}

// --- helpers ---

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// Convert a ring to an h3.GeoLoop (in degrees).
// If the ring is explicitly closed (last == first), drop the trailing duplicate.
func toLoop(ring orb.Ring) h3.GeoLoop {
	loop := make(h3.GeoLoop, 0, len(ring))
	for _, p := range ring {
		loop = append(loop, h3.LatLng{Lat: p[1], Lng: p[0]})
	}
	// drop duplicated closing vertex if present
	if len(loop) >= 2 {
		last := loop[len(loop)-1]
		first := loop[0]
		if last.Lat == first.Lat && last.Lng == first.Lng {
			loop = loop[:len(loop)-1]
		}
	}
	return loop
}

// polyfillOne computes unique cells and returns them sorted for determinism.
func polyfillOne(outer h3.GeoLoop, holes []h3.GeoLoop, res int) (model.Cells, error) {
	if len(outer) < 3 {
		return nil, errors.New("outer ring has < 4 vertices")
	}
	poly := h3.GeoPolygon{
		GeoLoop: outer,
		Holes:   holes,
	}

	// v4 returns ([]h3.Cell, error)
	indexes, err := h3.PolygonToCells(poly, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}

	out := make([]string, 0, len(indexes))
	seen := make(map[string]struct{}, len(indexes))
	for _, idx := range indexes {
		s := idx.String() // v4 Cell has String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}
