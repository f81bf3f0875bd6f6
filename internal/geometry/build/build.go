// Package build turns OSM nodes, ways and relations into storage WKT.
package build

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paulmach/osm"

	"github.com/mohammed-shakir/osm-area-store/internal/classify"
	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
	"github.com/mohammed-shakir/osm-area-store/internal/core/wkt"
	"github.com/mohammed-shakir/osm-area-store/internal/geometry/stitch"
)

var (
	// ErrNoGeometry means the object has too little resolvable data to be drawn.
	ErrNoGeometry = errors.New("no geometry")
	// ErrUnresolved means a referenced node, way or relation is not available.
	ErrUnresolved = errors.New("unresolved reference")
)

const maxRelationDepth = 8

// Resolver looks up objects referenced by ways and relations.
type Resolver interface {
	Node(id osm.NodeID) (model.Coordinate, bool)
	Way(id osm.WayID) (*osm.Way, bool)
	Relation(id osm.RelationID) (*osm.Relation, bool)
}

type Builder struct {
	res Resolver
	cls *classify.Classifier
	log *slog.Logger
}

func New(res Resolver, cls *classify.Classifier, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{res: res, cls: cls, log: log}
}

// UniqueID is the prefixed id used for entities ("n1", "w2", "r3").
func UniqueID(o osm.Object) string {
	switch v := o.(type) {
	case *osm.Node:
		return fmt.Sprintf("n%d", v.ID)
	case *osm.Way:
		return fmt.Sprintf("w%d", v.ID)
	case *osm.Relation:
		return fmt.Sprintf("r%d", v.ID)
	}
	return ""
}

func (b *Builder) Object(o osm.Object) (string, error) {
	switch v := o.(type) {
	case *osm.Node:
		return b.Node(v), nil
	case *osm.Way:
		return b.Way(v)
	case *osm.Relation:
		return b.relation(v, 0)
	}
	return "", fmt.Errorf("%v: %w", o.ObjectID(), ErrNoGeometry)
}

func (b *Builder) Node(n *osm.Node) string {
	return wkt.Point(n.Point())
}

// WayCoords resolves the coordinates of a way from the indexed nodes, falling back to
// coordinates carried on the way nodes themselves.
func (b *Builder) WayCoords(w *osm.Way) (model.Chain, error) {
	out := make(model.Chain, 0, len(w.Nodes))
	for _, wn := range w.Nodes {
		if c, ok := b.res.Node(wn.ID); ok {
			out = append(out, c)
			continue
		}
		// (0, 0) is a real coordinate; a bare reference has neither position nor version.
		if wn.Lat != 0 || wn.Lon != 0 || wn.Version != 0 {
			out = append(out, wn.Point())
			continue
		}
		return nil, fmt.Errorf("way %d node %d: %w", w.ID, wn.ID, ErrUnresolved)
	}
	return out, nil
}

func (b *Builder) Way(w *osm.Way) (string, error) {
	coords, err := b.WayCoords(w)
	if err != nil {
		return "", err
	}
	if len(coords) <= 1 {
		b.log.Warn("one or zero nodes for way", "id", UniqueID(w))
		return "", fmt.Errorf("way %d has %d nodes: %w", w.ID, len(coords), ErrNoGeometry)
	}
	if b.cls != nil && b.cls.Classify(w.Tags.Map()) == classify.Polygon && len(coords) > 2 {
		if ring := stitch.EnsureClosed(coords); len(ring) >= 4 {
			return wkt.Polygon(ring)
		}
	}
	return wkt.LineString(coords)
}

func (b *Builder) Relation(r *osm.Relation) (string, error) {
	return b.relation(r, 0)
}

func (b *Builder) relation(r *osm.Relation, depth int) (string, error) {
	if depth > maxRelationDepth {
		return "", fmt.Errorf("relation %d nested too deeply: %w", r.ID, ErrNoGeometry)
	}
	if r.Tags.Find("type") == "multipolygon" && len(r.Members) > 0 {
		var (
			geom string
			ok   bool
		)
		switch r.Members[0].Role {
		case "inner", "outer":
			geom, ok = b.complexPolygon(r)
		default:
			geom, ok = b.polygonsOf(r, depth)
		}
		if ok {
			return geom, nil
		}
	}
	return b.collection(r, depth)
}

func (b *Builder) member(m osm.Member, depth int) (string, error) {
	switch m.Type {
	case osm.TypeNode:
		c, ok := b.res.Node(osm.NodeID(m.Ref))
		if !ok {
			return "", fmt.Errorf("node %d: %w", m.Ref, ErrUnresolved)
		}
		return wkt.Point(c), nil
	case osm.TypeWay:
		w, ok := b.res.Way(osm.WayID(m.Ref))
		if !ok {
			return "", fmt.Errorf("way %d: %w", m.Ref, ErrUnresolved)
		}
		return b.Way(w)
	case osm.TypeRelation:
		rel, ok := b.res.Relation(osm.RelationID(m.Ref))
		if !ok {
			return "", fmt.Errorf("relation %d: %w", m.Ref, ErrUnresolved)
		}
		return b.relation(rel, depth+1)
	}
	return "", fmt.Errorf("member type %q: %w", m.Type, ErrNoGeometry)
}

// collection gathers every member geometry that can be built. A member that cannot be
// resolved fails the whole relation; members that merely have no geometry are left out.
func (b *Builder) collection(r *osm.Relation, depth int) (string, error) {
	parts := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		g, err := b.member(m, depth)
		if errors.Is(err, ErrUnresolved) {
			return "", fmt.Errorf("relation %d: %w", r.ID, err)
		}
		if err != nil {
			b.log.Debug("member left out of collection", "relation", UniqueID(r), "error", err)
			continue
		}
		parts = append(parts, g)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("relation %d: no member geometry: %w", r.ID, ErrNoGeometry)
	}
	return wkt.Collection(parts), nil
}

// polygonsOf builds a MULTIPOLYGON from members that are polygons in their own right.
func (b *Builder) polygonsOf(r *osm.Relation, depth int) (string, bool) {
	var polys [][]model.Chain
	for _, m := range r.Members {
		g, err := b.member(m, depth)
		if err != nil || !strings.HasPrefix(g, wkt.TypePolygon) {
			b.log.Warn("multipolygon promise broken", "relation", UniqueID(r), "member", m.Ref)
			return "", false
		}
		rings, err := wkt.ParseRings(g)
		if err != nil {
			return "", false
		}
		polys = append(polys, rings)
	}
	out, err := wkt.MultiPolygon(polys)
	return out, err == nil
}

// complexPolygon stitches outer and inner member ways into rings.
func (b *Builder) complexPolygon(r *osm.Relation) (string, bool) {
	id := UniqueID(r)
	var inners, outers []model.Chain
	for _, m := range r.Members {
		if m.Type != osm.TypeWay {
			b.log.Warn("multipolygon member is not a way", "relation", id, "member", m.Ref)
			return "", false
		}
		w, ok := b.res.Way(osm.WayID(m.Ref))
		if !ok {
			b.log.Warn("multipolygon member way missing", "relation", id, "member", m.Ref)
			return "", false
		}
		coords, err := b.WayCoords(w)
		if err != nil {
			b.log.Warn("multipolygon member unresolved", "relation", id, "error", err)
			return "", false
		}
		switch m.Role {
		case "inner":
			inners = append(inners, coords)
		case "outer":
			outers = append(outers, coords)
		default:
			b.log.Warn("unknown multipolygon member role", "relation", id, "role", m.Role)
			return "", false
		}
	}
	if err := stitch.ValidateChains(inners); err != nil {
		b.log.Warn("bad inner chain", "relation", id, "error", err)
		return "", false
	}
	if err := stitch.ValidateChains(outers); err != nil {
		b.log.Warn("bad outer chain", "relation", id, "error", err)
		return "", false
	}
	inners = stitch.ConnectSegments(inners)
	outers = stitch.ConnectSegments(outers)

	if len(outers) == 0 {
		return "", false
	}
	if len(outers) != 1 && len(inners) > 0 {
		b.log.Warn("multiple outer rings and some inner rings, geometry is ambiguous", "relation", id)
		return "", false
	}
	for _, ring := range append(outers, inners...) {
		if len(ring) < 4 {
			b.log.Warn("ring has too few points, falling back to a geometry collection", "relation", id)
			return "", false
		}
	}

	var (
		out string
		err error
	)
	switch {
	case len(inners) > 0:
		out, err = wkt.Polygon(append([]model.Chain{outers[0]}, inners...)...)
	case len(outers) == 1:
		out, err = wkt.Polygon(outers[0])
	default:
		polys := make([][]model.Chain, len(outers))
		for i, o := range outers {
			polys[i] = []model.Chain{o}
		}
		out, err = wkt.MultiPolygon(polys)
	}
	return out, err == nil
}
