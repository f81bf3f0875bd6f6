package pipeline

import (
	"github.com/paulmach/osm"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
)

// objectIndex remembers what later objects may reference during a single pass. Nothing
// is evicted: a relation may name a way read millions of objects earlier.
type objectIndex struct {
	nodes     map[osm.NodeID]model.Coordinate
	ways      map[osm.WayID]*osm.Way
	relations map[osm.RelationID]*osm.Relation
}

// newObjectIndex sizes the way map up front; wayHint is a capacity, not a limit.
func newObjectIndex(wayHint int) *objectIndex {
	if wayHint < 0 {
		wayHint = 0
	}
	return &objectIndex{
		nodes:     map[osm.NodeID]model.Coordinate{},
		ways:      make(map[osm.WayID]*osm.Way, wayHint),
		relations: map[osm.RelationID]*osm.Relation{},
	}
}

func (x *objectIndex) add(o osm.Object) {
	switch v := o.(type) {
	case *osm.Node:
		x.nodes[v.ID] = v.Point()
	case *osm.Way:
		// only the node list and tags are needed to rebuild a member way
		x.ways[v.ID] = &osm.Way{ID: v.ID, Nodes: v.Nodes, Tags: v.Tags}
	case *osm.Relation:
		x.relations[v.ID] = v
	}
}

func (x *objectIndex) Node(id osm.NodeID) (model.Coordinate, bool) {
	c, ok := x.nodes[id]
	return c, ok
}

func (x *objectIndex) Way(id osm.WayID) (*osm.Way, bool) {
	w, ok := x.ways[id]
	return w, ok
}

func (x *objectIndex) Relation(id osm.RelationID) (*osm.Relation, bool) {
	r, ok := x.relations[id]
	return r, ok
}
