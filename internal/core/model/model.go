// Package model defines core domain types shared across the pipeline and the search service.
package model

import (
	"github.com/paulmach/orb"
)

// Coordinate is an (x, y) pair; in the storage system that is (lon, lat) in EPSG:4326.
type Coordinate = orb.Point

// Chain is one contiguous piece of a feature boundary, possibly open.
type Chain = orb.LineString

// Ring is a closed chain (first == last).
type Ring = orb.Ring

// StorageSRID is the coordinate system entity geometries are stored in.
const StorageSRID = 4326

type Cells []string

type OSMType string

const (
	TypeNode     OSMType = "node"
	TypeWay      OSMType = "way"
	TypeRelation OSMType = "relation"
)

// Prefix is the single-letter form used in unique ids ("w123").
func (t OSMType) Prefix() string {
	switch t {
	case TypeNode:
		return "n"
	case TypeWay:
		return "w"
	case TypeRelation:
		return "r"
	}
	return "?"
}

// Entity is the record handed to the storage collaborator. The geometry pipeline only
// ever writes Geometry and OriginalGeometry.
type Entity struct {
	ID               string         `json:"id"`
	OSMType          OSMType        `json:"osm_type"`
	Discriminator    string         `json:"discriminator"`
	Geometry         string         `json:"geometry"`
	OriginalGeometry string         `json:"original_geometry,omitempty"`
	Data             map[string]any `json:"data,omitempty"`
	EffectiveWidth   float64        `json:"-"`
}

// Key identifies the entity together with its discriminator.
func (e *Entity) Key() string {
	return e.Discriminator + ":" + e.ID
}

// Field returns the tag-derived value stored under name, if any.
func (e *Entity) Field(name string) (any, bool) {
	if e.Data == nil {
		return nil, false
	}
	v, ok := e.Data[name]
	return v, ok
}

// SearchRequest is a validated /search query.
type SearchRequest struct {
	Area          string
	Center        Coordinate
	Distance      float64
	Discriminator string
	PreferMajor   bool
}
