package search

import (
	"fmt"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
)

// RoadPreference steers road selection away from minor (pedestrian-only) subtypes. It only
// ever tries: when every candidate is minor, the candidates are returned as they are.
type RoadPreference struct {
	Avoid bool
	// Field holds the subtype; Minor lists the subtype values to avoid.
	Field string
	Minor map[string]struct{}
}

func DefaultRoadPreference(avoid bool) RoadPreference {
	return RoadPreference{
		Avoid: avoid,
		Field: "type",
		Minor: map[string]struct{}{"footway": {}},
	}
}

func (p RoadPreference) isMinor(e *model.Entity) bool {
	v, ok := e.Field(p.Field)
	if !ok {
		return false
	}
	_, minor := p.Minor[fmt.Sprint(v)]
	return minor
}

// PreferMajor drops minor roads unless that would leave nothing.
func (p RoadPreference) PreferMajor(roads []*model.Entity) []*model.Entity {
	if !p.Avoid {
		return roads
	}
	major := make([]*model.Entity, 0, len(roads))
	for _, r := range roads {
		if !p.isMinor(r) {
			major = append(major, r)
		}
	}
	if len(major) == 0 {
		return roads
	}
	return major
}

// LastMajor returns the last non-minor road, falling back to the last road. Nil for no roads.
func (p RoadPreference) LastMajor(roads []*model.Entity) *model.Entity {
	if len(roads) == 0 {
		return nil
	}
	if p.Avoid {
		for i := len(roads) - 1; i >= 0; i-- {
			if !p.isMinor(roads[i]) {
				return roads[i]
			}
		}
	}
	return roads[len(roads)-1]
}
