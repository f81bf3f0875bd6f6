// Package wkt reads and writes the textual geometry form used at the storage boundary:
// "POLYGON((x y, x y, ...))", "LINESTRING(x y, ...)" and friends.
package wkt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	orbwkt "github.com/paulmach/orb/encoding/wkt"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
)

// ErrGeometryParse marks stored geometry text that cannot be read back into coordinates.
var ErrGeometryParse = errors.New("geometry parse failure")

const (
	TypePoint              = "POINT"
	TypeLineString         = "LINESTRING"
	TypePolygon            = "POLYGON"
	TypeMultiPolygon       = "MULTIPOLYGON"
	TypeGeometryCollection = "GEOMETRYCOLLECTION"
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// CoordsText renders "x y, x y, ..." with exact float round-tripping.
func CoordsText(cs []model.Coordinate) string {
	var b strings.Builder
	for i, c := range cs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(formatFloat(c[0]))
		b.WriteByte(' ')
		b.WriteString(formatFloat(c[1]))
	}
	return b.String()
}

func Point(c model.Coordinate) string {
	return fmt.Sprintf("POINT(%s)", CoordsText([]model.Coordinate{c}))
}

func LineString(c model.Chain) (string, error) {
	if len(c) < 2 {
		return "", errors.New("linestring has <2 points")
	}
	return fmt.Sprintf("LINESTRING(%s)", CoordsText(c)), nil
}

func polygonBody(rings []model.Chain) (string, error) {
	if len(rings) == 0 {
		return "", errors.New("empty polygon")
	}
	outRings := make([]string, 0, len(rings))
	for _, ring := range rings {
		if len(ring) < 4 {
			return "", errors.New("polygon ring has <4 points")
		}
		outRings = append(outRings, fmt.Sprintf("(%s)", CoordsText(ring)))
	}
	return fmt.Sprintf("(%s)", strings.Join(outRings, ", ")), nil
}

// Polygon renders an outer ring followed by holes.
func Polygon(rings ...model.Chain) (string, error) {
	body, err := polygonBody(rings)
	if err != nil {
		return "", err
	}
	return TypePolygon + body, nil
}

func MultiPolygon(polys [][]model.Chain) (string, error) {
	if len(polys) == 0 {
		return "", errors.New("empty multipolygon")
	}
	parts := make([]string, 0, len(polys))
	for _, poly := range polys {
		body, err := polygonBody(poly)
		if err != nil {
			return "", err
		}
		parts = append(parts, body)
	}
	return fmt.Sprintf("MULTIPOLYGON(%s)", strings.Join(parts, ", ")), nil
}

// Collection joins already rendered member geometries.
func Collection(parts []string) string {
	return fmt.Sprintf("GEOMETRYCOLLECTION(%s)", strings.Join(parts, ", "))
}

// GeometryType returns the upper-cased tag in front of the first parenthesis.
func GeometryType(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

func Parse(s string) (orb.Geometry, error) {
	g, err := orbwkt.Unmarshal(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeometryParse, err)
	}
	return g, nil
}

// ParseChain reads the coordinate list of a LINESTRING, or the outer ring of a POLYGON.
func ParseChain(s string) (model.Chain, error) {
	g, err := Parse(s)
	if err != nil {
		return nil, err
	}
	switch v := g.(type) {
	case orb.LineString:
		return model.Chain(v), nil
	case orb.Polygon:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty polygon", ErrGeometryParse)
		}
		return model.Chain(v[0]), nil
	case orb.Ring:
		return model.Chain(v), nil
	default:
		return nil, fmt.Errorf("%w: %s has no single coordinate chain", ErrGeometryParse, g.GeoJSONType())
	}
}

// ParseRings reads every ring of a POLYGON.
func ParseRings(s string) ([]model.Chain, error) {
	g, err := Parse(s)
	if err != nil {
		return nil, err
	}
	p, ok := g.(orb.Polygon)
	if !ok {
		return nil, fmt.Errorf("%w: expected polygon, got %s", ErrGeometryParse, g.GeoJSONType())
	}
	out := make([]model.Chain, 0, len(p))
	for _, r := range p {
		out = append(out, model.Chain(r))
	}
	return out, nil
}

// FirstPoint is the first coordinate of any geometry.
func FirstPoint(s string) (model.Coordinate, error) {
	g, err := Parse(s)
	if err != nil {
		return model.Coordinate{}, err
	}
	if p, ok := first(g); ok {
		return p, nil
	}
	return model.Coordinate{}, fmt.Errorf("%w: empty geometry", ErrGeometryParse)
}

func first(g orb.Geometry) (orb.Point, bool) {
	switch v := g.(type) {
	case orb.Point:
		return v, true
	case orb.MultiPoint:
		if len(v) > 0 {
			return v[0], true
		}
	case orb.LineString:
		if len(v) > 0 {
			return v[0], true
		}
	case orb.Ring:
		if len(v) > 0 {
			return v[0], true
		}
	case orb.MultiLineString:
		for _, ls := range v {
			if p, ok := first(ls); ok {
				return p, true
			}
		}
	case orb.Polygon:
		for _, r := range v {
			if p, ok := first(r); ok {
				return p, true
			}
		}
	case orb.MultiPolygon:
		for _, p := range v {
			if pt, ok := first(p); ok {
				return pt, true
			}
		}
	case orb.Collection:
		for _, m := range v {
			if p, ok := first(m); ok {
				return p, true
			}
		}
	}
	return orb.Point{}, false
}

// Bound returns the bounding box of a stored geometry.
func Bound(s string) (orb.Bound, error) {
	g, err := Parse(s)
	if err != nil {
		return orb.Bound{}, err
	}
	return g.Bound(), nil
}
