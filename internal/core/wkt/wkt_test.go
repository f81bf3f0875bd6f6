package wkt

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
)

func TestFormatters(t *testing.T) {
	if got := Point(model.Coordinate{14.5, 50.25}); got != "POINT(14.5 50.25)" {
		t.Fatalf("Point=%q", got)
	}

	ls, err := LineString(model.Chain{{1, 2}, {3.125, -4}})
	if err != nil || ls != "LINESTRING(1 2, 3.125 -4)" {
		t.Fatalf("LineString=%q err=%v", ls, err)
	}
	if _, err := LineString(model.Chain{{1, 2}}); err == nil {
		t.Fatalf("expected error for 1-point linestring")
	}

	outer := model.Chain{{0, 0}, {10, 0}, {10, 10}, {0, 0}}
	hole := model.Chain{{1, 1}, {2, 1}, {2, 2}, {1, 1}}
	poly, err := Polygon(outer, hole)
	if err != nil {
		t.Fatalf("Polygon: %v", err)
	}
	want := "POLYGON((0 0, 10 0, 10 10, 0 0), (1 1, 2 1, 2 2, 1 1))"
	if poly != want {
		t.Fatalf("Polygon=%q want %q", poly, want)
	}
	if _, err := Polygon(model.Chain{{0, 0}, {1, 1}, {0, 0}}); err == nil {
		t.Fatalf("expected error for short ring")
	}

	mp, err := MultiPolygon([][]model.Chain{{outer}, {hole}})
	if err != nil {
		t.Fatalf("MultiPolygon: %v", err)
	}
	if mp != "MULTIPOLYGON(((0 0, 10 0, 10 10, 0 0)), ((1 1, 2 1, 2 2, 1 1)))" {
		t.Fatalf("MultiPolygon=%q", mp)
	}

	gc := Collection([]string{"POINT(1 2)", ls})
	if gc != "GEOMETRYCOLLECTION(POINT(1 2), LINESTRING(1 2, 3.125 -4))" {
		t.Fatalf("Collection=%q", gc)
	}
}

func TestParseChain_ExactRoundTrip(t *testing.T) {
	in := model.Chain{{14.4208771, 50.0875726}, {14.4211003, 50.0871234}, {0.1, -0.3}}
	text, err := LineString(in)
	if err != nil {
		t.Fatalf("LineString: %v", err)
	}
	got, err := ParseChain(text)
	if err != nil {
		t.Fatalf("ParseChain: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("round trip changed coordinates: %v vs %v", got, in)
	}
}

func TestParseRings(t *testing.T) {
	rings, err := ParseRings("POLYGON((0 0, 10 0, 10 10, 0 0), (1 1, 2 1, 2 2, 1 1))")
	if err != nil {
		t.Fatalf("ParseRings: %v", err)
	}
	if len(rings) != 2 || len(rings[1]) != 4 {
		t.Fatalf("rings=%v", rings)
	}
	if _, err := ParseRings("LINESTRING(0 0, 1 1)"); !errors.Is(err, ErrGeometryParse) {
		t.Fatalf("err=%v want ErrGeometryParse", err)
	}
}

func TestParse_FailureIsDistinguishable(t *testing.T) {
	for _, s := range []string{"", "POLYGON((0 0, 1", "CIRCLE(1 2 3)"} {
		if _, err := ParseChain(s); !errors.Is(err, ErrGeometryParse) {
			t.Fatalf("ParseChain(%q) err=%v want ErrGeometryParse", s, err)
		}
	}
	if _, err := ParseChain("POINT(1 2)"); !errors.Is(err, ErrGeometryParse) {
		t.Fatalf("point has no chain, err=%v", err)
	}
}

func TestGeometryType(t *testing.T) {
	cases := map[string]string{
		"POLYGON((0 0, 1 1))":   TypePolygon,
		" linestring(0 0, 1 1)": TypeLineString,
		"POINT (1 2)":           TypePoint,
		"GEOMETRYCOLLECTION()":  TypeGeometryCollection,
	}
	for in, want := range cases {
		if got := GeometryType(in); got != want {
			t.Fatalf("GeometryType(%q)=%q want %q", in, got, want)
		}
	}
}

func TestFirstPointAndBound(t *testing.T) {
	p, err := FirstPoint("LINESTRING(3 4, 5 6)")
	if err != nil || p != (model.Coordinate{3, 4}) {
		t.Fatalf("FirstPoint=%v err=%v", p, err)
	}
	p, err = FirstPoint("GEOMETRYCOLLECTION(POINT(7 8), LINESTRING(3 4, 5 6))")
	if err != nil || p != (model.Coordinate{7, 8}) {
		t.Fatalf("FirstPoint collection=%v err=%v", p, err)
	}
	b, err := Bound("LINESTRING(3 4, 5 -6)")
	if err != nil {
		t.Fatalf("Bound: %v", err)
	}
	if b.Min != (model.Coordinate{3, -6}) || b.Max != (model.Coordinate{5, 4}) {
		t.Fatalf("Bound=%v", b)
	}
}
