package h3mapper

import (
	"reflect"
	"slices"
	"sort"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
)

func TestCover_HappyPath_SortedUnique(t *testing.T) {
	m := New()
	bb := orb.Bound{Min: orb.Point{17.95, 59.30}, Max: orb.Point{18.15, 59.40}}

	cells, err := m.Cover(bb, 8)
	if err != nil {
		t.Fatalf("Cover err: %v", err)
	}
	if len(cells) == 0 {
		t.Fatalf("expected non-empty cells for bbox")
	}
	if !sort.StringsAreSorted([]string(cells)) {
		t.Fatalf("cells must be sorted")
	}
	if hasDups(cells) {
		t.Fatalf("cells must be de-duplicated")
	}
}

func TestPolygon_SubsetOfBBoxAndDeterministic(t *testing.T) {
	m := New()
	bb := orb.Bound{Min: orb.Point{17.95, 59.30}, Max: orb.Point{18.15, 59.40}}

	poly := orb.Polygon{{{18.00, 59.32}, {18.12, 59.32}, {18.12, 59.38}, {18.00, 59.38}, {18.00, 59.32}}}
	res := 9
	cp, err := m.CellsForPolygon(poly, res)
	if err != nil {
		t.Fatalf("polygon: %v", err)
	}
	cb, err := m.Cover(bb, res)
	if err != nil {
		t.Fatalf("bbox: %v", err)
	}
	// polygon should be subset of bbox
	if len(cp) == 0 {
		t.Fatalf("expected non-empty polygon coverage")
	}
	if !sort.StringsAreSorted([]string(cp)) || hasDups(cp) {
		t.Fatalf("polygon cells must be sorted + unique")
	}
	cp2, err := m.CellsForPolygon(poly, res)
	if err != nil {
		t.Fatalf("polygon second call: %v", err)
	}
	if !reflect.DeepEqual(cp, cp2) {
		t.Fatalf("expected identical output for identical input")
	}
	if len(cp) > len(cb) {
		t.Fatalf("polygon coverage larger than bbox coverage (unexpected)")
	}
}

func TestBounds_InvalidResolutionAndDegeneratePolygon(t *testing.T) {
	m := New()
	bb := orb.Bound{Min: orb.Point{11, 55}, Max: orb.Point{12, 56}}

	// resolution bounds check
	if _, err := m.Cover(bb, -1); err == nil {
		t.Fatalf("expected error for res=-1")
	}
	if _, err := m.CellsForPolygon(bb.ToPolygon(), 16); err == nil {
		t.Fatalf("expected error for res=16")
	}
	if _, err := m.Cover(bb, 16); err == nil {
		t.Fatalf("expected error for res=16")
	}

	// invalid polygon with no coordinates
	if _, err := m.CellsForPolygon(orb.Polygon{{}}, 8); err == nil {
		t.Fatalf("expected error for degenerate polygon")
	}
}

func TestCover_TinyAndPointBounds(t *testing.T) {
	m := New()
	p := orb.Point{14.4213, 50.0874}

	point, err := m.Cover(orb.Bound{Min: p, Max: p}, 8)
	if err != nil {
		t.Fatalf("point cover: %v", err)
	}
	want, err := m.CellForPoint(p, 8)
	if err != nil {
		t.Fatalf("CellForPoint: %v", err)
	}
	if len(point) != 1 || point[0] != want {
		t.Fatalf("point cover=%v want [%s]", point, want)
	}

	tiny := orb.Bound{Min: p, Max: orb.Point{p[0] + 1e-5, p[1] + 1e-5}}
	cells, err := m.Cover(tiny, 8)
	if err != nil || len(cells) == 0 {
		t.Fatalf("tiny cover=%v err=%v", cells, err)
	}

	wide := orb.Bound{Min: orb.Point{14.40, 50.07}, Max: orb.Point{14.44, 50.10}}
	big, err := m.Cover(wide, 8)
	if err != nil {
		t.Fatalf("wide cover: %v", err)
	}
	if !sort.StringsAreSorted([]string(big)) || hasDups(big) {
		t.Fatalf("cover must be sorted + unique")
	}
	if !slices.Contains(big, want) {
		t.Fatalf("wide cover misses the cell of an inner point")
	}
}

func TestDilate_AddsNeighbours(t *testing.T) {
	m := New()
	c, err := m.CellForPoint(orb.Point{14.4213, 50.0874}, 8)
	if err != nil {
		t.Fatalf("CellForPoint: %v", err)
	}
	got, err := m.Dilate(model.Cells{c}, 1)
	if err != nil {
		t.Fatalf("Dilate: %v", err)
	}
	if len(got) != 7 || !slices.Contains(got, c) {
		t.Fatalf("1-ring of a hexagon should have 7 cells including itself, got %v", got)
	}
	same, _ := m.Dilate(model.Cells{c}, 0)
	if len(same) != 1 {
		t.Fatalf("k=0 must not dilate")
	}
	if _, err := m.Dilate(model.Cells{"not-a-cell"}, 1); err == nil {
		t.Fatal("expected parse error")
	}
}

func hasDups(s []string) bool {
	seen := map[string]struct{}{}
	for _, v := range s {
		if _, ok := seen[v]; ok {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}
