package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mohammed-shakir/osm-area-store/internal/classify"
	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
	"github.com/mohammed-shakir/osm-area-store/internal/core/wkt"
	"github.com/mohammed-shakir/osm-area-store/internal/entity"
	"github.com/mohammed-shakir/osm-area-store/internal/footprint"
	"github.com/mohammed-shakir/osm-area-store/internal/zone"
)

const dataset = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
 <node id="1" lat="50.08" lon="14.42"/>
 <node id="2" lat="50.08" lon="14.43"/>
 <node id="3" lat="50.09" lon="14.43"/>
 <node id="4" lat="50.09" lon="14.42"/>
 <node id="5" lat="50.085" lon="14.425"><tag k="power" v="tower"/></node>
 <way id="10"><nd ref="1"/><nd ref="2"/><nd ref="3"/><nd ref="4"/><tag k="building" v="yes"/><tag k="building:levels" v="3"/></way>
 <way id="11"><nd ref="1"/><nd ref="3"/><tag k="highway" v="primary"/><tag k="width" v="8 m"/><tag k="name" v="Main"/></way>
 <way id="12"><nd ref="2"/><nd ref="2"/><tag k="highway" v="footway"/><tag k="width" v="2"/></way>
 <way id="13"><nd ref="1"/><nd ref="99"/><tag k="highway" v="service"/></way>
 <way id="14"><nd ref="1"/><nd ref="2"/><tag k="source" v="survey"/></way>
 <way id="15"><nd ref="1"/><nd ref="2"/><nd ref="3"/></way>
 <way id="16"><nd ref="3"/><nd ref="4"/><nd ref="1"/></way>
 <relation id="20">
  <member type="way" ref="15" role="outer"/>
  <member type="way" ref="16" role="outer"/>
  <tag k="type" v="multipolygon"/><tag k="building" v="yes"/>
 </relation>
</osm>`

type memWriter struct {
	area  string
	got   []*model.Entity
	err   error
	calls int
}

func (w *memWriter) PutEntities(_ context.Context, area string, es []*model.Entity) error {
	w.calls++
	w.area = area
	w.got = append(w.got, es...)
	return w.err
}

func (w *memWriter) byID() map[string]*model.Entity {
	out := map[string]*model.Entity{}
	for _, e := range w.got {
		out[e.ID] = e
	}
	return out
}

func newImporter(t *testing.T, w EntityWriter) *Importer {
	t.Helper()
	return newImporterWith(t, Config{CheckGeometries: true}, w)
}

func newImporterWith(t *testing.T, cfg Config, w EntityWriter) *Importer {
	t.Helper()
	cls, err := classify.Default()
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	table := entity.DefaultTable()
	poly := footprint.New(zone.NewResolver(8), table, footprint.Options{WidthIsDiameter: true})
	return New(cfg, cls, table, entity.DefaultTranslator(), poly, w, nil)
}

func run(t *testing.T, ctx context.Context, im *Importer) (Stats, error) {
	t.Helper()
	sc, err := NewScanner(ctx, strings.NewReader(dataset), FormatXML)
	if err != nil {
		t.Fatalf("scanner: %v", err)
	}
	defer sc.Close()
	return im.Run(ctx, "prague", sc)
}

func TestImporter_Run(t *testing.T) {
	w := &memWriter{}
	st, err := run(t, context.Background(), newImporter(t, w))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := Stats{Seen: 7, Stored: 5, Skipped: 2, Polygonized: 1, DegenerateBuffers: 1}
	if st != want {
		t.Fatalf("stats=%+v want %+v", st, want)
	}
	if w.calls != 1 || w.area != "prague" || len(w.got) != 5 {
		t.Fatalf("writer calls=%d area=%q entities=%d", w.calls, w.area, len(w.got))
	}

	got := w.byID()
	if e := got["n5"]; e == nil || e.Discriminator != "power" || e.Geometry != "POINT(14.425 50.085)" {
		t.Fatalf("n5=%+v", e)
	}
	if e := got["w10"]; e == nil || wkt.GeometryType(e.Geometry) != wkt.TypePolygon || e.Data["levels"] != int64(3) {
		t.Fatalf("w10=%+v", e)
	}

	road := got["w11"]
	if road == nil || wkt.GeometryType(road.Geometry) != wkt.TypePolygon {
		t.Fatalf("w11 should carry a footprint: %+v", road)
	}
	if road.OriginalGeometry != "LINESTRING(14.42 50.08, 14.43 50.09)" || road.EffectiveWidth != 8 {
		t.Fatalf("w11 original=%q width=%v", road.OriginalGeometry, road.EffectiveWidth)
	}

	footway := got["w12"]
	if footway == nil || wkt.GeometryType(footway.Geometry) != wkt.TypeLineString || footway.OriginalGeometry != "" {
		t.Fatalf("w12 should keep its line: %+v", footway)
	}

	if e := got["r20"]; e == nil || e.Geometry != "POLYGON((14.42 50.08, 14.43 50.08, 14.43 50.09, 14.42 50.09, 14.42 50.08))" {
		t.Fatalf("r20=%+v", e)
	}
	for _, skipped := range []string{"w13", "w14", "w15"} {
		if _, ok := got[skipped]; ok {
			t.Fatalf("%s should not be stored", skipped)
		}
	}
}

func TestImporter_RelationAfterManyWays(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><osm version="0.6">
 <node id="1" lat="50.08" lon="14.42"/>
 <node id="2" lat="50.08" lon="14.43"/>
 <node id="3" lat="50.09" lon="14.43"/>
 <node id="4" lat="50.09" lon="14.42"/>
 <way id="15"><nd ref="1"/><nd ref="2"/><nd ref="3"/></way>
 <way id="16"><nd ref="3"/><nd ref="4"/><nd ref="1"/></way>
`)
	for id := 100; id < 140; id++ {
		fmt.Fprintf(&b, " <way id=\"%d\"><nd ref=\"1\"/><nd ref=\"2\"/></way>\n", id)
	}
	b.WriteString(` <relation id="20">
  <member type="way" ref="15" role="outer"/>
  <member type="way" ref="16" role="outer"/>
  <tag k="type" v="multipolygon"/><tag k="building" v="yes"/>
 </relation>
 <relation id="21">
  <member type="way" ref="15" role="outer"/>
  <member type="way" ref="17" role="outer"/>
  <tag k="type" v="multipolygon"/><tag k="building" v="yes"/>
 </relation>
</osm>`)

	ctx := context.Background()
	sc, err := NewScanner(ctx, strings.NewReader(b.String()), FormatXML)
	if err != nil {
		t.Fatalf("scanner: %v", err)
	}
	defer sc.Close()

	w := &memWriter{}
	st, err := newImporterWith(t, Config{CheckGeometries: true, WayCacheSize: 2}, w).Run(ctx, "prague", sc)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.Seen != 2 || st.Stored != 1 || st.Skipped != 1 {
		t.Fatalf("stats=%+v", st)
	}
	got := w.byID()
	if e := got["r20"]; e == nil || e.Geometry != "POLYGON((14.42 50.08, 14.43 50.08, 14.43 50.09, 14.42 50.09, 14.42 50.08))" {
		t.Fatalf("r20=%+v", e)
	}
	// way 17 does not exist, so r21 must be skipped rather than stored as half a ring
	if e, ok := got["r21"]; ok {
		t.Fatalf("r21 stored as %s", e.Geometry)
	}
}

func TestImporter_WriterFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := run(t, context.Background(), newImporter(t, &memWriter{err: boom}))
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v want boom", err)
	}
}

func TestImporter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &memWriter{}
	_, err := run(t, ctx, newImporter(t, w))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if w.calls != 0 {
		t.Fatal("nothing may be committed after cancellation")
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path, explicit string
		want           Format
		ok             bool
	}{
		{"czech.osm.pbf", "", FormatPBF, true},
		{"prague.osm", "", FormatXML, true},
		{"dump.bin", "pbf", FormatPBF, true},
		{"dump.bin", "", "", false},
		{"dump.osm", "geojson", "", false},
	}
	for _, tc := range tests {
		got, err := DetectFormat(tc.path, tc.explicit)
		if (err == nil) != tc.ok || got != tc.want {
			t.Fatalf("DetectFormat(%q,%q)=%q,%v", tc.path, tc.explicit, got, err)
		}
	}
}
