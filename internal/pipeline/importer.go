// Package pipeline runs a single pass over an OSM dataset and turns its tagged objects
// into stored entities.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/osm"

	"github.com/mohammed-shakir/osm-area-store/internal/classify"
	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
	"github.com/mohammed-shakir/osm-area-store/internal/core/observability"
	"github.com/mohammed-shakir/osm-area-store/internal/core/wkt"
	"github.com/mohammed-shakir/osm-area-store/internal/entity"
	"github.com/mohammed-shakir/osm-area-store/internal/footprint"
	"github.com/mohammed-shakir/osm-area-store/internal/geometry/build"
)

// EntityWriter is the storage collaborator that receives the final batch.
type EntityWriter interface {
	PutEntities(ctx context.Context, area string, entities []*model.Entity) error
}

type Stats struct {
	Seen              int
	Stored            int
	Skipped           int
	Polygonized       int
	DegenerateBuffers int
	InvalidGeometries int
}

type Config struct {
	// CheckGeometries re-parses every built geometry before it is accepted.
	CheckGeometries bool
	// WayCacheSize pre-sizes the way index. Ways are never evicted, whatever the value.
	WayCacheSize int
}

type Importer struct {
	cfg        Config
	classifier *classify.Classifier
	table      *entity.Table
	translator *entity.Translator
	polygons   *footprint.Polygonizer
	writer     EntityWriter
	log        *slog.Logger
}

func New(cfg Config, cls *classify.Classifier, table *entity.Table, tr *entity.Translator,
	poly *footprint.Polygonizer, w EntityWriter, log *slog.Logger,
) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{cfg: cfg, classifier: cls, table: table, translator: tr, polygons: poly, writer: w, log: log}
}

// Run consumes the scanner to the end and commits the accumulated entities in one batch.
// Failures of individual objects are counted and logged, never returned.
func (im *Importer) Run(ctx context.Context, area string, sc osm.Scanner) (Stats, error) {
	var st Stats
	start := time.Now()
	idx := newObjectIndex(im.cfg.WayCacheSize)
	builder := build.New(idx, im.classifier, im.log)
	log := im.log.With("area", area)

	var out []*model.Entity
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		o := sc.Object()
		idx.add(o)

		tags := tagsOf(o)
		if len(tags) == 0 {
			continue
		}
		st.Seen++

		e, err := im.entity(builder, o, tags, log)
		if err != nil {
			st.Skipped++
			if errors.Is(err, wkt.ErrGeometryParse) {
				st.InvalidGeometries++
				observability.IncFeature(area, observability.OutcomeInvalid)
				log.Error("skipping feature with unparseable geometry", "id", build.UniqueID(o), "error", err)
			} else {
				observability.IncFeature(area, observability.OutcomeSkipped)
				log.Debug("skipping feature", "id", build.UniqueID(o), "error", err)
			}
			continue
		}

		var changed bool
		if im.polygons != nil {
			changed, err = im.polygons.Apply(e)
		}
		switch {
		case errors.Is(err, footprint.ErrDegenerateBuffer):
			st.DegenerateBuffers++
			observability.IncFootprint(area, true)
			log.Warn("keeping line geometry, footprint is degenerate", "id", e.ID, "width", e.EffectiveWidth, "error", err)
		case err != nil:
			st.Skipped++
			st.InvalidGeometries++
			observability.IncFeature(area, observability.OutcomeInvalid)
			log.Error("skipping feature", "id", e.ID, "error", err)
			continue
		case changed:
			st.Polygonized++
			observability.IncFootprint(area, false)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return st, fmt.Errorf("scan dataset: %w", err)
	}

	if im.writer != nil && len(out) > 0 {
		if err := im.writer.PutEntities(ctx, area, out); err != nil {
			return st, fmt.Errorf("commit entities: %w", err)
		}
	}
	st.Stored = len(out)
	for range out {
		observability.IncFeature(area, observability.OutcomeStored)
	}
	log.Info("import finished", "seen", st.Seen, "stored", st.Stored, "skipped", st.Skipped,
		"polygonized", st.Polygonized, "degenerate_buffers", st.DegenerateBuffers,
		"took", time.Since(start).String())
	return st, nil
}

var errUntranslatable = errors.New("no translation for tags")

func (im *Importer) entity(b *build.Builder, o osm.Object, tags map[string]string, log *slog.Logger) (*model.Entity, error) {
	tr, ok := im.translator.Translate(tags)
	if !ok {
		return nil, errUntranslatable
	}
	geom, err := b.Object(o)
	if err != nil {
		return nil, err
	}
	if im.cfg.CheckGeometries {
		if _, err := wkt.Parse(geom); err != nil {
			return nil, err
		}
	}

	data := im.table.ConvertFields(tr.Discriminator, tr.Fields, log)
	if len(tr.Address) > 0 {
		data["address"] = tr.Address
	}
	e := &model.Entity{
		ID:            build.UniqueID(o),
		OSMType:       osmType(o),
		Discriminator: tr.Discriminator,
		Geometry:      geom,
		Data:          data,
	}
	e.EffectiveWidth = im.table.EffectiveWidth(e.Discriminator, data)
	return e, nil
}

func tagsOf(o osm.Object) map[string]string {
	var tags osm.Tags
	switch v := o.(type) {
	case *osm.Node:
		tags = v.Tags
	case *osm.Way:
		tags = v.Tags
	case *osm.Relation:
		tags = v.Tags
	}
	if len(tags) == 0 {
		return nil
	}
	return tags.Map()
}

func osmType(o osm.Object) model.OSMType {
	switch o.(type) {
	case *osm.Node:
		return model.TypeNode
	case *osm.Way:
		return model.TypeWay
	}
	return model.TypeRelation
}
