// Package cellindex maps H3 cells to the ids of the entities whose bounds touch them.
package cellindex

import (
	"context"
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
	"github.com/mohammed-shakir/osm-area-store/internal/core/wkt"
	"github.com/mohammed-shakir/osm-area-store/internal/mapper"
	"github.com/mohammed-shakir/osm-area-store/internal/store/keys"
	"github.com/mohammed-shakir/osm-area-store/internal/store/redisstore"
)

type CellIndex interface {
	// IndexEntities adds every entity to the cells its geometry bound covers.
	IndexEntities(ctx context.Context, area string, entities []*model.Entity) error

	// CandidateIDs returns the ids indexed under the cells covering b, or every id of the
	// area when b is nil. The result is a superset of what b really contains.
	CandidateIDs(ctx context.Context, area string, b *orb.Bound) ([]string, error)
}

type redisCellIndex struct {
	cli *redisstore.Client
	m   mapper.Interface
	res int
}

func NewRedisIndex(cli *redisstore.Client, m mapper.Interface, res int) CellIndex {
	return &redisCellIndex{cli: cli, m: m, res: res}
}

func (ci *redisCellIndex) IndexEntities(ctx context.Context, area string, entities []*model.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	sets := map[string][]string{}
	all := make([]string, 0, len(entities))
	for _, e := range entities {
		b, err := wkt.Bound(e.Geometry)
		if err != nil {
			return fmt.Errorf("cellindex bound of %q: %w", e.ID, err)
		}
		cells, err := ci.m.Cover(b, ci.res)
		if err != nil {
			return fmt.Errorf("cellindex cover %q: %w", e.ID, err)
		}
		for _, c := range cells {
			k := keys.Cell(area, ci.res, c)
			sets[k] = append(sets[k], e.ID)
		}
		all = append(all, e.ID)
	}
	sets[keys.AreaMembers(area)] = all

	if err := ci.cli.SAddMany(ctx, sets); err != nil {
		return fmt.Errorf("cellindex write %d sets: %w", len(sets), err)
	}
	return nil
}

func (ci *redisCellIndex) CandidateIDs(ctx context.Context, area string, b *orb.Bound) ([]string, error) {
	var (
		ids []string
		err error
	)
	if b == nil {
		ids, err = ci.cli.SMembers(ctx, keys.AreaMembers(area))
	} else {
		var cells model.Cells
		cells, err = ci.m.Cover(*b, ci.res)
		if err == nil {
			cells, err = ci.m.Dilate(cells, 1)
		}
		if err != nil {
			return nil, fmt.Errorf("cellindex cover query: %w", err)
		}
		ks := make([]string, len(cells))
		for i, c := range cells {
			ks[i] = keys.Cell(area, ci.res, c)
		}
		ids, err = ci.cli.SUnion(ctx, ks...)
	}
	if err != nil {
		return nil, fmt.Errorf("cellindex lookup: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}
