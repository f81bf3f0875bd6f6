// Package store combines the entity documents and the cell index behind the two seams the
// importer and the search service talk to.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
	"github.com/mohammed-shakir/osm-area-store/internal/mapper"
	"github.com/mohammed-shakir/osm-area-store/internal/store/cellindex"
	"github.com/mohammed-shakir/osm-area-store/internal/store/entitystore"
	"github.com/mohammed-shakir/osm-area-store/internal/store/redisstore"
)

type Store struct {
	Entities entitystore.EntityStore
	Cells    cellindex.CellIndex
}

func NewRedisStore(cli *redisstore.Client, m mapper.Interface, res int, ttl time.Duration) *Store {
	return &Store{
		Entities: entitystore.NewRedisStore(cli, ttl),
		Cells:    cellindex.NewRedisIndex(cli, m, res),
	}
}

// PutEntities writes the documents first so an id is never indexed without its record.
func (s *Store) PutEntities(ctx context.Context, area string, entities []*model.Entity) error {
	if err := s.Entities.PutEntities(ctx, area, entities); err != nil {
		return err
	}
	if err := s.Cells.IndexEntities(ctx, area, entities); err != nil {
		return fmt.Errorf("index %d entities: %w", len(entities), err)
	}
	return nil
}

// Candidates returns the stored entities indexed near b in id order. Ids whose documents
// have expired are left out.
func (s *Store) Candidates(ctx context.Context, area string, b *orb.Bound) ([]*model.Entity, error) {
	ids, err := s.Cells.CandidateIDs(ctx, area, b)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	docs, err := s.Entities.MGetEntities(ctx, area, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Entity, 0, len(docs))
	for _, id := range ids {
		if e, ok := docs[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}
