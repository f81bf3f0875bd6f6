// Package entitystore keeps entity records as JSON documents in redis.
package entitystore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
	"github.com/mohammed-shakir/osm-area-store/internal/store/keys"
	"github.com/mohammed-shakir/osm-area-store/internal/store/redisstore"
)

type EntityStore interface {
	MGetEntities(ctx context.Context, area string, ids []string) (map[string]*model.Entity, error)

	PutEntities(ctx context.Context, area string, entities []*model.Entity) error
}

type redisEntityStore struct {
	cli *redisstore.Client
	ttl time.Duration
}

// NewRedisStore stores entities under ent:<area>:<id>. A zero ttl keeps them forever.
func NewRedisStore(cli *redisstore.Client, ttl time.Duration) EntityStore {
	return &redisEntityStore{cli: cli, ttl: ttl}
}

func (s *redisEntityStore) MGetEntities(
	ctx context.Context,
	area string,
	ids []string,
) (map[string]*model.Entity, error) {
	if len(ids) == 0 {
		return map[string]*model.Entity{}, nil
	}

	ks := make([]string, len(ids))
	for i, id := range ids {
		ks[i] = keys.Entity(area, id)
	}

	raw, err := s.cli.MGet(ctx, ks)
	if err != nil {
		return nil, fmt.Errorf("entitystore redis MGET %d keys: %w", len(ks), err)
	}

	out := make(map[string]*model.Entity, len(raw))
	for i, id := range ids {
		body, ok := raw[ks[i]]
		if !ok {
			continue
		}
		var e model.Entity
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("entitystore decode %q: %w", id, err)
		}
		out[id] = &e
	}
	return out, nil
}

func (s *redisEntityStore) PutEntities(
	ctx context.Context,
	area string,
	entities []*model.Entity,
) error {
	if len(entities) == 0 {
		return nil
	}

	kv := make(map[string][]byte, len(entities))
	for _, e := range entities {
		body, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("entitystore encode %q: %w", e.ID, err)
		}
		kv[keys.Entity(area, e.ID)] = body
	}
	if err := s.cli.MSetWithTTL(ctx, kv, s.ttl); err != nil {
		return fmt.Errorf("entitystore write %d entities: %w", len(kv), err)
	}
	return nil
}
