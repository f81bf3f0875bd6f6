package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
	"github.com/mohammed-shakir/osm-area-store/internal/core/observability"
)

var ErrInvalidRequest = errors.New("invalid search request")

// CandidateSource is the coarse spatial index. A nil bound asks for every entity of the area.
type CandidateSource interface {
	Candidates(ctx context.Context, area string, bound *orb.Bound) ([]*model.Entity, error)
}

// Kinds expands a discriminator into the discriminators that satisfy a search for it.
type Kinds interface {
	Descendants(discriminator string) []string
}

type Service struct {
	src    CandidateSource
	kinds  Kinds
	filter *Filter
	roads  RoadPreference
	log    *slog.Logger
}

func NewService(src CandidateSource, kinds Kinds, filter *Filter, roads RoadPreference, log *slog.Logger) *Service {
	if filter == nil {
		filter = NewFilter(nil)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{src: src, kinds: kinds, filter: filter, roads: roads, log: log}
}

func (s *Service) Search(ctx context.Context, req model.SearchRequest) ([]*model.Entity, error) {
	if req.Area == "" {
		return nil, fmt.Errorf("area required: %w", ErrInvalidRequest)
	}

	var bound *orb.Bound
	if !Unbounded(req.Distance) {
		b := BoundingSquare(req.Center, 2*req.Distance)
		bound = &b
	}
	candidates, err := s.src.Candidates(ctx, req.Area, bound)
	if err != nil {
		return nil, fmt.Errorf("candidates: %w", err)
	}

	if req.Discriminator != "" {
		var allowed []string
		if s.kinds != nil {
			allowed = s.kinds.Descendants(req.Discriminator)
		}
		if len(allowed) == 0 {
			allowed = []string{req.Discriminator}
		}
		candidates = slices.DeleteFunc(candidates, func(e *model.Entity) bool {
			return !slices.Contains(allowed, e.Discriminator)
		})
	}

	out, bad := s.filter.Within(candidates, req.Center, req.Distance)
	if len(bad) > 0 {
		badIDs := make([]string, len(bad))
		for i, e := range bad {
			badIDs[i] = e.ID
		}
		observability.AddUnparseable(req.Area, len(bad))
		s.log.WarnContext(ctx, "skipping candidates with unparseable geometry",
			"area", req.Area, "count", len(bad), "ids", badIDs)
	}
	if req.PreferMajor {
		out = s.roads.PreferMajor(out)
	}
	s.log.DebugContext(ctx, "search done", "area", req.Area, "candidates", len(candidates), "results", len(out))
	return out, nil
}
