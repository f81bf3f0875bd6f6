package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
	"github.com/mohammed-shakir/osm-area-store/internal/core/observability"
	"github.com/mohammed-shakir/osm-area-store/internal/search"
)

// Searcher answers validated search requests.
type Searcher interface {
	Search(ctx context.Context, req model.SearchRequest) ([]*model.Entity, error)
}

type searchResponse struct {
	Area     string          `json:"area"`
	Count    int             `json:"count"`
	Entities []*model.Entity `json:"entities"`
}

// HandleSearch validates the query string and calls s.
func HandleSearch(logger *slog.Logger, s Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, "/search", sw.code, time.Since(start).Seconds())
		}()

		req, err := ParseSearchRequest(r)
		if err != nil {
			http.Error(sw, err.Error(), http.StatusBadRequest)
			return
		}

		out, err := s.Search(r.Context(), req)
		switch {
		case errors.Is(err, search.ErrInvalidRequest):
			http.Error(sw, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			logger.ErrorContext(r.Context(), "search failed", "area", req.Area, "err", err)
			http.Error(sw, "search failed", http.StatusBadGateway)
			return
		}
		if out == nil {
			out = []*model.Entity{}
		}
		observability.ObserveSearch(req.Area, len(out))

		sw.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(sw).Encode(searchResponse{Area: req.Area, Count: len(out), Entities: out}); err != nil {
			logger.WarnContext(r.Context(), "encode search response", "err", err)
		}
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// ParseSearchRequest reads area, lon, lat, distance, discriminator and prefer_major.
// A missing distance, "0" or "inf" all mean no limit.
func ParseSearchRequest(r *http.Request) (model.SearchRequest, error) {
	q := r.URL.Query()

	area := strings.TrimSpace(q.Get("area"))
	if area == "" {
		return model.SearchRequest{}, errors.New("missing required parameter: area")
	}

	lon, err := parseCoord(q.Get("lon"), 180)
	if err != nil {
		return model.SearchRequest{}, fmt.Errorf("invalid lon: %w", err)
	}
	lat, err := parseCoord(q.Get("lat"), 90)
	if err != nil {
		return model.SearchRequest{}, fmt.Errorf("invalid lat: %w", err)
	}

	dist := math.Inf(1)
	if raw := strings.TrimSpace(q.Get("distance")); raw != "" {
		dist, err = strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(dist) {
			return model.SearchRequest{}, fmt.Errorf("invalid distance %q", raw)
		}
		if dist < 0 {
			return model.SearchRequest{}, errors.New("distance must not be negative")
		}
	}

	prefer := false
	if raw := strings.TrimSpace(q.Get("prefer_major")); raw != "" {
		prefer, err = strconv.ParseBool(raw)
		if err != nil {
			return model.SearchRequest{}, fmt.Errorf("invalid prefer_major %q", raw)
		}
	}

	return model.SearchRequest{
		Area:          area,
		Center:        model.Coordinate{lon, lat},
		Distance:      dist,
		Discriminator: strings.TrimSpace(q.Get("discriminator")),
		PreferMajor:   prefer,
	}, nil
}

func parseCoord(v string, limit float64) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, errors.New("required")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	if math.IsNaN(f) || f < -limit || f > limit {
		return 0, fmt.Errorf("must be in [-%g,%g]", limit, limit)
	}
	return f, nil
}
