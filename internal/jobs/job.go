// Package jobs describes import requests arriving from the job queue and runs them.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/osm"

	"github.com/mohammed-shakir/osm-area-store/internal/pipeline"
)

// ImportJob asks for the dataset at Path to be imported into Area. Version increases every
// time the same area is re-published.
type ImportJob struct {
	Version uint64    `json:"version"`
	Area    string    `json:"area"`
	Path    string    `json:"path"`
	Format  string    `json:"format,omitempty"`
	TS      time.Time `json:"ts"`
}

func (j ImportJob) Validate() error {
	if j.Version == 0 {
		return errors.New("version must be positive")
	}
	if strings.TrimSpace(j.Area) == "" {
		return errors.New("area is required")
	}
	if strings.TrimSpace(j.Path) == "" {
		return errors.New("path is required")
	}
	if j.TS.IsZero() {
		return errors.New("ts is required")
	}
	if _, err := pipeline.DetectFormat(j.Path, j.Format); err != nil {
		return err
	}
	return nil
}

// DedupeKey identifies one publication of one dataset.
func (j ImportJob) DedupeKey() (area, path, version string) {
	return j.Area, j.Path, strconv.FormatUint(j.Version, 10)
}

type Importer interface {
	Run(ctx context.Context, area string, sc osm.Scanner) (pipeline.Stats, error)
}

// Runner opens the dataset a job names and feeds it to the importer.
type Runner struct {
	importer Importer
	log      *slog.Logger
}

func NewRunner(im Importer, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{importer: im, log: log}
}

func (r *Runner) RunJob(ctx context.Context, job ImportJob) (pipeline.Stats, error) {
	sc, err := pipeline.Open(ctx, job.Path, job.Format)
	if err != nil {
		return pipeline.Stats{}, fmt.Errorf("open %s: %w", job.Path, err)
	}
	defer func() { _ = sc.Close() }()

	start := time.Now()
	st, err := r.importer.Run(ctx, job.Area, sc)
	if err != nil {
		return st, fmt.Errorf("import %s into %q: %w", job.Path, job.Area, err)
	}
	r.log.InfoContext(ctx, "import job done",
		"area", job.Area, "path", job.Path, "version", job.Version,
		"stored", st.Stored, "skipped", st.Skipped, "took", time.Since(start))
	return st, nil
}
