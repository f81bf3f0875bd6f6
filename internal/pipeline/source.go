package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
)

type Format string

const (
	FormatXML Format = "xml"
	FormatPBF Format = "pbf"
)

// DetectFormat picks the dataset format from an explicit name or the file extension.
func DetectFormat(path, explicit string) (Format, error) {
	switch strings.ToLower(explicit) {
	case "xml", "osm":
		return FormatXML, nil
	case "pbf":
		return FormatPBF, nil
	case "":
	default:
		return "", fmt.Errorf("unknown dataset format %q", explicit)
	}
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".osm.pbf"), strings.EqualFold(filepath.Ext(path), ".pbf"):
		return FormatPBF, nil
	case strings.EqualFold(filepath.Ext(path), ".osm"), strings.EqualFold(filepath.Ext(path), ".xml"):
		return FormatXML, nil
	}
	return "", fmt.Errorf("cannot tell the format of %q", path)
}

// NewScanner wraps r in a scanner for the given format.
func NewScanner(ctx context.Context, r io.Reader, f Format) (osm.Scanner, error) {
	switch f {
	case FormatXML:
		return osmxml.New(ctx, r), nil
	case FormatPBF:
		return osmpbf.New(ctx, r, runtime.GOMAXPROCS(0)), nil
	}
	return nil, fmt.Errorf("unknown dataset format %q", f)
}

type fileScanner struct {
	osm.Scanner
	f *os.File
}

func (s *fileScanner) Close() error {
	err := s.Scanner.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Open opens a dataset file. Closing the scanner closes the file.
func Open(ctx context.Context, path, format string) (osm.Scanner, error) {
	f, err := DetectFormat(path, format)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	sc, err := NewScanner(ctx, file, f)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &fileScanner{Scanner: sc, f: file}, nil
}
