// Package stitch assembles closed rings out of unordered way segments that share endpoints.
package stitch

import (
	"errors"
	"fmt"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
)

var (
	// ErrMalformedChain is returned for chains with fewer than 2 coordinates.
	ErrMalformedChain = errors.New("malformed chain: fewer than 2 coordinates")
	// ErrShortRing is returned when a closed chain has fewer than 4 coordinates.
	ErrShortRing = errors.New("ring must have at least four coordinates")
	// ErrOpenRing is returned when a chain's first and last coordinates differ.
	ErrOpenRing = errors.New("ring is not closed")
)

// ValidateChains rejects input the stitcher must never see.
func ValidateChains(chains []model.Chain) error {
	for i, c := range chains {
		if len(c) < 2 {
			return fmt.Errorf("chain %d has %d coordinates: %w", i, len(c), ErrMalformedChain)
		}
	}
	return nil
}

// IsClosed reports whether c has at least two coordinates and ends where it starts.
func IsClosed(c model.Chain) bool {
	return len(c) > 1 && c[0] == c[len(c)-1]
}

// EnsureClosed appends a copy of the first coordinate when the endpoints differ.
// The input is never modified.
func EnsureClosed(c model.Chain) model.Chain {
	if len(c) == 0 || c[0] == c[len(c)-1] {
		return c
	}
	out := make(model.Chain, 0, len(c)+1)
	out = append(out, c...)
	return append(out, c[0])
}

// ToRing converts a closed chain into a ring, enforcing the four coordinate minimum.
func ToRing(c model.Chain) (model.Ring, error) {
	if len(c) < 4 {
		return nil, fmt.Errorf("%d coordinates: %w", len(c), ErrShortRing)
	}
	if !IsClosed(c) {
		return nil, ErrOpenRing
	}
	return model.Ring(c), nil
}

type segment struct {
	coords model.Chain
	alive  bool
	closed bool
}

// ConnectSegments merges chains whose end coordinate equals the start coordinate of another
// chain until no such pair remains, then force-closes every result. Chains that arrive closed
// are kept as independent rings. Every input chain ends up in exactly one output element;
// outputs keep the order of the first chain they contain. Inputs are not modified.
func ConnectSegments(chains []model.Chain) []model.Chain {
	segs := make([]*segment, 0, len(chains))
	for _, c := range chains {
		if len(c) == 0 {
			continue
		}
		cp := make(model.Chain, len(c))
		copy(cp, c)
		segs = append(segs, &segment{coords: cp, alive: true, closed: IsClosed(cp)})
	}

	if open := countOpen(segs); open > 1 {
		// start coordinate -> open segments starting there, maintained incrementally
		starts := make(map[model.Coordinate][]int, open)
		for i, s := range segs {
			if !s.closed {
				starts[s.coords[0]] = append(starts[s.coords[0]], i)
			}
		}

		for i, a := range segs {
			if !a.alive || a.closed {
				continue
			}
			for {
				j := pickStart(starts, segs, a.coords[len(a.coords)-1], i)
				if j < 0 {
					break
				}
				b := segs[j]
				a.coords = append(a.coords, b.coords[1:]...)
				b.alive = false
				starts[b.coords[0]] = without(starts[b.coords[0]], j)
				if IsClosed(a.coords) {
					break
				}
			}
		}
	}

	out := make([]model.Chain, 0, len(segs))
	for _, s := range segs {
		if !s.alive {
			continue
		}
		out = append(out, EnsureClosed(s.coords))
	}
	return out
}

func countOpen(segs []*segment) int {
	n := 0
	for _, s := range segs {
		if !s.closed {
			n++
		}
	}
	return n
}

// pickStart returns a live open segment other than self starting at p, or -1.
func pickStart(starts map[model.Coordinate][]int, segs []*segment, p model.Coordinate, self int) int {
	for _, j := range starts[p] {
		if j != self && segs[j].alive {
			return j
		}
	}
	return -1
}

func without(idx []int, j int) []int {
	for k, v := range idx {
		if v == j {
			return append(idx[:k], idx[k+1:]...)
		}
	}
	return idx
}
