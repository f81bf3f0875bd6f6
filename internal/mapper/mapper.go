// Package mapper converts between geometric coordinates and H3 cells.
package mapper

import (
	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/osm-area-store/internal/core/model"
)

type Interface interface {
	Cover(b orb.Bound, res int) (model.Cells, error)
	Dilate(cells model.Cells, k int) (model.Cells, error)
}
