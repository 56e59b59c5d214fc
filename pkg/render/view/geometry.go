package view

import (
	"math"

	"github.com/archifact/archifact/pkg/model"
)

// rect is a node rectangle in canvas space.
type rect struct {
	X, Y, W, H float64
}

func (r rect) centerX() float64 { return r.X + r.W/2 }
func (r rect) centerY() float64 { return r.Y + r.H/2 }

// bbox is the tight bounding box over all positioned nodes.
type bbox struct {
	minX, minY, maxX, maxY float64
}

func newBBox() bbox {
	return bbox{
		minX: math.Inf(1), minY: math.Inf(1),
		maxX: math.Inf(-1), maxY: math.Inf(-1),
	}
}

func (b *bbox) add(bounds *model.Bounds) {
	b.minX = math.Min(b.minX, bounds.X)
	b.minY = math.Min(b.minY, bounds.Y)
	b.maxX = math.Max(b.maxX, bounds.X+bounds.W)
	b.maxY = math.Max(b.maxY, bounds.Y+bounds.H)
}

func (b *bbox) empty() bool { return b.minX > b.maxX }

// anchor returns the point where the segment from r's center toward
// (tx, ty) crosses r's edge. The binding constraint is the smaller of the
// x and y scale factors, so the intersection lands on the rectangle edge
// rather than its corner extension.
func anchor(r rect, tx, ty float64) (float64, float64) {
	cx, cy := r.centerX(), r.centerY()
	dx, dy := tx-cx, ty-cy
	if dx == 0 && dy == 0 {
		return cx, cy
	}

	scale := math.Inf(1)
	if dx != 0 {
		scale = (r.W / 2) / math.Abs(dx)
	}
	if dy != 0 {
		if s := (r.H / 2) / math.Abs(dy); s < scale {
			scale = s
		}
	}
	if scale > 1 {
		// Target center lies inside the rectangle.
		scale = 1
	}
	return cx + dx*scale, cy + dy*scale
}
