package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Polygon is closed: the last point repeats the first.
type Polygon []r2.Vec

// Contains uses the even-odd rule.
func (poly Polygon) Contains(p r2.Vec) bool {
	inside := false
	for i := 1; i < len(poly); i++ {
		a, b := poly[i-1], poly[i]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xCross := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if p.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// ClosestPoint returns the nearest point on the polygon edges, its distance
// and the unit normal of the edge it lies on. The normal orientation follows
// the winding of the polygon.
func (poly Polygon) ClosestPoint(p r2.Vec) (closest r2.Vec, distance float64, normal r2.Vec) {
	distance = math.Inf(1)
	for i := 1; i < len(poly); i++ {
		a, b := poly[i-1], poly[i]
		candidate := closestOnSegment(a, b, p)
		if d := r2.Norm(r2.Sub(p, candidate)); d < distance {
			closest, distance = candidate, d
			edge := r2.Sub(b, a)
			normal = r2.Unit(r2.Vec{X: edge.Y, Y: -edge.X})
		}
	}
	return
}

func (poly Polygon) DistanceTo(p r2.Vec) float64 {
	_, distance, _ := poly.ClosestPoint(p)
	return distance
}

func (poly Polygon) closed() bool {
	return len(poly) >= 4 && poly[0] == poly[len(poly)-1]
}
