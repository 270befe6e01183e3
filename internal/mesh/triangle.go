package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

type Triangle2D struct {
	A, B, C r2.Vec
}

// NewTriangle takes coordinates in the (x1, x2, x3, y1, y2, y3) layout of the input file.
func NewTriangle(c [6]float64) Triangle2D {
	return Triangle2D{
		A: r2.Vec{X: c[0], Y: c[3]},
		B: r2.Vec{X: c[1], Y: c[4]},
		C: r2.Vec{X: c[2], Y: c[5]},
	}
}

func (t Triangle2D) edges() [3][2]r2.Vec {
	return [3][2]r2.Vec{{t.A, t.B}, {t.B, t.C}, {t.C, t.A}}
}

// Contains is inclusive of the edges.
func (t Triangle2D) Contains(p r2.Vec) bool {
	d1 := cross(t.A, t.B, p)
	d2 := cross(t.B, t.C, p)
	d3 := cross(t.C, t.A, p)
	hasNegative := d1 < 0 || d2 < 0 || d3 < 0
	hasPositive := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNegative && hasPositive)
}

// DistanceTo is zero inside the triangle and on its edges.
func (t Triangle2D) DistanceTo(p r2.Vec) float64 {
	if t.Contains(p) {
		return 0
	}
	distance := math.Inf(1)
	for _, edge := range t.edges() {
		distance = math.Min(distance, r2.Norm(r2.Sub(p, closestOnSegment(edge[0], edge[1], p))))
	}
	return distance
}

func (t Triangle2D) Area() float64 {
	return 0.5 * math.Abs(cross(t.A, t.B, t.C))
}

// z component of (b - a) x (p - a)
func cross(a, b, p r2.Vec) float64 {
	return r2.Cross(r2.Sub(b, a), r2.Sub(p, a))
}

func closestOnSegment(a, b, p r2.Vec) r2.Vec {
	ab := r2.Sub(b, a)
	length2 := r2.Dot(ab, ab)
	if length2 == 0 {
		return a
	}
	s := math.Max(0, math.Min(1, r2.Dot(r2.Sub(p, a), ab)/length2))
	return r2.Add(a, r2.Scale(s, ab))
}
