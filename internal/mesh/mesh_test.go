package mesh

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/wildstyl3r/ionbca/internal/config"
	"github.com/wildstyl3r/ionbca/internal/constants"
)

func TestTriangleContains(t *testing.T) {
	cases := []struct {
		triangle Triangle2D
		point    r2.Vec
		want     bool
	}{
		{NewTriangle([6]float64{0, 2, 0, 2, 0, 0}), r2.Vec{X: 0.5, Y: 0.5}, true},
		{NewTriangle([6]float64{0, 2, 0, 2, 0, 0}), r2.Vec{X: 2, Y: 2}, false},
		{NewTriangle([6]float64{0, 2, 0, 2, 0, 0}), r2.Vec{X: 0, Y: 0}, true},
		{NewTriangle([6]float64{-2, 0, 0, 0, 0, -2}), r2.Vec{X: -0.5, Y: -0.5}, true},
		{NewTriangle([6]float64{-2, 0, 0, 0, 0, -2}), r2.Vec{X: 0.5, Y: 0.5}, false},
		{NewTriangle([6]float64{-2, 0, 0, 0, 0, -2}), r2.Vec{X: -2, Y: -2}, false},
	}
	for _, c := range cases {
		if got := c.triangle.Contains(c.point); got != c.want {
			t.Errorf("%+v contains %v = %v, expected %v", c.triangle, c.point, got, c.want)
		}
	}
}

func TestTriangleDistanceTo(t *testing.T) {
	triangle := NewTriangle([6]float64{0, 2, 0, 2, 0, 0})
	cases := []struct {
		point r2.Vec
		want  float64
	}{
		{r2.Vec{X: -2, Y: 0}, 2},
		{r2.Vec{X: 2, Y: 2}, math.Sqrt2},
		{r2.Vec{X: 0, Y: 0}, 0},
		{r2.Vec{X: 2, Y: 0}, 0},
		{r2.Vec{X: 0, Y: 2}, 0},
		{r2.Vec{X: 0.5, Y: 0.5}, 0},
	}
	for _, c := range cases {
		if got := triangle.DistanceTo(c.point); !scalar.EqualWithinAbs(got, c.want, 1e-12) {
			t.Errorf("distance to %v = %v, expected %v", c.point, got, c.want)
		}
	}
	if !scalar.EqualWithinAbs(triangle.Area(), 2, 1e-12) {
		t.Errorf("area %v", triangle.Area())
	}
}

// square target [0, 1000] x [-500, 500] A
func squareInput() config.MeshInput {
	const depth, thickness = 1000., 1000.
	return config.MeshInput{
		LengthUnit: "ANGSTROM",
		CoordinateSets: [][]float64{
			{0, depth, 0, thickness / 2, thickness / 2, -thickness / 2},
			{depth, depth, 0, thickness / 2, -thickness / 2, -thickness / 2},
		},
		Densities: [][]float64{{0.03, 0.03}, {0.03, 0.03}},
		BoundaryPoints: [][]float64{
			{0, thickness / 2}, {depth, thickness / 2}, {depth, -thickness / 2}, {0, -thickness / 2}, {0, thickness / 2},
		},
		SimulationBoundaryPoints: [][]float64{
			{0, 1.1 * thickness / 2}, {depth, 1.1 * thickness / 2}, {depth, -1.1 * thickness / 2}, {0, -1.1 * thickness / 2}, {0, 1.1 * thickness / 2},
		},
	}
}

func TestMeshQueries(t *testing.T) {
	m, err := New(squareInput(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	const A = constants.Angstrom
	if !m.Inside(500*A, 0) || m.Inside(-500*A, 0) || m.Inside(500*A, 600*A) {
		t.Errorf("material containment")
	}
	if !m.InsideSimulationBoundary(500*A, 540*A) || m.InsideSimulationBoundary(500*A, 560*A) {
		t.Errorf("simulation boundary containment")
	}
	if d := m.DistanceToBoundary(-5*A, 0); !scalar.EqualWithinRel(d, 5*A, 1e-12) {
		t.Errorf("distance to boundary %v", d)
	}
	if d := m.DistanceToBoundary(500*A, 0); !scalar.EqualWithinRel(d, 500*A, 1e-12) {
		t.Errorf("distance from center %v", d)
	}
	point, normal := m.ClosestBoundaryPoint(-5*A, 10*A)
	if !scalar.EqualWithinAbs(point.X, 0, 1e-20) || !scalar.EqualWithinAbs(math.Abs(normal.X), 1, 1e-12) {
		t.Errorf("closest boundary point %v normal %v", point, normal)
	}
	if i := m.NearestTriangle(900*A, -400*A); i != 1 {
		t.Errorf("nearest triangle %d", i)
	}
	if i := m.NearestTriangle(-10*A, 400*A); i != 0 {
		t.Errorf("nearest triangle outside %d", i)
	}
	if n := m.TotalDensity(500*A, 0); !scalar.EqualWithinRel(n, 0.06e30, 1e-12) {
		t.Errorf("total density %v", n)
	}
	if c := m.Concentrations(500*A, 0); !scalar.EqualWithinAbs(c[0], 0.5, 1e-15) {
		t.Errorf("concentrations %v", c)
	}
}

func TestMeshFallbackDensities(t *testing.T) {
	input := squareInput()
	input.Densities = nil
	m, err := New(input, []float64{0.06})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.NumSpecies() != 1 || !scalar.EqualWithinAbs(m.Concentrations(1e-8, 0)[0], 1, 1e-15) {
		t.Errorf("fallback densities not applied")
	}
}

func TestMeshValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.MeshInput)
	}{
		{"unit", func(in *config.MeshInput) { in.LengthUnit = "EV" }},
		{"coordinates", func(in *config.MeshInput) { in.CoordinateSets[0] = in.CoordinateSets[0][:5] }},
		{"degenerate", func(in *config.MeshInput) { in.CoordinateSets[0] = []float64{0, 1, 2, 0, 1, 2} }},
		{"density count", func(in *config.MeshInput) { in.Densities = in.Densities[:1] }},
		{"species count", func(in *config.MeshInput) { in.Densities[1] = []float64{0.03} }},
		{"negative density", func(in *config.MeshInput) { in.Densities[0][0] = -1 }},
		{"empty triangle", func(in *config.MeshInput) { in.Densities[0] = []float64{0, 0} }},
		{"open boundary", func(in *config.MeshInput) { in.BoundaryPoints = in.BoundaryPoints[:4] }},
		{"short boundary", func(in *config.MeshInput) {
			in.SimulationBoundaryPoints = [][]float64{{0, 0}, {1, 0}, {0, 0}}
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			input := squareInput()
			c.mutate(&input)
			if _, err := New(input, nil); !errors.Is(err, ErrInvalidMesh) {
				t.Errorf("expected ErrInvalidMesh, got %v", err)
			}
		})
	}
}
