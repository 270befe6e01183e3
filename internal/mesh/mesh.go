package mesh

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/wildstyl3r/ionbca/internal/config"
)

var ErrInvalidMesh = errors.New("invalid mesh")

// Mesh2D is immutable after New and safe for concurrent reads.
type Mesh2D struct {
	triangles          []Triangle2D
	densities          [][]float64 // [m^-3]
	concentrations     [][]float64
	totalDensities     []float64 // [m^-3]
	boundary           Polygon   // [m]
	simulationBoundary Polygon   // [m]
}

// New converts the input into SI. fallbackDensities (in the input length unit)
// are used for every triangle when the input carries no per-triangle densities.
func New(input config.MeshInput, fallbackDensities []float64) (*Mesh2D, error) {
	lengthScale, err := config.UnitScale(input.LengthUnit, config.Length)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMesh, err)
	}
	if len(input.CoordinateSets) == 0 {
		return nil, fmt.Errorf("%w: no triangles", ErrInvalidMesh)
	}
	densities := input.Densities
	if len(densities) == 0 {
		for range input.CoordinateSets {
			densities = append(densities, fallbackDensities)
		}
	}
	if len(densities) != len(input.CoordinateSets) {
		return nil, fmt.Errorf("%w: %d triangles but %d density vectors", ErrInvalidMesh, len(input.CoordinateSets), len(densities))
	}

	m := &Mesh2D{}
	species := len(densities[0])
	for i, coordinates := range input.CoordinateSets {
		if len(coordinates) != 6 {
			return nil, fmt.Errorf("%w: triangle %d has %d coordinates, expected 6", ErrInvalidMesh, i, len(coordinates))
		}
		var scaled [6]float64
		for k := range scaled {
			scaled[k] = coordinates[k] * lengthScale
		}
		triangle := NewTriangle(scaled)
		if triangle.Area() <= 0 {
			return nil, fmt.Errorf("%w: triangle %d is degenerate", ErrInvalidMesh, i)
		}
		if len(densities[i]) != species {
			return nil, fmt.Errorf("%w: triangle %d has %d densities, expected %d", ErrInvalidMesh, i, len(densities[i]), species)
		}
		density := make([]float64, species)
		for k, n := range densities[i] {
			if n < 0 || math.IsNaN(n) {
				return nil, fmt.Errorf("%w: negative density %v in triangle %d", ErrInvalidMesh, n, i)
			}
			density[k] = n / (lengthScale * lengthScale * lengthScale)
		}
		total := floats.Sum(density)
		if total <= 0 {
			return nil, fmt.Errorf("%w: triangle %d has no material", ErrInvalidMesh, i)
		}
		concentration := slices.Clone(density)
		floats.Scale(1./total, concentration)

		m.triangles = append(m.triangles, triangle)
		m.densities = append(m.densities, density)
		m.concentrations = append(m.concentrations, concentration)
		m.totalDensities = append(m.totalDensities, total)
	}

	if m.boundary, err = polygon(input.BoundaryPoints, lengthScale); err != nil {
		return nil, fmt.Errorf("%w: boundary: %w", ErrInvalidMesh, err)
	}
	if m.simulationBoundary, err = polygon(input.SimulationBoundaryPoints, lengthScale); err != nil {
		return nil, fmt.Errorf("%w: simulation boundary: %w", ErrInvalidMesh, err)
	}
	return m, nil
}

func polygon(points [][]float64, scale float64) (Polygon, error) {
	poly := make(Polygon, 0, len(points))
	for i, point := range points {
		if len(point) != 2 {
			return nil, fmt.Errorf("point %d has %d coordinates, expected 2", i, len(point))
		}
		poly = append(poly, r2.Vec{X: point[0] * scale, Y: point[1] * scale})
	}
	if !poly.closed() {
		return nil, fmt.Errorf("polygon of %d points is not closed", len(poly))
	}
	return poly, nil
}

func (m *Mesh2D) NumSpecies() int {
	return len(m.densities[0])
}

// Inside tests against the material boundary.
func (m *Mesh2D) Inside(x, y float64) bool {
	return m.boundary.Contains(r2.Vec{X: x, Y: y})
}

func (m *Mesh2D) InsideSimulationBoundary(x, y float64) bool {
	return m.simulationBoundary.Contains(r2.Vec{X: x, Y: y})
}

// NearestTriangle returns the index of the triangle containing (x, y) or,
// outside the mesh, the closest one.
func (m *Mesh2D) NearestTriangle(x, y float64) int {
	p := r2.Vec{X: x, Y: y}
	nearest, distance := 0, math.Inf(1)
	for i := range m.triangles {
		d := m.triangles[i].DistanceTo(p)
		if d == 0 {
			return i
		}
		if d < distance {
			nearest, distance = i, d
		}
	}
	return nearest
}

func (m *Mesh2D) DistanceToBoundary(x, y float64) float64 {
	return m.boundary.DistanceTo(r2.Vec{X: x, Y: y})
}

// ClosestBoundaryPoint returns the nearest point of the material boundary and
// the unit normal of the edge containing it.
func (m *Mesh2D) ClosestBoundaryPoint(x, y float64) (point, normal r2.Vec) {
	point, _, normal = m.boundary.ClosestPoint(r2.Vec{X: x, Y: y})
	return
}

func (m *Mesh2D) Densities(x, y float64) []float64 {
	return m.densities[m.NearestTriangle(x, y)]
}

func (m *Mesh2D) Concentrations(x, y float64) []float64 {
	return m.concentrations[m.NearestTriangle(x, y)]
}

func (m *Mesh2D) TotalDensity(x, y float64) float64 {
	return m.totalDensities[m.NearestTriangle(x, y)]
}
