package material

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/wildstyl3r/ionbca/internal/config"
	"github.com/wildstyl3r/ionbca/internal/mesh"
)

var ErrInvalidMaterial = errors.New("invalid material")

// Material holds per-species properties in SI units. It is read concurrently
// by every worker and must not be modified after New.
type Material struct {
	Z                                  []float64
	M                                  []float64 // [kg]
	Eb                                 []float64 // [J]
	Es                                 []float64 // [J]
	Ec                                 []float64 // [J]
	N                                  []float64 // [m^-3]
	InteractionIndex                   []int
	ElectronicStoppingCorrectionFactor float64
	EnergyBarrierThickness             float64 // [m]
	SurfaceBindingModel                config.SurfaceBindingModel

	Mesh *mesh.Mesh2D
}

func New(params config.MaterialParameters, meshInput config.MeshInput) (*Material, error) {
	energyScale, err := config.UnitScale(params.EnergyUnit, config.Energy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMaterial, err)
	}
	massScale, err := config.UnitScale(params.MassUnit, config.Mass)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMaterial, err)
	}
	lengthScale, err := config.UnitScale(meshInput.LengthUnit, config.Length)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMaterial, err)
	}

	species := len(params.Z)
	if species == 0 {
		return nil, fmt.Errorf("%w: no species", ErrInvalidMaterial)
	}
	for _, column := range []struct {
		name   string
		length int
	}{
		{"M", len(params.M)},
		{"Eb", len(params.Eb)},
		{"Es", len(params.Es)},
		{"Ec", len(params.Ec)},
		{"InteractionIndex", len(params.InteractionIndex)},
	} {
		if column.length != species {
			return nil, fmt.Errorf("%w: %s has %d entries for %d species", ErrInvalidMaterial, column.name, column.length, species)
		}
	}
	if len(params.N) != species && !(len(params.N) == 0 && len(meshInput.Densities) > 0) {
		return nil, fmt.Errorf("%w: N has %d entries for %d species", ErrInvalidMaterial, len(params.N), species)
	}
	for i := range species {
		if params.Z[i] <= 0 || params.M[i] <= 0 {
			return nil, fmt.Errorf("%w: species %d has non-positive Z or M", ErrInvalidMaterial, i)
		}
		if params.Eb[i] < 0 || params.Es[i] < 0 || params.Ec[i] < 0 {
			return nil, fmt.Errorf("%w: species %d has a negative binding or cutoff energy", ErrInvalidMaterial, i)
		}
		if params.InteractionIndex[i] < 0 {
			return nil, fmt.Errorf("%w: species %d has a negative interaction index", ErrInvalidMaterial, i)
		}
	}
	if params.EnergyBarrierThickness < 0 {
		return nil, fmt.Errorf("%w: negative energy barrier thickness", ErrInvalidMaterial)
	}

	grid, err := mesh.New(meshInput, params.N)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMaterial, err)
	}
	if grid.NumSpecies() != species {
		return nil, fmt.Errorf("%w: mesh densities describe %d species, material has %d", ErrInvalidMaterial, grid.NumSpecies(), species)
	}

	scaled := func(values []float64, scale float64) []float64 {
		out := make([]float64, len(values))
		floats.ScaleTo(out, scale, values)
		return out
	}
	m := &Material{
		Z:                                  scaled(params.Z, 1),
		M:                                  scaled(params.M, massScale),
		Eb:                                 scaled(params.Eb, energyScale),
		Es:                                 scaled(params.Es, energyScale),
		Ec:                                 scaled(params.Ec, energyScale),
		N:                                  scaled(params.N, 1./(lengthScale*lengthScale*lengthScale)),
		InteractionIndex:                   append([]int(nil), params.InteractionIndex...),
		ElectronicStoppingCorrectionFactor: params.ElectronicStoppingCorrectionFactor,
		EnergyBarrierThickness:             params.EnergyBarrierThickness * lengthScale,
		SurfaceBindingModel:                params.SurfaceBindingModel,
		Mesh:                               grid,
	}
	return m, nil
}

func (m *Material) NumSpecies() int {
	return len(m.Z)
}

func (m *Material) Inside(x, y float64) bool {
	return m.Mesh.Inside(x, y)
}

func (m *Material) InsideSimulationBoundary(x, y float64) bool {
	return m.Mesh.InsideSimulationBoundary(x, y)
}

// InsideEnergyBarrier is true inside the material and in the shell of
// EnergyBarrierThickness around its boundary.
func (m *Material) InsideEnergyBarrier(x, y float64) bool {
	return m.Mesh.Inside(x, y) || m.Mesh.DistanceToBoundary(x, y) < m.EnergyBarrierThickness
}

func (m *Material) DistanceToBoundary(x, y float64) float64 {
	return m.Mesh.DistanceToBoundary(x, y)
}

func (m *Material) ClosestBoundaryPoint(x, y float64) (point, normal r2.Vec) {
	return m.Mesh.ClosestBoundaryPoint(x, y)
}

func (m *Material) Concentrations(x, y float64) []float64 {
	return m.Mesh.Concentrations(x, y)
}

func (m *Material) NumberDensities(x, y float64) []float64 {
	return m.Mesh.Densities(x, y)
}

func (m *Material) TotalNumberDensity(x, y float64) float64 {
	return m.Mesh.TotalDensity(x, y)
}

func (m *Material) weighted(values []float64, x, y float64) float64 {
	return floats.Dot(values, m.Mesh.Concentrations(x, y))
}

func (m *Material) AverageBulkBindingEnergy(x, y float64) float64 {
	return m.weighted(m.Eb, x, y)
}

func (m *Material) AverageZ(x, y float64) float64 {
	return m.weighted(m.Z, x, y)
}

func (m *Material) AverageMass(x, y float64) float64 {
	return m.weighted(m.M, x, y)
}

// ActualSurfaceBindingEnergy combines the binding energy of a particle with
// its own surface binding energy es and the target at (x, y).
func (m *Material) ActualSurfaceBindingEnergy(es, x, y float64) float64 {
	target := m.weighted(m.Es, x, y)
	switch m.SurfaceBindingModel {
	case config.Individual:
		return es
	case config.Average:
		return 0.5 * (es + target)
	default:
		return target
	}
}

// MeanFreePath is the atomic spacing n^(-1/3) at (x, y).
func (m *Material) MeanFreePath(x, y float64) float64 {
	return math.Cbrt(1. / m.Mesh.TotalDensity(x, y))
}

// ChooseSpecies samples a species index weighted by local concentration.
func (m *Material) ChooseSpecies(x, y float64, rng *rand.Rand) int {
	concentrations := m.Mesh.Concentrations(x, y)
	choice := rng.Float64()
	accumulated := 0.
	for i, c := range concentrations {
		accumulated += c
		if choice < accumulated {
			return i
		}
	}
	for i := len(concentrations) - 1; i >= 0; i-- {
		if concentrations[i] > 0 {
			return i
		}
	}
	return len(concentrations) - 1
}
