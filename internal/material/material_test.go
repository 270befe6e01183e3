package material

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/wildstyl3r/ionbca/internal/config"
	"github.com/wildstyl3r/ionbca/internal/constants"
	"github.com/wildstyl3r/ionbca/internal/interactions"
)

const A = constants.Angstrom

func copperHydrogen() (config.MaterialParameters, config.MeshInput) {
	const depth, thickness = 1000., 1000.
	params := config.MaterialParameters{
		EnergyUnit:             "EV",
		MassUnit:               "AMU",
		Eb:                     []float64{0, 0},
		Es:                     []float64{2, 4},
		Ec:                     []float64{1, 1},
		N:                      []float64{0.06, 0.06},
		Z:                      []float64{29, 1},
		M:                      []float64{63.54, 1.0008},
		InteractionIndex:       []int{0, 0},
		EnergyBarrierThickness: 10,
		SurfaceBindingModel:    config.Target,
	}
	meshInput := config.MeshInput{
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
	return params, meshInput
}

func TestContainment(t *testing.T) {
	m, err := New(copperHydrogen())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !m.Inside(500*A, 0) {
		t.Errorf("point inside reported outside")
	}
	if m.Inside(-500*A, 0) {
		t.Errorf("point outside reported inside")
	}
	if m.Inside(-5*A, 0) || !m.InsideEnergyBarrier(-5*A, 0) {
		t.Errorf("barrier shell point")
	}
}

func TestSurfaceBindingEnergy(t *testing.T) {
	m, err := New(copperHydrogen())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	es := 5.76 * constants.EV
	cases := []struct {
		model config.SurfaceBindingModel
		want  float64
	}{
		{config.Target, 3},
		{config.Individual, 5.76},
		{config.Average, (5.76 + 3) / 2},
	}
	for _, c := range cases {
		t.Run(c.model.String(), func(t *testing.T) {
			m.SurfaceBindingModel = c.model
			got := m.ActualSurfaceBindingEnergy(es, 500*A, 0) / constants.EV
			if !scalar.EqualWithinAbs(got, c.want, 1e-12) {
				t.Errorf("surface binding energy %v, expected %v", got, c.want)
			}
		})
	}
}

func TestEnergyBarrierShell(t *testing.T) {
	m, err := New(copperHydrogen())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cases := []struct {
		name string
		x, y float64
		want bool
	}{
		{"center", 500, 0, true},
		{"left inside shell", -5, 0, true},
		{"left outside shell", -15, 0, false},
		{"top inside shell", 500, 505, true},
		{"top outside shell", 500, 515, false},
		{"bottom inside shell", 500, -505, true},
		{"bottom outside shell", 500, -515, false},
		{"right inside shell", 1005, 0, true},
		{"right outside shell", 1015, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := m.InsideEnergyBarrier(c.x*A, c.y*A); got != c.want {
				t.Errorf("InsideEnergyBarrier(%v, %v) = %v", c.x, c.y, got)
			}
		})
	}
}

func TestAveragesAndSampling(t *testing.T) {
	m, err := New(copperHydrogen())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if z := m.AverageZ(500*A, 0); !scalar.EqualWithinAbs(z, 15, 1e-12) {
		t.Errorf("average Z %v", z)
	}
	if mfp := m.MeanFreePath(500*A, 0); !scalar.EqualWithinRel(mfp, math.Cbrt(1/0.06e30), 1e-12) {
		t.Errorf("mean free path %v", mfp)
	}
	rng := rand.New(rand.NewPCG(1, 2))
	counts := make([]int, m.NumSpecies())
	for range 10000 {
		counts[m.ChooseSpecies(500*A, 0, rng)]++
	}
	if counts[0] < 4500 || counts[0] > 5500 {
		t.Errorf("species sampling not concentration weighted: %v", counts)
	}
}

func TestElectronicStopping(t *testing.T) {
	params, meshInput := copperHydrogen()
	params.ElectronicStoppingCorrectionFactor = 1
	m, err := New(params, meshInput)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Ma := 4.0026 * constants.AtomicMassUnit
	prev := 0.
	for _, E := range []float64{10, 100, 1e3, 1e4} {
		stopping := m.ElectronicStoppingCrossSections(2, Ma, E*constants.EV, config.Interpolated)
		low := m.ElectronicStoppingCrossSections(2, Ma, E*constants.EV, config.LowEnergyNonlocal)
		for i := range stopping {
			if !(stopping[i] > 0) || stopping[i] > low[i] {
				t.Errorf("E=%v species %d: interpolated %v, low energy %v", E, i, stopping[i], low[i])
			}
		}
		if stopping[0] <= prev {
			t.Errorf("stopping should rise with energy below the maximum")
		}
		prev = stopping[0]
	}
	params.ElectronicStoppingCorrectionFactor = 0
	m, _ = New(params, meshInput)
	if s := m.ElectronicStoppingCrossSections(2, Ma, 1e3*constants.EV, config.Interpolated); s[0] != 0 {
		t.Errorf("correction factor not applied: %v", s)
	}
	if loss := OenRobinsonLoss(2, 29, 1e-40, 1, interactions.LenzJensen); loss != 0 {
		t.Errorf("Lenz-Jensen has no Oen-Robinson loss: %v", loss)
	}
	if loss := OenRobinsonLoss(2, 29, 1e-40, 1, interactions.KrC); !(loss > 0) {
		t.Errorf("Oen-Robinson loss %v", loss)
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.MaterialParameters, *config.MeshInput)
	}{
		{"energy unit", func(p *config.MaterialParameters, _ *config.MeshInput) { p.EnergyUnit = "AMU" }},
		{"mass unit", func(p *config.MaterialParameters, _ *config.MeshInput) { p.MassUnit = "NM" }},
		{"lengths", func(p *config.MaterialParameters, _ *config.MeshInput) { p.Es = p.Es[:1] }},
		{"negative binding", func(p *config.MaterialParameters, _ *config.MeshInput) { p.Eb[0] = -1 }},
		{"species mismatch", func(_ *config.MaterialParameters, in *config.MeshInput) {
			in.Densities = [][]float64{{0.06}, {0.06}}
		}},
		{"mesh", func(_ *config.MaterialParameters, in *config.MeshInput) { in.BoundaryPoints = nil }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			params, meshInput := copperHydrogen()
			c.mutate(&params, &meshInput)
			if _, err := New(params, meshInput); !errors.Is(err, ErrInvalidMaterial) {
				t.Errorf("expected ErrInvalidMaterial, got %v", err)
			}
		})
	}
}
