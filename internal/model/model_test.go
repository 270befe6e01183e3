package model

import (
	"encoding/csv"
	"errors"
	"flag"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/wildstyl3r/ionbca/internal/config"
	"github.com/wildstyl3r/ionbca/internal/constants"
	"github.com/wildstyl3r/ionbca/internal/particle"
)

// copper slab [0, 1000] x [-500, 500] A under a helium beam
func copperParameters(n int, energy float64) config.ModelParameters {
	const depth, thickness = 1000., 1000.
	options := config.DefaultOptions()
	options.Name = "copper"
	options.NumChunks = 4
	options.Seed = 42
	return config.ModelParameters{
		Options: options,
		Material: config.MaterialParameters{
			Eb:                                 []float64{0},
			Es:                                 []float64{3.52},
			Ec:                                 []float64{3},
			N:                                  []float64{0.0847},
			Z:                                  []float64{29},
			M:                                  []float64{63.54},
			InteractionIndex:                   []int{0},
			ElectronicStoppingCorrectionFactor: 1,
			EnergyBarrierThickness:             2.28,
		},
		Mesh: config.MeshInput{
			CoordinateSets: [][]float64{
				{0, depth, 0, thickness / 2, thickness / 2, -thickness / 2},
				{depth, depth, 0, thickness / 2, -thickness / 2, -thickness / 2},
			},
			BoundaryPoints: [][]float64{
				{0, thickness / 2}, {depth, thickness / 2}, {depth, -thickness / 2}, {0, -thickness / 2}, {0, thickness / 2},
			},
			SimulationBoundaryPoints: [][]float64{
				{-10, 510}, {1010, 510}, {1010, -510}, {-10, -510}, {-10, 510},
			},
		},
		Particles: config.ParticleParameters{
			N:   []int{n},
			M:   []float64{4.002602},
			Z:   []float64{2},
			E:   []float64{energy},
			Ec:  []float64{1},
			Es:  []float64{0},
			Pos: [][]float64{{-3, 0, 0}},
			Dir: [][]float64{{0.9999, 0.0141, 0}},
		},
	}
}

func newCopperModel(t *testing.T, parameters config.ModelParameters) *Model {
	t.Helper()
	m, err := NewModel(parameters)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

func TestRunIndependentOfThreads(t *testing.T) {
	var outputs []Output
	for _, threads := range []int{1, 3} {
		parameters := copperParameters(24, 1000)
		parameters.Options.NumThreads = threads
		m := newCopperModel(t, parameters)
		m.Run()
		outputs = append(outputs, m.Output)
	}
	a, b := outputs[0], outputs[1]
	if len(a.Particles) != len(b.Particles) || a.NumIncident != b.NumIncident {
		t.Fatalf("outputs differ: %d/%d particles, %d/%d incident", len(a.Particles), len(b.Particles), a.NumIncident, b.NumIncident)
	}
	for i := range a.Particles {
		pa, pb := a.Particles[i], b.Particles[i]
		if pa.E != pb.E || pa.Pos != pb.Pos || pa.Termination != pb.Termination {
			t.Fatalf("particle %d differs: %v %v %v vs %v %v %v", i, pa.E, pa.Pos, pa.Termination, pb.E, pb.Pos, pb.Termination)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	m := newCopperModel(t, copperParameters(20, 2000))
	m.Run()

	if m.Output.NumIncident != 20 {
		t.Errorf("%d incident ions, expected 20", m.Output.NumIncident)
	}
	incident := 0
	for _, p := range m.Output.Particles {
		if !p.Finished() || p.Termination == particle.Running {
			t.Errorf("particle left running: %+v", p)
		}
		if p.E < 0 {
			t.Errorf("negative energy %v", p.E)
		}
		if p.Termination == particle.Stopped && !m.Material.InsideEnergyBarrier(p.Pos.X, p.Pos.Y) {
			t.Errorf("particle stopped outside the material at %v", p.Pos)
		}
		if p.Left && m.Material.InsideSimulationBoundary(p.Pos.X, p.Pos.Y) {
			t.Errorf("particle left from inside the simulation at %v", p.Pos)
		}
		if p.Incident {
			incident++
			if p.NuclearLoss < 0 || p.ElectronicLoss < 0 || p.PathLength <= 0 {
				t.Errorf("incident ledger: %+v", p)
			}
		} else if p.SpeciesIndex != 0 {
			t.Errorf("recoil species %d", p.SpeciesIndex)
		}
	}
	if incident != 20 {
		t.Errorf("%d incident ions in the output", incident)
	}
}

func TestNoRecoils(t *testing.T) {
	parameters := copperParameters(1, 500)
	parameters.Options.TrackRecoils = false
	parameters.Options.TrackTrajectories = true
	parameters.Options.TrackEnergyLosses = true
	m := newCopperModel(t, parameters)

	rng := rand.New(rand.NewPCG(1, 1))
	output := SingleIonBCA(m.Source.Particle(0, true, rng), m.Material, &m.Options, rng)
	if len(output.Particles) != 1 {
		t.Fatalf("%d particles without recoils", len(output.Particles))
	}
	p := output.Particles[0]
	if len(p.Trajectory) < 2 || len(p.EnergyLosses) == 0 {
		t.Errorf("trajectory of %d points, %d energy losses", len(p.Trajectory), len(p.EnergyLosses))
	}
	if last := p.Trajectory[len(p.Trajectory)-1]; last.Pos != p.Pos || last.E != p.E {
		t.Errorf("trajectory ends at %v, particle at %v", last, p.Pos)
	}
}

func TestDeepRecoilSuppression(t *testing.T) {
	parameters := copperParameters(4, 5000)
	parameters.Options.SuppressDeepRecoils = true
	parameters.Options.TrackDisplacements = true
	parameters.Particles.Pos = [][]float64{{400, 0, 0}}
	parameters.Particles.Dir = [][]float64{{1, 0, 0}}
	m := newCopperModel(t, parameters)
	m.Run()

	suppressed := 0
	for _, p := range m.Output.Particles {
		if p.Termination == particle.Suppressed {
			suppressed++
			if p.Incident {
				t.Errorf("incident ion suppressed")
			}
		}
	}
	if suppressed == 0 {
		t.Errorf("no recoil suppressed 400 A below the surface")
	}
	if len(m.Output.Displacements) == 0 {
		t.Errorf("no displacements recorded")
	}
}

func TestSource(t *testing.T) {
	file := filepath.Join(t.TempDir(), "particles.dat")
	err := os.WriteFile(file, []byte("# N M Z E Ec Es x y z ux uy uz\n3 1 1 100 1 0 -1 0 0 1 0 0\n"), 0600)
	if err != nil {
		t.Fatal(err)
	}
	source, err := NewSource(config.ParticleParameters{
		N:          []int{2},
		M:          []float64{4},
		Z:          []float64{2},
		E:          []float64{1},
		Ec:         []float64{1},
		Es:         []float64{0},
		Pos:        [][]float64{{-2, 0, 0}},
		Dir:        [][]float64{{2, 0, 0}},
		EnergyUnit: "KEV",
		BeamRadius: 5,
		InputFile:  file,
	})
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	if source.Len() != 5 {
		t.Fatalf("%d particles, expected 5", source.Len())
	}
	rng := rand.New(rand.NewPCG(1, 2))
	first := source.Particle(1, false, rng)
	if first.Z != 2 || first.E != 1e3*constants.EV || first.Dir.X != 1 {
		t.Errorf("particle 1: %+v", first)
	}
	if r := first.Pos.Y*first.Pos.Y + first.Pos.Z*first.Pos.Z; r > 25*constants.Angstrom*constants.Angstrom {
		t.Errorf("start outside the beam spot: %v", first.Pos)
	}
	last := source.Particle(4, false, rng)
	if last.Z != 1 || !scalar.EqualWithinRel(last.E, 1e5*constants.EV, 1e-12) || !last.Incident || !last.FirstStep {
		t.Errorf("particle 4: %+v", last)
	}

	covered := 0
	for chunk := range 3 {
		start, end := chunkBounds(source.Len(), 3, chunk)
		covered += end - start
	}
	if covered != source.Len() {
		t.Errorf("chunks cover %d of %d particles", covered, source.Len())
	}

	_, err = NewSource(config.ParticleParameters{N: []int{1}, M: []float64{1}})
	if !errors.Is(err, ErrInvalidParticles) {
		t.Errorf("expected ErrInvalidParticles, got %v", err)
	}
}

func TestSaveAndSummary(t *testing.T) {
	m := newCopperModel(t, copperParameters(10, 1000))
	m.Run()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	df := newDataFlags(fs)
	if err := fs.Parse([]string{"-all"}); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	df.SetOutputPath(dir)

	units := []string{"NM", "KEV", "AMU"}
	de := NewDataExtractor(m, units, false)
	de.Save("copper", df)

	file, err := os.Open(filepath.Join(dir, "copper_deposited.txt"))
	if err != nil {
		t.Fatalf("deposited table: %v", err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("reading deposited table: %v", err)
	}
	if len(rows) == 0 || rows[0][2] != "x (NM)" {
		t.Errorf("deposited header %v", rows)
	}
	for _, suffix := range []string{"reflected", "sputtered", "transmitted", "suppressed", "trajectories", "displacements", "energy_loss"} {
		if _, err := os.Stat(filepath.Join(dir, "copper_"+suffix+".txt")); err != nil {
			t.Errorf("%s table: %v", suffix, err)
		}
	}

	summary := de.Summary()
	if len(summary) != len(SummaryColumns) || summary[0] != "copper" || summary[1] != "10" {
		t.Errorf("summary %v", summary)
	}
}

func TestSputteredRecoilsLeaveThroughTheFront(t *testing.T) {
	recoil := func(termination particle.Termination) particle.Particle {
		return particle.Particle{Left: true, Termination: termination}
	}
	m := &Model{
		Name: "front",
		Output: Output{
			NumIncident: 2,
			Particles: []particle.Particle{
				{Incident: true, E0: 1, Termination: particle.Stopped},
				{Incident: true, E0: 1, Termination: particle.Stopped},
				recoil(particle.Backscattered),
				recoil(particle.Transmitted),
				recoil(particle.Transmitted),
				{Termination: particle.Stopped, Stopped: true},
			},
		},
	}
	de := NewDataExtractor(m, nil, false)
	summary := de.Summary()
	if summary[5] != "1" || summary[6] != "0.5" {
		t.Errorf("sputtered %s, yield %s; expected 1 and 0.5", summary[5], summary[6])
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	df := newDataFlags(fs)
	if rows := df.tables["Sputtered atoms"].rows(de); len(rows) != 1 {
		t.Errorf("%d rows in the sputtered table, expected 1", len(rows))
	}
}
