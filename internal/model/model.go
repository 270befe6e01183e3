package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wildstyl3r/ionbca/internal/bca"
	"github.com/wildstyl3r/ionbca/internal/config"
	"github.com/wildstyl3r/ionbca/internal/interactions"
	"github.com/wildstyl3r/ionbca/internal/material"
	"github.com/wildstyl3r/ionbca/internal/particle"
)

// recoils deeper than this many estimated ranges never reach the surface
const deepRecoilRangeFactor = 10.

type Displacement struct {
	M            float64 // displacing particle [kg]
	Z            float64
	RecoilEnergy float64 // [J]
	Pos          r3.Vec  // site of the displaced atom [m]
}

// Output is the result of a set of histories: every particle in its final
// state, incident ions and recoils alike.
type Output struct {
	Particles            []particle.Particle
	Displacements        []Displacement
	NumIncident          int
	UnresolvedCollisions int
}

func (o *Output) Merge(other Output) {
	o.Particles = append(o.Particles, other.Particles...)
	o.Displacements = append(o.Displacements, other.Displacements...)
	o.NumIncident += other.NumIncident
	o.UnresolvedCollisions += other.UnresolvedCollisions
}

type Model struct {
	Name     string
	Options  config.Options
	Material *material.Material
	Source   *Source
	Output   Output
}

func NewModel(parameters config.ModelParameters) (*Model, error) {
	target, err := material.New(parameters.Material, parameters.Mesh)
	if err != nil {
		return nil, err
	}
	source, err := NewSource(parameters.Particles)
	if err != nil {
		return nil, err
	}
	m := &Model{
		Name:     parameters.Options.Name,
		Options:  parameters.Options,
		Material: target,
		Source:   source,
	}
	if err := m.Options.Validate(max(parameters.InteractionCount(), source.InteractionCount())); err != nil {
		return nil, err
	}
	if m.Options.Verbose {
		fmt.Printf("Species: %d; incident ions: %d; chunks: %d; threads: %d\n",
			target.NumSpecies(), source.Len(), m.Options.NumChunks, m.Options.NumThreads)
	}
	return m, nil
}

type chunkOutput struct {
	chunk  int
	output Output
}

// Run simulates every incident ion. Chunks are seeded by their index, so the
// merged output does not depend on the number of threads.
func (m *Model) Run() {
	chunks := make(chan int, m.Options.NumChunks)
	results := make(chan chunkOutput, m.Options.NumChunks)

	var computeWg sync.WaitGroup
	for range m.Options.NumThreads {
		computeWg.Add(1)
		go func() {
			defer computeWg.Done()
			for chunk := range chunks {
				results <- chunkOutput{chunk, m.runChunk(chunk)}
			}
		}()
	}
	for chunk := range m.Options.NumChunks {
		chunks <- chunk
	}
	close(chunks)

	go func() {
		computeWg.Wait()
		close(results)
	}()

	outputs := make([]Output, m.Options.NumChunks)
	status := []string{"//", "==", "\\\\", "||"}
	done := 0
	for result := range results {
		outputs[result.chunk] = result.output
		done++
		if m.Options.Verbose {
			fmt.Printf("\r%s Done:[%d/%d]", status[done&0b11], done, m.Options.NumChunks)
		}
	}
	if m.Options.Verbose {
		fmt.Println()
	}

	m.Output = Output{}
	for _, output := range outputs {
		m.Output.Merge(output)
	}
	if m.Options.Verbose && m.Output.UnresolvedCollisions > 0 {
		fmt.Printf("Unresolved collisions skipped: %d\n", m.Output.UnresolvedCollisions)
	}
}

func (m *Model) runChunk(chunk int) Output {
	rng := rand.New(rand.NewPCG(m.Options.Seed, uint64(chunk)))
	start, end := chunkBounds(m.Source.Len(), m.Options.NumChunks, chunk)
	var output Output
	for i := start; i < end; i++ {
		incident := m.Source.Particle(i, m.Options.TrackTrajectories, rng)
		output.Merge(SingleIonBCA(incident, m.Material, &m.Options, rng))
	}
	return output
}

// SingleIonBCA follows an incident ion and, depth first, every recoil of its
// cascade until all of them stopped, left or were suppressed.
func SingleIonBCA(incident particle.Particle, m *material.Material, opts *config.Options, rng *rand.Rand) Output {
	output := Output{NumIncident: 1}
	stack := []particle.Particle{incident}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for !p.Finished() {
			geometries := bca.DetermineMFPPhiImpactParameter(&p, m, opts, rng)

			totalEnergyTransfer, totalDeflection := 0., 0.
			strongX0, strongZ, strongIndex := 0., 0., -1
			for k, g := range geometries {
				species, recoil := bca.ChooseCollisionPartner(&p, m, g, opts, rng)
				if !m.Inside(recoil.Pos.X, recoil.Pos.Y) {
					continue
				}
				result, err := bca.CalculateBinaryCollision(&p, &recoil, g, opts)
				if errors.Is(err, bca.ErrCollisionUnresolved) {
					output.UnresolvedCollisions++
					continue
				} else if err != nil {
					panic(err)
				}
				if k == 0 {
					strongX0, strongZ, strongIndex = result.NormalizedDistanceOfClosestApproach, recoil.Z, species
				}

				particle.Rotate(&p, result.Psi, g.Phi)
				totalEnergyTransfer += result.RecoilEnergy
				totalDeflection += result.AsymptoticDeflection
				p.NumCollisions++

				bulkBinding := m.AverageBulkBindingEnergy(recoil.Pos.X, recoil.Pos.Y)
				if opts.TrackDisplacements && result.RecoilEnergy > bulkBinding {
					output.Displacements = append(output.Displacements, Displacement{
						M:            p.M,
						Z:            p.Z,
						RecoilEnergy: result.RecoilEnergy,
						Pos:          recoil.Pos,
					})
				}
				if !opts.TrackRecoils || result.RecoilEnergy-bulkBinding <= recoil.Ec {
					continue
				}

				recoil.SetEnergy(result.RecoilEnergy - bulkBinding)
				recoil.E0 = recoil.E
				recoil.Trajectory = nil
				recoil.AddTrajectory()
				particle.Rotate(&recoil, -result.PsiRecoil, g.Phi)
				if opts.SuppressDeepRecoils && deepRecoil(&recoil, m, opts) {
					recoil.Termination = particle.Suppressed
					output.Particles = append(output.Particles, recoil)
					continue
				}
				stack = append(stack, recoil)
			}

			distance := particle.Advance(&p, geometries[0].MFP, totalDeflection)
			bca.UpdateParticleEnergy(&p, m, distance, totalEnergyTransfer, strongX0, strongZ, strongIndex, opts)
			particle.SurfaceBindingEnergy(&p, m)
			particle.BoundaryCondition(&p, m)
			if !p.Finished() {
				p.AddTrajectory()
			}
		}
		output.Particles = append(output.Particles, p)
	}
	return output
}

// deepRecoil compares the distance to the surface with a power law estimate
// of the recoil range in reduced units.
func deepRecoil(p *particle.Particle, m *material.Material, opts *config.Options) bool {
	x, y := p.Pos.X, p.Pos.Y
	if !m.Inside(x, y) {
		return false
	}
	Zb, Mb := m.AverageZ(x, y), m.AverageMass(x, y)
	potential := opts.InteractionPotential[p.InteractionIndex][p.InteractionIndex]
	a := interactions.ScreeningLength(p.Z, Zb, potential)
	reducedEnergy := interactions.ReducedEnergy(p.Z, Zb, p.M, Mb, p.E, potential)
	estimatedRange := math.Pow(math.Pow(reducedEnergy, 0.3)+0.1, 3) / (m.TotalNumberDensity(x, y) * a * a)
	return m.DistanceToBoundary(x, y) > deepRecoilRangeFactor*estimatedRange
}

