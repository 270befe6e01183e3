package model

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wildstyl3r/ionbca/internal/config"
	"github.com/wildstyl3r/ionbca/internal/particle"
	"github.com/wildstyl3r/ionbca/internal/utils"
)

var ErrInvalidParticles = errors.New("invalid particles")

// columns of Particles.InputFile: N M Z E Ec Es x y z ux uy uz
const inputFileColumns = 12

// beam is a group of identical incident ions in SI units.
type beam struct {
	count            int
	m, z, e, ec, es  float64
	pos, dir         r3.Vec
	interactionIndex int
}

// Source hands out incident ions by their global index so that any chunk can
// rebuild its share without coordination.
type Source struct {
	beams      []beam
	total      int
	beamRadius float64 // [m]
}

func NewSource(params config.ParticleParameters) (*Source, error) {
	lengthScale, err := config.UnitScale(params.LengthUnit, config.Length)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParticles, err)
	}
	energyScale, err := config.UnitScale(params.EnergyUnit, config.Energy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParticles, err)
	}
	massScale, err := config.UnitScale(params.MassUnit, config.Mass)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParticles, err)
	}
	if params.BeamRadius < 0 {
		return nil, fmt.Errorf("%w: negative beam radius", ErrInvalidParticles)
	}

	groups := len(params.N)
	for _, column := range []struct {
		name   string
		length int
	}{
		{"M", len(params.M)},
		{"Z", len(params.Z)},
		{"E", len(params.E)},
		{"Ec", len(params.Ec)},
		{"Es", len(params.Es)},
		{"Pos", len(params.Pos)},
		{"Dir", len(params.Dir)},
	} {
		if column.length != groups {
			return nil, fmt.Errorf("%w: %s has %d entries for %d particle groups", ErrInvalidParticles, column.name, column.length, groups)
		}
	}
	if len(params.InteractionIndex) != 0 && len(params.InteractionIndex) != groups {
		return nil, fmt.Errorf("%w: InteractionIndex has %d entries for %d particle groups", ErrInvalidParticles, len(params.InteractionIndex), groups)
	}

	rows := make([][]float64, 0, groups)
	for i := range groups {
		if len(params.Pos[i]) != 3 || len(params.Dir[i]) != 3 {
			return nil, fmt.Errorf("%w: group %d needs 3 position and 3 direction components", ErrInvalidParticles, i)
		}
		rows = append(rows, slices.Concat(
			[]float64{float64(params.N[i]), params.M[i], params.Z[i], params.E[i], params.Ec[i], params.Es[i]},
			params.Pos[i], params.Dir[i]))
	}
	interactionIndices := make([]int, groups)
	copy(interactionIndices, params.InteractionIndex)

	if params.InputFile != "" {
		fileRows, err := utils.ReadFloatRows(params.InputFile, inputFileColumns)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidParticles, params.InputFile, err)
		}
		rows = append(rows, fileRows...)
		interactionIndices = append(interactionIndices, make([]int, len(fileRows))...)
	}

	s := &Source{beamRadius: params.BeamRadius * lengthScale}
	for i, row := range rows {
		b := beam{
			count:            int(row[0]),
			m:                row[1] * massScale,
			z:                row[2],
			e:                row[3] * energyScale,
			ec:               row[4] * energyScale,
			es:               row[5] * energyScale,
			pos:              r3.Scale(lengthScale, r3.Vec{X: row[6], Y: row[7], Z: row[8]}),
			dir:              r3.Vec{X: row[9], Y: row[10], Z: row[11]},
			interactionIndex: interactionIndices[i],
		}
		switch {
		case b.count < 0:
			return nil, fmt.Errorf("%w: group %d has a negative count", ErrInvalidParticles, i)
		case b.m <= 0 || b.z <= 0 || b.e <= 0:
			return nil, fmt.Errorf("%w: group %d needs positive M, Z and E", ErrInvalidParticles, i)
		case b.ec < 0 || b.es < 0:
			return nil, fmt.Errorf("%w: group %d has a negative cutoff or binding energy", ErrInvalidParticles, i)
		case b.dir.X == 0 && b.dir.Y == 0:
			return nil, fmt.Errorf("%w: group %d moves out of the x-y plane only", ErrInvalidParticles, i)
		case b.interactionIndex < 0:
			return nil, fmt.Errorf("%w: group %d has a negative interaction index", ErrInvalidParticles, i)
		}
		s.beams = append(s.beams, b)
		s.total += b.count
	}
	if s.total == 0 {
		return nil, fmt.Errorf("%w: no incident particles", ErrInvalidParticles)
	}
	return s, nil
}

func (s *Source) Len() int {
	return s.total
}

// InteractionCount is one past the largest interaction index of the ions.
func (s *Source) InteractionCount() int {
	count := 0
	for _, b := range s.beams {
		count = max(count, b.interactionIndex+1)
	}
	return count
}

// Particle builds the i-th incident ion. A beam radius spreads the start
// position uniformly over a disk in the y-z plane.
func (s *Source) Particle(i int, track bool, rng *rand.Rand) particle.Particle {
	b := s.beams[len(s.beams)-1]
	for _, candidate := range s.beams {
		if i < candidate.count {
			b = candidate
			break
		}
		i -= candidate.count
	}
	pos := b.pos
	if s.beamRadius > 0 {
		dy, dz := utils.UniformOnDisk(s.beamRadius, rng)
		pos.Y += dy
		pos.Z += dz
	}
	return particle.New(b.m, b.z, b.e, b.ec, b.es, pos, b.dir, true, track, b.interactionIndex)
}

// chunkBounds splits [0, total) into NumChunks nearly equal ranges.
func chunkBounds(total, chunks, chunk int) (start, end int) {
	return chunk * total / chunks, (chunk + 1) * total / chunks
}
