package bca

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wildstyl3r/ionbca/internal/config"
	"github.com/wildstyl3r/ionbca/internal/constants"
	"github.com/wildstyl3r/ionbca/internal/interactions"
	"github.com/wildstyl3r/ionbca/internal/material"
	"github.com/wildstyl3r/ionbca/internal/particle"
	"github.com/wildstyl3r/ionbca/internal/utils"
)

type BinaryCollisionGeometry struct {
	Phi             float64 // azimuth [rad]
	ImpactParameter float64 // [m]
	MFP             float64 // [m]
}

type BinaryCollisionResult struct {
	Theta                               float64 // center of mass deflection
	Psi                                 float64 // lab deflection of the projectile
	PsiRecoil                           float64 // lab angle of the recoil
	RecoilEnergy                        float64 // [J]
	AsymptoticDeflection                float64 // [m]
	NormalizedDistanceOfClosestApproach float64 // r0/a
}

// maximum share of the energy one free flight may lose to electrons
const maxElectronicLossFraction = 0.05

// DetermineMFPPhiImpactParameter samples the free flight and the encounters
// that end it: one strong collision plus WeakCollisionOrder weak ones.
func DetermineMFPPhiImpactParameter(p *particle.Particle, m *material.Material, opts *config.Options, rng *rand.Rand) []BinaryCollisionGeometry {
	x, y := p.Pos.X, p.Pos.Y
	mfp := m.MeanFreePath(x, y)

	if opts.HighEnergyFreeFlightPaths {
		n := m.TotalNumberDensity(x, y)
		Zb, Mb := m.AverageZ(x, y), m.AverageMass(x, y)
		potential := opts.InteractionPotential[p.InteractionIndex][m.InteractionIndex[m.ChooseSpecies(x, y, rng)]]
		a := interactions.ScreeningLength(p.Z, Zb, potential)
		reducedEnergy := interactions.ReducedEnergy(p.Z, Zb, p.M, Mb, p.E, potential)
		reducedEnergyMin := interactions.ReducedEnergy(p.Z, Zb, p.M, Mb, p.Ec, potential)
		ep := math.Sqrt(reducedEnergy * reducedEnergyMin)

		pmax := a / (ep + math.Sqrt(ep) + 0.125*math.Pow(ep, 0.1))
		ffp := 1. / (n * math.Pi * pmax * pmax)

		stopping := m.ElectronicStoppingCrossSections(p.Z, p.M, p.E, config.Interpolated)
		electronicLoss := floats.Dot(stopping, m.NumberDensities(x, y)) * ffp
		if electronicLoss > maxElectronicLossFraction*p.E {
			ffp *= maxElectronicLossFraction * p.E / electronicLoss
			pmax = math.Sqrt(1. / (math.Pi * n * ffp))
		}
		if ffp < mfp || math.IsNaN(ffp) {
			ffp = mfp
			pmax = mfp / constants.SqrtPi
		}
		return []BinaryCollisionGeometry{{
			Phi:             2. * math.Pi * rng.Float64(),
			ImpactParameter: pmax * math.Sqrt(rng.Float64()),
			MFP:             ffp,
		}}
	}

	pmax := mfp / constants.SqrtPi
	if opts.MeanFreePathModel == config.Gaseous {
		mfp *= utils.R(rng)
	}
	if p.FirstStep {
		mfp *= rng.Float64()
		p.FirstStep = false
	}
	geometries := make([]BinaryCollisionGeometry, 0, opts.WeakCollisionOrder+1)
	for k := range opts.WeakCollisionOrder + 1 {
		geometries = append(geometries, BinaryCollisionGeometry{
			Phi:             2. * math.Pi * rng.Float64(),
			ImpactParameter: pmax * math.Sqrt(rng.Float64()+float64(k)),
			MFP:             mfp,
		})
	}
	return geometries
}

// ChooseCollisionPartner places a resting target atom at the encounter point,
// one impact parameter away from the flight line.
func ChooseCollisionPartner(p *particle.Particle, m *material.Material, g BinaryCollisionGeometry, opts *config.Options, rng *rand.Rand) (int, particle.Particle) {
	offset := r3.Sub(r3.Scale(g.MFP, p.Dir), r3.Scale(g.ImpactParameter, particle.AzimuthalDirection(p.Dir, g.Phi)))
	pos := r3.Add(p.Pos, offset)
	species := m.ChooseSpecies(pos.X, pos.Y, rng)
	recoil := particle.New(m.M[species], m.Z[species], 0, m.Ec[species], m.Es[species], pos, p.Dir,
		false, p.Track && opts.TrackRecoilTrajectories, m.InteractionIndex[species])
	recoil.SpeciesIndex = species
	return species, recoil
}

// CalculateBinaryCollision solves the two body problem of a moving projectile
// and a resting target.
func CalculateBinaryCollision(p1, p2 *particle.Particle, g BinaryCollisionGeometry, opts *config.Options) (BinaryCollisionResult, error) {
	potential := opts.InteractionPotential[p1.InteractionIndex][p2.InteractionIndex]
	integral := opts.ScatteringIntegral[p1.InteractionIndex][p2.InteractionIndex]
	finder := opts.RootFinder[p1.InteractionIndex][p2.InteractionIndex]
	Za, Zb, Ma, Mb, E := p1.Z, p2.Z, p1.M, p2.M, p1.E

	x0, err := DistanceOfClosestApproach(finder, Za, Zb, Ma, Mb, E, g.ImpactParameter, potential)
	if err != nil {
		return BinaryCollisionResult{}, fmt.Errorf("%w: %w", ErrCollisionUnresolved, err)
	}
	theta := ScatteringAngle(integral, Za, Zb, Ma, Mb, E, g.ImpactParameter, x0, potential)
	if math.IsNaN(theta) {
		return BinaryCollisionResult{}, fmt.Errorf("%w: deflection is NaN at x0 = %g", ErrCollisionUnresolved, x0)
	}

	sinTheta, cosTheta := math.Sincos(theta)
	sinHalf := math.Sin(0.5 * theta)
	result := BinaryCollisionResult{
		Theta:                               theta,
		Psi:                                 math.Abs(math.Atan2(sinTheta, Ma/Mb+cosTheta)),
		PsiRecoil:                           math.Abs(math.Atan2(sinTheta, 1.-cosTheta)),
		RecoilEnergy:                        4. * Ma * Mb / ((Ma + Mb) * (Ma + Mb)) * E * sinHalf * sinHalf,
		NormalizedDistanceOfClosestApproach: x0,
	}
	if opts.MeanFreePathModel == config.Liquid {
		result.AsymptoticDeflection = x0 * interactions.ScreeningLength(Za, Zb, potential) * sinHalf
	}
	return result, nil
}

// UpdateParticleEnergy subtracts the nuclear loss of the collisions and the
// electronic loss of the last free flight. The strong collision partner sets
// the local electronic loss; strongIndex < 0 means no collision took place.
// Returns the electronic loss.
func UpdateParticleEnergy(p *particle.Particle, m *material.Material, distance, nuclearLoss, x0, strongZ float64, strongIndex int, opts *config.Options) float64 {
	p.SetEnergy(p.E - nuclearLoss)
	p.NuclearLoss += nuclearLoss

	electronicLoss := 0.
	x, y := p.Pos.X, p.Pos.Y
	if m.Inside(x, y) && p.E > 0 {
		stopping := m.ElectronicStoppingCrossSections(p.Z, p.M, p.E, opts.ElectronicStoppingMode)
		nonlocal := floats.Dot(stopping, m.NumberDensities(x, y)) * distance
		local := 0.
		localMode := opts.ElectronicStoppingMode == config.LowEnergyLocal || opts.ElectronicStoppingMode == config.LowEnergyEquipartition
		if localMode && strongIndex >= 0 {
			potential := opts.InteractionPotential[p.InteractionIndex][m.InteractionIndex[strongIndex]]
			local = material.OenRobinsonLoss(p.Z, strongZ, stopping[strongIndex], x0, potential)
		}
		switch opts.ElectronicStoppingMode {
		case config.LowEnergyLocal:
			electronicLoss = local
		case config.LowEnergyEquipartition:
			electronicLoss = 0.5 * (local + nonlocal)
		default:
			electronicLoss = nonlocal
		}
		electronicLoss = math.Max(0, math.Min(electronicLoss, p.E))
		p.SetEnergy(p.E - electronicLoss)
		p.ElectronicLoss += electronicLoss
	}

	if opts.TrackEnergyLosses && p.Track {
		p.EnergyLosses = append(p.EnergyLosses, particle.EnergyLoss{Electronic: electronicLoss, Nuclear: nuclearLoss, Pos: p.Pos})
	}
	return electronicLoss
}
