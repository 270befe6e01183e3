package material

import (
	"math"

	"github.com/wildstyl3r/ionbca/internal/config"
	"github.com/wildstyl3r/ionbca/internal/constants"
	"github.com/wildstyl3r/ionbca/internal/interactions"
)

// 4 pi (e^2 / 4 pi e0)^2 / (me c^2) [J m^2]
var betheBlochPrefactor = 4. * math.Pi *
	math.Pow(constants.ElectronCharge*constants.ElectronCharge/(4.*math.Pi*constants.FreeSpacePermittivityE0), 2) /
	(constants.ElectronMass * constants.SpeedOfLight * constants.SpeedOfLight)

// lindhardScharffPrefactor turns the empirical Lindhard-Scharff expression
// from eV A^2 into J m^2.
const lindhardScharffPrefactor = 1.212 * constants.EV * constants.Angstrom * constants.Angstrom

// LindhardScharff is the low energy stopping cross section [J m^2].
func LindhardScharff(Za, Ma, Zb, E float64) float64 {
	return lindhardScharffPrefactor * math.Pow(Za, 7./6.) * Zb /
		(math.Pow(math.Pow(Za, 2./3.)+math.Pow(Zb, 2./3.), 1.5) * math.Sqrt(Ma/constants.AtomicMassUnit)) *
		math.Sqrt(E/constants.EV)
}

// BetheBloch is the high energy stopping cross section [J m^2] with the
// Biersack shell correction.
func BetheBloch(Za, Ma, Zb, E float64) float64 {
	var I0, B float64
	if Zb < 13 {
		I0 = 12. + 7./Zb
	} else {
		I0 = 9.76 + 58.5*math.Pow(Zb, -1.19)
	}
	I := I0 * Zb * constants.EV
	if Zb < 3 {
		B = 100. * Za / Zb
	} else {
		B = 5.
	}
	gamma := 1. + E/(Ma*constants.SpeedOfLight*constants.SpeedOfLight)
	beta2 := 1. - 1./(gamma*gamma)
	eb := 2. * constants.ElectronMass * constants.SpeedOfLight * constants.SpeedOfLight * beta2 / I
	return betheBlochPrefactor * Za * Za * Zb / beta2 * math.Log(eb+1.+B/eb)
}

// ElectronicStoppingCrossSections returns the stopping cross section of a
// projectile (Za, Ma, E) against every species [J m^2], already multiplied by
// the correction factor.
func (m *Material) ElectronicStoppingCrossSections(Za, Ma, E float64, mode config.ElectronicStoppingMode) []float64 {
	stopping := make([]float64, len(m.Z))
	for i, Zb := range m.Z {
		low := LindhardScharff(Za, Ma, Zb, E)
		if mode == config.Interpolated {
			high := BetheBloch(Za, Ma, Zb, E)
			if high > 0 {
				low = low * high / (low + high)
			}
		}
		stopping[i] = m.ElectronicStoppingCorrectionFactor * low
	}
	return stopping
}

// OenRobinsonLoss is the energy lost to electrons in a single collision of
// reduced closest approach x0 under the local model [J].
func OenRobinsonLoss(Za, Zb, Se, x0 float64, potential interactions.Potential) float64 {
	d1, ok := interactions.OenRobinsonDecay(potential)
	if !ok {
		return 0
	}
	a := interactions.ScreeningLength(Za, Zb, potential)
	return d1 * d1 / (2. * math.Pi) * Se * math.Exp(-d1*x0) / (a * a)
}
