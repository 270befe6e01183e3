package interactions

import (
	"fmt"
	"math"
	"strings"

	"github.com/wildstyl3r/ionbca/internal/constants"
)

type Potential int

const (
	KrC Potential = iota
	Moliere
	ZBL
	LenzJensen
)

var potentialNames = map[Potential]string{
	KrC:        "KR_C",
	Moliere:    "MOLIERE",
	ZBL:        "ZBL",
	LenzJensen: "LENZ_JENSEN",
}

func (p Potential) String() string {
	if name, ok := potentialNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Potential(%d)", int(p))
}

func (p Potential) Valid() bool {
	_, ok := potentialNames[p]
	return ok
}

func (p *Potential) UnmarshalText(text []byte) error {
	name := strings.ToUpper(strings.TrimSpace(string(text)))
	for potential, known := range potentialNames {
		if known == name {
			*p = potential
			return nil
		}
	}
	return fmt.Errorf("unknown interaction potential %q", string(text))
}

func (p Potential) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// screened Coulomb sums: phi(x) = sum c_i exp(-d_i x)
var screeningCoefficients = map[Potential]struct {
	c, d []float64
}{
	KrC: {
		c: []float64{0.190945, 0.473674, 0.335381},
		d: []float64{0.278544, 0.637174, 1.919249},
	},
	Moliere: {
		c: []float64{0.35, 0.55, 0.10},
		d: []float64{0.3, 1.2, 6.0},
	},
	ZBL: {
		c: []float64{0.02817, 0.28022, 0.50986, 0.18175},
		d: []float64{0.20162, 0.40290, 0.94229, 3.1998},
	},
}

const lenzJensenScale = 3.108

// ScreeningLength returns the screening length [m] of the Za-Zb pair.
func ScreeningLength(Za, Zb float64, potential Potential) float64 {
	switch potential {
	case ZBL:
		return 0.88534 * constants.BohrRadius / (math.Pow(Za, 0.23) + math.Pow(Zb, 0.23))
	default: // Firsov
		return 0.8853 * constants.BohrRadius * math.Pow(math.Sqrt(Za)+math.Sqrt(Zb), -2./3.)
	}
}

// Phi is the reduced screening function at reduced distance x = r/a.
func Phi(x float64, potential Potential) float64 {
	phi, _ := PhiAndDerivative(x, potential)
	return phi
}

// DPhi is d(phi)/dx.
func DPhi(x float64, potential Potential) float64 {
	_, dphi := PhiAndDerivative(x, potential)
	return dphi
}

func PhiAndDerivative(x float64, potential Potential) (phi, dphi float64) {
	if x <= 0 {
		x = math.SmallestNonzeroFloat64
	}
	if potential == LenzJensen {
		y := lenzJensenScale * math.Sqrt(x)
		ey := math.Exp(-y)
		poly := 1. + y*(1.+y*(0.3344+y*(0.0485+2.647e-3*y)))
		dpoly := 1. + y*(2.*0.3344+y*(3.*0.0485+4.*2.647e-3*y))
		phi = ey * poly
		if y > 0 {
			dphi = ey * (dpoly - poly) * lenzJensenScale * lenzJensenScale / (2. * y)
		}
		return
	}
	coefficients, ok := screeningCoefficients[potential]
	if !ok {
		coefficients = screeningCoefficients[KrC]
	}
	for i := range coefficients.c {
		term := coefficients.c[i] * math.Exp(-coefficients.d[i]*x)
		phi += term
		dphi -= coefficients.d[i] * term
	}
	return
}

// ReducedEnergy is the Lindhard reduced energy of a projectile of lab energy E [J].
func ReducedEnergy(Za, Zb, Ma, Mb, E float64, potential Potential) float64 {
	a := ScreeningLength(Za, Zb, potential)
	return constants.LindhardReducedEnergyPrefactor * a * Mb / (Ma + Mb) / Za / Zb * E
}

// DocaFunction vanishes at the reduced distance of closest approach.
func DocaFunction(x0, beta, reducedEnergy float64, potential Potential) float64 {
	return x0 - Phi(x0, potential)/reducedEnergy - beta*beta/x0
}

func DiffDocaFunction(x0, beta, reducedEnergy float64, potential Potential) float64 {
	return 1. - DPhi(x0, potential)/reducedEnergy + beta*beta/(x0*x0)
}

// ScaledDocaFunction is x^2 * DocaFunction, regular at x = 0.
func ScaledDocaFunction(x0, beta, reducedEnergy float64, potential Potential) float64 {
	return x0*x0 - x0*Phi(x0, potential)/reducedEnergy - beta*beta
}

// MagicCoefficients are the Biersack-Haggmark fit constants C1..C5, with
// gamma = (C4 + eps)/(C5 + eps).
func MagicCoefficients(potential Potential) ([5]float64, bool) {
	switch potential {
	case Moliere:
		return [5]float64{0.6743, 0.009611, 0.005175, 10., 6.314}, true
	case KrC:
		return [5]float64{0.7887, 0.01166, 0.006913, 17.16, 10.79}, true
	case ZBL:
		return [5]float64{0.99229, 0.011615, 0.0071222, 14.813, 9.3066}, true
	}
	return [5]float64{}, false
}

// OenRobinsonDecay is the slowest exponential decay constant of the screening
// function, used by the local electronic stopping model.
func OenRobinsonDecay(potential Potential) (float64, bool) {
	coefficients, ok := screeningCoefficients[potential]
	if !ok {
		return 0, false
	}
	return coefficients.d[0], true
}
