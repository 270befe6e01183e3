package bca

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/wildstyl3r/ionbca/internal/config"
	"github.com/wildstyl3r/ionbca/internal/interactions"
	"github.com/wildstyl3r/ionbca/internal/utils"
)

const (
	legendrePoints = 16

	// relative width of the bracket left around the turning point
	turningPointTolerance = 1e-12
)

var legendreNodes, legendreWeights = func() ([]float64, []float64) {
	x := make([]float64, legendrePoints)
	w := make([]float64, legendrePoints)
	quad.Legendre{}.FixedLocations(x, w, 0, 1)
	return x, w
}()

type reducedCollision struct {
	beta, reducedEnergy float64
	potential           interactions.Potential
}

func newReducedCollision(Za, Zb, Ma, Mb, E, p float64, potential interactions.Potential) reducedCollision {
	return reducedCollision{
		beta:          p / interactions.ScreeningLength(Za, Zb, potential),
		reducedEnergy: interactions.ReducedEnergy(Za, Zb, Ma, Mb, E, potential),
		potential:     potential,
	}
}

// radial kernel in the inverse reduced distance u = 1/x
func (c reducedCollision) kernel(u float64) float64 {
	return 1. - u*interactions.Phi(1./u, c.potential)/c.reducedEnergy - c.beta*c.beta*u*u
}

// turningPoint moves u0 = 1/x0 onto the zero of the kernel. The kernel
// decreases in u, so every node below the returned point sees a positive
// kernel even when x0 came from a loosely converged root finder.
func (c reducedCollision) turningPoint(u0 float64) float64 {
	lo, hi := u0, u0
	for c.kernel(lo) <= 0 {
		lo *= 0.5
	}
	for c.kernel(hi) > 0 {
		hi *= 2
	}
	u, _ := utils.BinarySearch(func(u float64) bool { return c.kernel(u) <= 0 }, lo, hi, turningPointTolerance*u0)
	return u
}

// GaussMehler integrates the deflection with an n-point Gauss-Mehler rule.
// x0 is the reduced distance of closest approach.
func GaussMehler(Za, Zb, Ma, Mb, E, p, x0 float64, potential interactions.Potential, n int) float64 {
	c := newReducedCollision(Za, Zb, Ma, Mb, E, p, potential)
	u0 := c.turningPoint(1. / x0)
	sum := 0.
	for i := 1; i <= n; i++ {
		xi := math.Cos(math.Pi * float64(2*i-1) / float64(4*n))
		sum += math.Sqrt((1. - xi*xi) / c.kernel(u0*xi))
	}
	return math.Abs(math.Pi - math.Pi*c.beta*u0/float64(n)*sum)
}

// GaussLegendre integrates the deflection after the substitution
// u = u0 (1 - t^2), which removes the turning point singularity.
func GaussLegendre(Za, Zb, Ma, Mb, E, p, x0 float64, potential interactions.Potential) float64 {
	c := newReducedCollision(Za, Zb, Ma, Mb, E, p, potential)
	u0 := c.turningPoint(1. / x0)
	sum := 0.
	for i, t := range legendreNodes {
		sum += legendreWeights[i] * 2. * u0 * t / math.Sqrt(c.kernel(u0*(1.-t*t)))
	}
	return math.Abs(math.Pi - 2.*c.beta*sum)
}

// MendenhallWeller is the four point Mendenhall-Weller approximation.
func MendenhallWeller(Za, Zb, Ma, Mb, E, p, x0 float64, potential interactions.Potential) float64 {
	c := newReducedCollision(Za, Zb, Ma, Mb, E, p, potential)
	beta, eps := c.beta, c.reducedEnergy
	lambda0 := 1. / math.Sqrt(0.5+beta*beta/(2.*x0*x0)-interactions.DPhi(x0, potential)/(2.*eps))
	f := func(x float64) float64 {
		return 1. / math.Sqrt(1.-interactions.Phi(x, potential)/(x*eps)-beta*beta/(x*x))
	}
	alpha := (1. + lambda0 + 5.*(0.4206*f(x0/0.9072)+0.9072*f(x0/0.4206))) / 12.
	return math.Abs(math.Pi * (1. - beta*alpha/x0))
}

// Magic is the Biersack-Haggmark fit of the deflection.
func Magic(Za, Zb, Ma, Mb, E, p, x0 float64, potential interactions.Potential) float64 {
	coefficients, ok := interactions.MagicCoefficients(potential)
	if !ok {
		return math.NaN()
	}
	c := newReducedCollision(Za, Zb, Ma, Mb, E, p, potential)
	beta, eps := c.beta, c.reducedEnergy
	phi, dphi := interactions.PhiAndDerivative(x0, potential)

	v := phi / (x0 * eps)
	dv := (dphi/x0 - phi/(x0*x0)) / eps
	rc := -2. * (1. - v) / dv

	sqrtEps := math.Sqrt(eps)
	alpha := 1. + coefficients[0]/sqrtEps
	betaM := (coefficients[1] + sqrtEps) / (coefficients[2] + sqrtEps)
	gamma := (coefficients[3] + eps) / (coefficients[4] + eps)
	A := 2. * alpha * eps * math.Pow(beta, betaM)
	G := gamma / (math.Sqrt(1.+A*A) - A)
	delta := A * (x0 - beta) / (1. + G)

	cosHalf := math.Min(1, (beta+rc+delta)/(x0+rc))
	return math.Abs(2. * math.Acos(cosHalf))
}

// ScatteringAngle returns the center of mass deflection with the configured integral.
func ScatteringAngle(integral config.ScatteringIntegral, Za, Zb, Ma, Mb, E, p, x0 float64, potential interactions.Potential) float64 {
	switch integral.Kind {
	case config.GaussMehler:
		return GaussMehler(Za, Zb, Ma, Mb, E, p, x0, potential, integral.NPoints)
	case config.GaussLegendre:
		return GaussLegendre(Za, Zb, Ma, Mb, E, p, x0, potential)
	case config.Magic:
		return Magic(Za, Zb, Ma, Mb, E, p, x0, potential)
	default:
		return MendenhallWeller(Za, Zb, Ma, Mb, E, p, x0, potential)
	}
}
