package bca

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/wildstyl3r/ionbca/internal/config"
	"github.com/wildstyl3r/ionbca/internal/interactions"
	"github.com/wildstyl3r/ionbca/internal/utils"
)

var (
	ErrRootNotFound        = errors.New("distance of closest approach not found")
	ErrCollisionUnresolved = errors.New("binary collision unresolved")
)

// coulombBound is the closest approach of the unscreened potential, an upper
// bound for every screened one.
func coulombBound(beta, reducedEnergy float64) float64 {
	return 1./(2.*reducedEnergy) + math.Sqrt(1./(4.*reducedEnergy*reducedEnergy)+beta*beta)
}

// NewtonRootFinder returns the reduced distance of closest approach r0/a.
func NewtonRootFinder(Za, Zb, Ma, Mb, E, p float64, potential interactions.Potential, maxIterations int, tolerance float64) (float64, error) {
	a := interactions.ScreeningLength(Za, Zb, potential)
	reducedEnergy := interactions.ReducedEnergy(Za, Zb, Ma, Mb, E, potential)
	beta := p / a

	x0 := beta
	if reducedEnergy > 5. || beta == 0 {
		x0 = coulombBound(beta, reducedEnergy)
	}
	for range maxIterations {
		f := interactions.DocaFunction(x0, beta, reducedEnergy, potential)
		df := interactions.DiffDocaFunction(x0, beta, reducedEnergy, potential)
		xn := x0 - f/df
		if xn <= 0 {
			xn = 0.5 * x0
		}
		if math.IsNaN(xn) {
			break
		}
		if (xn-x0)*(xn-x0) < tolerance {
			return xn, nil
		}
		x0 = xn
	}
	return 0, fmt.Errorf("%w: Newton did not converge in %d iterations (E = %g J, p = %g m, %v)", ErrRootNotFound, maxIterations, E, p, potential)
}

// ChebyshevProxyRootFinder interpolates x^2 f(x) on the Coulomb bracket with a
// Chebyshev series, takes its roots as eigenvalues of the colleague matrix and
// polishes the physical one with Newton steps.
func ChebyshevProxyRootFinder(Za, Zb, Ma, Mb, E, p float64, potential interactions.Potential, degree, maxIterations int, tolerance float64) (float64, error) {
	a := interactions.ScreeningLength(Za, Zb, potential)
	reducedEnergy := interactions.ReducedEnergy(Za, Zb, Ma, Mb, E, potential)
	beta := p / a
	g := func(x float64) float64 {
		return interactions.ScaledDocaFunction(x, beta, reducedEnergy, potential)
	}
	lo, hi := beta, coulombBound(beta, reducedEnergy)
	if g(hi) < 0 || math.IsNaN(g(hi)) {
		return 0, fmt.Errorf("%w: no sign change on [%g, %g]", ErrRootNotFound, lo, hi)
	}

	x0, ok := largestChebyshevRoot(chebyshevCoefficients(g, lo, hi, degree), lo, hi)
	if !ok {
		// the proxy lost the root, fall back to bisection of the bracket
		_, x0 = utils.BinarySearch(func(x float64) bool { return g(x) >= 0 }, lo, hi, tolerance*(hi-lo))
	}
	for range maxIterations {
		f := interactions.DocaFunction(x0, beta, reducedEnergy, potential)
		df := interactions.DiffDocaFunction(x0, beta, reducedEnergy, potential)
		step := f / df
		if math.IsNaN(step) {
			break
		}
		x0 = math.Max(lo, math.Min(hi, x0-step))
		if math.Abs(step) <= tolerance*math.Max(1, x0) {
			return x0, nil
		}
	}
	return 0, fmt.Errorf("%w: CPR polish did not converge (E = %g J, p = %g m, %v)", ErrRootNotFound, E, p, potential)
}

// chebyshevCoefficients interpolates f on [lo, hi] at the n+1 Chebyshev-Lobatto points.
func chebyshevCoefficients(f func(float64) float64, lo, hi float64, n int) []float64 {
	values := make([]float64, n+1)
	for k := range values {
		t := math.Cos(math.Pi * float64(k) / float64(n))
		values[k] = f(lo + 0.5*(t+1.)*(hi-lo))
	}
	coefficients := make([]float64, n+1)
	for j := range coefficients {
		sum := 0.
		for k, v := range values {
			term := v * math.Cos(math.Pi*float64(j*k)/float64(n))
			if k == 0 || k == n {
				term *= 0.5
			}
			sum += term
		}
		coefficients[j] = 2. * sum / float64(n)
	}
	coefficients[0] *= 0.5
	coefficients[n] *= 0.5
	return coefficients
}

func largestChebyshevRoot(coefficients []float64, lo, hi float64) (float64, bool) {
	scale := 0.
	for _, c := range coefficients {
		scale = math.Max(scale, math.Abs(c))
	}
	n := len(coefficients) - 1
	for n > 1 && math.Abs(coefficients[n]) < 1e-13*scale {
		n--
	}
	if n < 1 || coefficients[n] == 0 {
		return 0, false
	}

	var roots []complex128
	if n == 1 {
		roots = []complex128{complex(-coefficients[0]/coefficients[1], 0)}
	} else {
		colleague := mat.NewDense(n, n, nil)
		colleague.Set(0, 1, 1)
		for i := 1; i < n-1; i++ {
			colleague.Set(i, i-1, 0.5)
			colleague.Set(i, i+1, 0.5)
		}
		for j := range n {
			colleague.Set(n-1, j, colleague.At(n-1, j)-coefficients[j]/(2.*coefficients[n]))
		}
		colleague.Set(n-1, n-2, colleague.At(n-1, n-2)+0.5)

		var eigen mat.Eigen
		if !eigen.Factorize(colleague, mat.EigenNone) {
			return 0, false
		}
		roots = eigen.Values(nil)
	}

	best, found := -2., false
	for _, root := range roots {
		t := real(root)
		if math.Abs(imag(root)) > 1e-8*math.Max(1, cmplx.Abs(root)) || math.Abs(t) > 1+1e-8 {
			continue
		}
		if t > best {
			best, found = t, true
		}
	}
	if !found {
		return 0, false
	}
	best = math.Max(-1, math.Min(1, best))
	return lo + 0.5*(best+1.)*(hi-lo), true
}

// DistanceOfClosestApproach dispatches to the root finder configured for a pair.
func DistanceOfClosestApproach(finder config.RootFinder, Za, Zb, Ma, Mb, E, p float64, potential interactions.Potential) (float64, error) {
	switch finder.Kind {
	case config.ChebyshevProxy:
		return ChebyshevProxyRootFinder(Za, Zb, Ma, Mb, E, p, potential, finder.Degree, finder.MaxIterations, finder.Tolerance)
	default:
		return NewtonRootFinder(Za, Zb, Ma, Mb, E, p, potential, finder.MaxIterations, finder.Tolerance)
	}
}
