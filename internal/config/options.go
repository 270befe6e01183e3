package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wildstyl3r/ionbca/internal/interactions"
)

var (
	ErrInvalidOptions = errors.New("invalid options")
	ErrInvalidUnit    = errors.New("invalid unit")
)

type ElectronicStoppingMode int

const (
	Interpolated ElectronicStoppingMode = iota
	LowEnergyNonlocal
	LowEnergyLocal
	LowEnergyEquipartition
)

type MeanFreePathModel int

const (
	Liquid MeanFreePathModel = iota
	Gaseous
)

type SurfaceBindingModel int

const (
	Target SurfaceBindingModel = iota
	Individual
	Average
)

type IntegralKind int

const (
	GaussMehler IntegralKind = iota
	GaussLegendre
	MendenhallWeller
	Magic
)

type RootFinderKind int

const (
	Newton RootFinderKind = iota
	ChebyshevProxy
)

var (
	stoppingNames = []string{"INTERPOLATED", "LOW_ENERGY_NONLOCAL", "LOW_ENERGY_LOCAL", "LOW_ENERGY_EQUIPARTITION"}
	mfpNames      = []string{"LIQUID", "GASEOUS"}
	bindingNames  = []string{"TARGET", "INDIVIDUAL", "AVERAGE"}
	integralNames = []string{"GAUSS_MEHLER", "GAUSS_LEGENDRE", "MENDENHALL_WELLER", "MAGIC"}
	finderNames   = []string{"NEWTON", "CPR"}
)

func indexOfName(names []string, text, what string) (int, error) {
	name := strings.ToUpper(strings.TrimSpace(text))
	for i := range names {
		if names[i] == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown %s %q, expected one of %v", ErrInvalidOptions, what, text, names)
}

func nameOf(names []string, i int) string {
	if 0 <= i && i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("%d", i)
}

func (m ElectronicStoppingMode) String() string { return nameOf(stoppingNames, int(m)) }
func (m MeanFreePathModel) String() string      { return nameOf(mfpNames, int(m)) }
func (m SurfaceBindingModel) String() string    { return nameOf(bindingNames, int(m)) }
func (k IntegralKind) String() string           { return nameOf(integralNames, int(k)) }
func (k RootFinderKind) String() string         { return nameOf(finderNames, int(k)) }

func (m *ElectronicStoppingMode) UnmarshalText(text []byte) error {
	i, err := indexOfName(stoppingNames, string(text), "electronic stopping mode")
	*m = ElectronicStoppingMode(i)
	return err
}

func (m *MeanFreePathModel) UnmarshalText(text []byte) error {
	i, err := indexOfName(mfpNames, string(text), "mean free path model")
	*m = MeanFreePathModel(i)
	return err
}

func (m *SurfaceBindingModel) UnmarshalText(text []byte) error {
	i, err := indexOfName(bindingNames, string(text), "surface binding model")
	*m = SurfaceBindingModel(i)
	return err
}

// ScatteringIntegral selects the quadrature of the deflection integral.
// In TOML: "GAUSS_LEGENDRE" or {GAUSS_MEHLER = {NPoints = 10}}.
type ScatteringIntegral struct {
	Kind    IntegralKind
	NPoints int
}

func (s ScatteringIntegral) String() string {
	if s.Kind == GaussMehler {
		return fmt.Sprintf("%v{%d}", s.Kind, s.NPoints)
	}
	return s.Kind.String()
}

func (s *ScatteringIntegral) UnmarshalTOML(data any) error {
	name, fields, err := variant(data)
	if err != nil {
		return err
	}
	i, err := indexOfName(integralNames, name, "scattering integral")
	if err != nil {
		return err
	}
	*s = ScatteringIntegral{Kind: IntegralKind(i), NPoints: 10}
	if n, some := fields["NPoints"]; some {
		s.NPoints = int(asFloat(n))
	}
	return nil
}

// RootFinder selects the distance-of-closest-approach solver.
// In TOML: {NEWTON = {MaxIterations = 100, Tolerance = 1e-3}} or
// {CPR = {Degree = 32, Tolerance = 1e-12}}.
type RootFinder struct {
	Kind          RootFinderKind
	MaxIterations int
	Tolerance     float64
	Degree        int
}

func (r RootFinder) String() string {
	return fmt.Sprintf("%v{%d, %g}", r.Kind, r.MaxIterations, r.Tolerance)
}

func (r *RootFinder) UnmarshalTOML(data any) error {
	name, fields, err := variant(data)
	if err != nil {
		return err
	}
	i, err := indexOfName(finderNames, name, "root finder")
	if err != nil {
		return err
	}
	*r = RootFinder{Kind: RootFinderKind(i), MaxIterations: 100, Tolerance: 1e-3, Degree: 32}
	if r.Kind == ChebyshevProxy {
		r.Tolerance = 1e-12
	}
	if v, some := fields["MaxIterations"]; some {
		r.MaxIterations = int(asFloat(v))
	}
	if v, some := fields["Tolerance"]; some {
		r.Tolerance = asFloat(v)
	}
	if v, some := fields["Degree"]; some {
		r.Degree = int(asFloat(v))
	}
	return nil
}

func variant(data any) (string, map[string]any, error) {
	switch value := data.(type) {
	case string:
		return value, nil, nil
	case map[string]any:
		if len(value) != 1 {
			return "", nil, fmt.Errorf("%w: expected a single-key table, got %v", ErrInvalidOptions, value)
		}
		for name, inner := range value {
			fields, _ := inner.(map[string]any)
			return name, fields, nil
		}
	}
	return "", nil, fmt.Errorf("%w: unexpected value %v", ErrInvalidOptions, data)
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

// Options is shared read-only by every worker once validated.
type Options struct {
	Name                      string
	TrackTrajectories         bool
	TrackRecoils              bool
	TrackRecoilTrajectories   bool
	TrackDisplacements        bool
	TrackEnergyLosses         bool
	WeakCollisionOrder        int
	SuppressDeepRecoils       bool
	HighEnergyFreeFlightPaths bool
	ElectronicStoppingMode    ElectronicStoppingMode
	MeanFreePathModel         MeanFreePathModel
	InteractionPotential      [][]interactions.Potential
	ScatteringIntegral        [][]ScatteringIntegral
	RootFinder                [][]RootFinder
	NumThreads                int
	NumChunks                 int
	Seed                      uint64
	Verbose                   bool
}

// DefaultOptions mirrors a single-species Kr-C / Mendenhall-Weller run.
func DefaultOptions() Options {
	return Options{
		Name:                   "default",
		TrackRecoils:           true,
		ElectronicStoppingMode: Interpolated,
		MeanFreePathModel:      Liquid,
		InteractionPotential:   [][]interactions.Potential{{interactions.KrC}},
		ScatteringIntegral:     [][]ScatteringIntegral{{{Kind: MendenhallWeller}}},
		RootFinder:             [][]RootFinder{{{Kind: Newton, MaxIterations: 100, Tolerance: 1e-3}}},
		NumThreads:             1,
		NumChunks:              1,
	}
}

// Validate checks the option matrices cover interaction indices [0, numInteractions).
func (o *Options) Validate(numInteractions int) error {
	if o.NumThreads < 1 {
		return fmt.Errorf("%w: NumThreads must be positive, got %d", ErrInvalidOptions, o.NumThreads)
	}
	if o.NumChunks < 1 {
		return fmt.Errorf("%w: NumChunks must be positive, got %d", ErrInvalidOptions, o.NumChunks)
	}
	if o.WeakCollisionOrder < 0 {
		return fmt.Errorf("%w: WeakCollisionOrder must be non-negative, got %d", ErrInvalidOptions, o.WeakCollisionOrder)
	}
	if o.HighEnergyFreeFlightPaths && o.WeakCollisionOrder > 0 {
		return fmt.Errorf("%w: weak collisions are incompatible with high energy free flight paths", ErrInvalidOptions)
	}
	for _, matrix := range []struct {
		name string
		rows []int
	}{
		{"InteractionPotential", rowLengths(o.InteractionPotential)},
		{"ScatteringIntegral", rowLengths(o.ScatteringIntegral)},
		{"RootFinder", rowLengths(o.RootFinder)},
	} {
		if len(matrix.rows) < numInteractions {
			return fmt.Errorf("%w: %s has %d rows, %d interaction indices in use", ErrInvalidOptions, matrix.name, len(matrix.rows), numInteractions)
		}
		for i, n := range matrix.rows {
			if n < numInteractions {
				return fmt.Errorf("%w: %s row %d has %d entries, %d interaction indices in use", ErrInvalidOptions, matrix.name, i, n, numInteractions)
			}
		}
	}
	for i := range numInteractions {
		for j := range numInteractions {
			potential := o.InteractionPotential[i][j]
			integral := o.ScatteringIntegral[i][j]
			finder := o.RootFinder[i][j]
			if !potential.Valid() {
				return fmt.Errorf("%w: unknown potential %v at [%d][%d]", ErrInvalidOptions, potential, i, j)
			}
			if integral.Kind == Magic {
				if _, ok := interactions.MagicCoefficients(potential); !ok {
					return fmt.Errorf("%w: MAGIC is not fitted for %v at [%d][%d]", ErrInvalidOptions, potential, i, j)
				}
			}
			if integral.Kind == GaussMehler && integral.NPoints < 1 {
				return fmt.Errorf("%w: GAUSS_MEHLER needs NPoints > 0 at [%d][%d]", ErrInvalidOptions, i, j)
			}
			if o.ElectronicStoppingMode == LowEnergyLocal || o.ElectronicStoppingMode == LowEnergyEquipartition {
				if _, ok := interactions.OenRobinsonDecay(potential); !ok {
					return fmt.Errorf("%w: %v stopping is not defined for %v", ErrInvalidOptions, o.ElectronicStoppingMode, potential)
				}
			}
			if finder.MaxIterations < 1 || !(finder.Tolerance > 0) {
				return fmt.Errorf("%w: root finder %v at [%d][%d] needs positive iterations and tolerance", ErrInvalidOptions, finder, i, j)
			}
			if finder.Kind == ChebyshevProxy && finder.Degree < 2 {
				return fmt.Errorf("%w: CPR degree must be at least 2 at [%d][%d]", ErrInvalidOptions, i, j)
			}
		}
	}
	return nil
}

func rowLengths[T any](matrix [][]T) []int {
	lengths := make([]int, len(matrix))
	for i := range matrix {
		lengths[i] = len(matrix[i])
	}
	return lengths
}
