package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/facette/natsort"

	"github.com/wildstyl3r/ionbca/internal/utils"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	OutputDir   string
	MakeDir     bool
	OutputUnits []string
	Models      map[string]ModelParameters
	ModelParameters

	meta toml.MetaData
	name string
}

// ModelParameters is everything a single run needs. Sections omitted by a
// [Models.<name>] table are inherited field by field from the top level.
type ModelParameters struct {
	Options   Options
	Material  MaterialParameters
	Mesh      MeshInput
	Particles ParticleParameters
}

type MaterialParameters struct {
	EnergyUnit                         string
	MassUnit                           string
	Eb                                 []float64
	Es                                 []float64
	Ec                                 []float64
	N                                  []float64 // [length unit of the mesh ^ -3]
	Z                                  []float64
	M                                  []float64
	InteractionIndex                   []int
	ElectronicStoppingCorrectionFactor float64
	EnergyBarrierThickness             float64 // [length unit of the mesh]
	SurfaceBindingModel                SurfaceBindingModel
}

// MeshInput describes triangles as (x1, x2, x3, y1, y2, y3).
type MeshInput struct {
	LengthUnit               string
	CoordinateSets           [][]float64
	Densities                [][]float64 // [length unit ^ -3]
	BoundaryPoints           [][]float64
	SimulationBoundaryPoints [][]float64
}

type ParticleParameters struct {
	LengthUnit       string
	EnergyUnit       string
	MassUnit         string
	N                []int
	M                []float64
	Z                []float64
	E                []float64
	Ec               []float64
	Es               []float64
	Pos              [][]float64
	Dir              [][]float64
	InteractionIndex []int
	BeamRadius       float64 // [length unit]
	InputFile        string  // rows: N M Z E Ec Es x y z ux uy uz
}

var defaultValues = map[string]any{
	"Options.Name":                                "",
	"Options.TrackRecoils":                        true,
	"Options.WeakCollisionOrder":                  0,
	"Options.ElectronicStoppingMode":              Interpolated,
	"Options.MeanFreePathModel":                   Liquid,
	"Options.NumThreads":                          1,
	"Options.NumChunks":                           1,
	"Material.EnergyUnit":                         "EV",
	"Material.MassUnit":                           "AMU",
	"Material.SurfaceBindingModel":                Target,
	"Material.EnergyBarrierThickness":             0.,
	"Material.ElectronicStoppingCorrectionFactor": 1.,
	"Mesh.LengthUnit":                             "ANGSTROM",
	"Particles.LengthUnit":                        "ANGSTROM",
	"Particles.EnergyUnit":                        "EV",
	"Particles.MassUnit":                          "AMU",
}

var sections = []string{"Options", "Material", "Mesh", "Particles"}

// fields required in the unified parameters of every model
var requiredFields = map[string][]string{
	"Options":   {"InteractionPotential", "ScatteringIntegral", "RootFinder"},
	"Material":  {"Z", "M", "Es", "Eb", "Ec", "InteractionIndex"},
	"Mesh":      {"CoordinateSets", "BoundaryPoints", "SimulationBoundaryPoints"},
	"Particles": {},
}

func LoadConfig(configFileName string) (*Config, error) {
	var config Config
	configFileName = strings.TrimSuffix(configFileName, ".toml")
	meta, err := toml.DecodeFile(configFileName+".toml", &config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	config.meta = meta
	config.name = utils.GetFilename(configFileName)

	var unitsConflict []string
	config.OutputUnits, unitsConflict = checkUnits(config.OutputUnits)
	if len(unitsConflict) > 0 {
		return nil, fmt.Errorf("%w: found output unit conflict: %v", ErrInvalidConfig, unitsConflict)
	}
	return &config, nil
}

// ModelNames lists the runs of the config in natural order.
func (c *Config) ModelNames() []string {
	if len(c.Models) == 0 {
		return []string{c.name}
	}
	names := make([]string, 0, len(c.Models))
	for name := range c.Models {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if natsort.Compare(a, b) {
			return -1
		} else if natsort.Compare(b, a) {
			return 1
		}
		return 0
	})
	return names
}

/*
field value priority:
1. local  ([Models.<name>.<Section>])
2. global ([<Section>])
3. default
*/

// Model unifies the parameters of a model with the globals and defaults.
func (c *Config) Model(modelName string) (ModelParameters, error) {
	var unified ModelParameters
	local, isLocal := c.Models[modelName]
	unifiedReflect := reflect.ValueOf(&unified).Elem()
	localReflect := reflect.ValueOf(&local).Elem()
	globalReflect := reflect.ValueOf(&c.ModelParameters).Elem()

	var missing []string
	for _, section := range sections {
		unifiedSection := unifiedReflect.FieldByName(section)
		sectionType := unifiedSection.Type()
		for i := range sectionType.NumField() {
			fieldName := sectionType.Field(i).Name
			key := section + "." + fieldName
			switch {
			case isLocal && c.meta.IsDefined("Models", modelName, section, fieldName):
				unifiedSection.Field(i).Set(localReflect.FieldByName(section).Field(i))
			case c.meta.IsDefined(section, fieldName):
				unifiedSection.Field(i).Set(globalReflect.FieldByName(section).Field(i))
			default:
				if value, some := defaultValues[key]; some {
					unifiedSection.Field(i).Set(reflect.ValueOf(value))
				} else if slices.Contains(requiredFields[section], fieldName) {
					missing = append(missing, key)
				}
			}
		}
	}
	if len(missing) > 0 {
		return unified, fmt.Errorf("%w: model %s lacks %v", ErrInvalidConfig, modelName, missing)
	}
	if unified.Options.Name == "" {
		unified.Options.Name = modelName
	}
	if len(unified.Particles.N) == 0 && unified.Particles.InputFile == "" {
		return unified, fmt.Errorf("%w: model %s has no incident particles", ErrInvalidConfig, modelName)
	}
	return unified, nil
}

// InteractionCount is one past the largest interaction index in use.
func (mp *ModelParameters) InteractionCount() int {
	count := 0
	for _, index := range slices.Concat(mp.Material.InteractionIndex, mp.Particles.InteractionIndex) {
		count = max(count, index+1)
	}
	return count
}

// Name is the config file name without directory and extension.
func (c *Config) Name() string {
	return c.name
}
