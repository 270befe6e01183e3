package model

import (
	"flag"

	"github.com/wildstyl3r/ionbca/internal/config"
	"github.com/wildstyl3r/ionbca/internal/particle"
)

type DataItem struct {
	saveFlag   *bool
	fileSuffix string
}

// TableDataItem is saved as one CSV row per record.
type TableDataItem struct {
	DataItem
	columnNames []string
	rows        func(*DataExtractor) [][]float64
	units       [][]config.UnitElement // per column, nil for dimensionless
}

type DataFlags struct {
	all        *bool
	tables     map[string]TableDataItem
	outputPath string
}

var (
	dimensionless []config.UnitElement
	length        = []config.UnitElement{{Class: config.Length, Power: 1}}
	energy        = []config.UnitElement{{Class: config.Energy, Power: 1}}
	mass          = []config.UnitElement{{Class: config.Mass, Power: 1}}
)

var (
	particleColumns = []string{"M", "Z", "E", "x", "y", "z", "ux", "uy", "uz", "x0", "y0", "z0", "path length", "collisions"}
	particleUnits   = [][]config.UnitElement{
		mass, dimensionless, energy,
		length, length, length,
		dimensionless, dimensionless, dimensionless,
		length, length, length,
		length, dimensionless,
	}
)

func particleRow(p *particle.Particle) []float64 {
	return []float64{
		p.M, p.Z, p.E,
		p.Pos.X, p.Pos.Y, p.Pos.Z,
		p.Dir.X, p.Dir.Y, p.Dir.Z,
		p.PosOrigin.X, p.PosOrigin.Y, p.PosOrigin.Z,
		p.PathLength, float64(p.NumCollisions),
	}
}

// particleTable lists the final states of the particles that satisfy selected.
func particleTable(selected func(*particle.Particle) bool) func(*DataExtractor) [][]float64 {
	return func(de *DataExtractor) (rows [][]float64) {
		for i := range de.model.Output.Particles {
			if p := &de.model.Output.Particles[i]; selected(p) {
				rows = append(rows, particleRow(p))
			}
		}
		return rows
	}
}

// NewDataFlags registers the output switches on the command line flag set.
func NewDataFlags() DataFlags {
	return newDataFlags(flag.CommandLine)
}

func newDataFlags(fs *flag.FlagSet) DataFlags {
	return DataFlags{
		all: fs.Bool("all", false, "save every available table"),
		tables: map[string]TableDataItem{
			"Reflected ions": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("r", true, "save reflected ions"),
					fileSuffix: "reflected",
				},
				columnNames: particleColumns,
				rows: particleTable(func(p *particle.Particle) bool {
					return p.Incident && p.Termination == particle.Backscattered
				}),
				units: particleUnits,
			},
			"Transmitted ions": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("t", false, "save transmitted ions"),
					fileSuffix: "transmitted",
				},
				columnNames: particleColumns,
				rows: particleTable(func(p *particle.Particle) bool {
					return p.Incident && p.Termination == particle.Transmitted
				}),
				units: particleUnits,
			},
			"Sputtered atoms": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("s", true, "save sputtered atoms"),
					fileSuffix: "sputtered",
				},
				columnNames: particleColumns,
				rows: particleTable(func(p *particle.Particle) bool {
					return !p.Incident && p.Termination == particle.Backscattered
				}),
				units: particleUnits,
			},
			"Deposited ions": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("d", true, "save deposited ions"),
					fileSuffix: "deposited",
				},
				columnNames: []string{"M", "Z", "x", "y", "z", "path length", "collisions"},
				rows: func(de *DataExtractor) (rows [][]float64) {
					for _, p := range de.model.Output.Particles {
						if p.Incident && p.Termination == particle.Stopped {
							rows = append(rows, []float64{p.M, p.Z, p.Pos.X, p.Pos.Y, p.Pos.Z, p.PathLength, float64(p.NumCollisions)})
						}
					}
					return rows
				},
				units: [][]config.UnitElement{mass, dimensionless, length, length, length, length, dimensionless},
			},
			"Suppressed recoils": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("sup", false, "save suppressed deep recoils"),
					fileSuffix: "suppressed",
				},
				columnNames: particleColumns,
				rows: particleTable(func(p *particle.Particle) bool {
					return p.Termination == particle.Suppressed
				}),
				units: particleUnits,
			},
			"Trajectories": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("traj", false, "save tracked trajectories"),
					fileSuffix: "trajectories",
				},
				columnNames: []string{"particle", "M", "Z", "E", "x", "y", "z"},
				rows: func(de *DataExtractor) (rows [][]float64) {
					for i, p := range de.model.Output.Particles {
						for _, point := range p.Trajectory {
							rows = append(rows, []float64{float64(i), p.M, p.Z, point.E, point.Pos.X, point.Pos.Y, point.Pos.Z})
						}
					}
					return rows
				},
				units: [][]config.UnitElement{dimensionless, mass, dimensionless, energy, length, length, length},
			},
			"Displacements": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("disp", false, "save displacement sites"),
					fileSuffix: "displacements",
				},
				columnNames: []string{"M", "Z", "recoil E", "x", "y", "z"},
				rows: func(de *DataExtractor) (rows [][]float64) {
					for _, d := range de.model.Output.Displacements {
						rows = append(rows, []float64{d.M, d.Z, d.RecoilEnergy, d.Pos.X, d.Pos.Y, d.Pos.Z})
					}
					return rows
				},
				units: [][]config.UnitElement{mass, dimensionless, energy, length, length, length},
			},
			"Energy losses": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("el", false, "save energy losses per step"),
					fileSuffix: "energy_loss",
				},
				columnNames: []string{"particle", "M", "Z", "electronic", "nuclear", "x", "y", "z"},
				rows: func(de *DataExtractor) (rows [][]float64) {
					for i, p := range de.model.Output.Particles {
						for _, loss := range p.EnergyLosses {
							rows = append(rows, []float64{float64(i), p.M, p.Z, loss.Electronic, loss.Nuclear, loss.Pos.X, loss.Pos.Y, loss.Pos.Z})
						}
					}
					return rows
				},
				units: [][]config.UnitElement{dimensionless, mass, dimensionless, energy, energy, length, length, length},
			},
		},
	}
}

func (df *DataFlags) SetOutputPath(path string) {
	if path != "" && path[len(path)-1] != '/' {
		df.outputPath = path + "/"
	} else {
		df.outputPath = path
	}
}

func (df *DataFlags) GetOutputPath() string {
	return df.outputPath
}
