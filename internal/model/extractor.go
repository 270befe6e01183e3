package model

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"strconv"

	"github.com/wildstyl3r/ionbca/internal/config"
	"github.com/wildstyl3r/ionbca/internal/particle"
	"github.com/wildstyl3r/ionbca/internal/utils"
)

// SummaryColumns heads the per-model rows of Summary.
var SummaryColumns = []string{
	"model", "incident", "reflected", "R_N", "R_E", "sputtered", "Y",
	"transmitted", "deposited", "mean depth", "depth straggling", "unresolved collisions",
}

type DataExtractor struct {
	model       *Model
	outputUnits []string
	makeDir     bool
}

func NewDataExtractor(model *Model, outputUnits []string, makeDir bool) *DataExtractor {
	de := DataExtractor{
		model:       model,
		outputUnits: outputUnits,
		makeDir:     makeDir,
	}
	if model.Options.Verbose {
		var collisions []int
		for _, p := range model.Output.Particles {
			if p.Incident {
				collisions = append(collisions, p.NumCollisions)
			}
		}
		if len(collisions) > 0 {
			fmt.Printf("Avg collisions per ion: %f; particles in output: %d\n", utils.Average(collisions), len(model.Output.Particles))
		}
	}
	return &de
}

func (de *DataExtractor) label(name string, units []config.UnitElement) string {
	if len(units) == 0 {
		return name
	}
	return name + " (" + config.UnitName(units[0].Class, de.outputUnits) + ")"
}

func (de *DataExtractor) Save(modelName string, df DataFlags) {
	for name, output := range df.tables {
		if *output.saveFlag || *df.all {
			file, err := utils.OpenFile(de.makeDir, df.outputPath, output.fileSuffix, modelName)
			if err != nil {
				println("unable to save "+name+": ", err.Error())
				continue
			}
			header := make([]string, len(output.columnNames))
			for i := range output.columnNames {
				header[i] = de.label(output.columnNames[i], output.units[i])
			}
			rows := [][]string{header}
			for _, values := range output.rows(de) {
				row := make([]string, len(values))
				for i := range values {
					row[i] = strconv.FormatFloat(config.SI(values[i], output.units[i], de.outputUnits, false), 'g', -1, 64)
				}
				rows = append(rows, row)
			}
			w := csv.NewWriter(file)
			w.WriteAll(rows)
			file.Close()
			if de.model.Options.Verbose {
				println(name + " saved")
			}
			if err := w.Error(); err != nil {
				log.Fatalln("error writing csv:", err)
			}
		}
	}
}

// Summary returns the integral quantities of the run as a row under
// SummaryColumns: reflection coefficients by number and energy, sputtering
// yield and the mean and straggling of the projected range.
func (de *DataExtractor) Summary() []string {
	out := &de.model.Output
	var reflected, sputtered, transmitted int
	var reflectedEnergy, incidentEnergy, depths []float64
	for _, p := range out.Particles {
		switch {
		case p.Incident:
			incidentEnergy = append(incidentEnergy, p.E0)
			switch p.Termination {
			case particle.Backscattered:
				reflected++
				reflectedEnergy = append(reflectedEnergy, p.E)
			case particle.Transmitted:
				transmitted++
			case particle.Stopped:
				depths = append(depths, p.Pos.X)
			}
		case p.Termination == particle.Backscattered:
			sputtered++
		}
	}

	incident := float64(out.NumIncident)
	meanDepth, straggling := math.NaN(), math.NaN()
	if len(depths) > 1 {
		var variance float64
		meanDepth, variance = utils.MeanAndVariance(depths, true)
		straggling = math.Sqrt(variance)
	}
	energyReflection := 0.
	if total := utils.SumSlice(incidentEnergy); total > 0 {
		energyReflection = utils.SumSlice(reflectedEnergy) / total
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }
	return []string{
		de.model.Name,
		strconv.Itoa(out.NumIncident),
		strconv.Itoa(reflected),
		format(float64(reflected) / incident),
		format(energyReflection),
		strconv.Itoa(sputtered),
		format(float64(sputtered) / incident),
		strconv.Itoa(transmitted),
		strconv.Itoa(len(depths)),
		format(config.SI(meanDepth, length, de.outputUnits, false)),
		format(config.SI(straggling, length, de.outputUnits, false)),
		strconv.Itoa(out.UnresolvedCollisions),
	}
}
