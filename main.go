package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wildstyl3r/ionbca/internal/config"
	"github.com/wildstyl3r/ionbca/internal/model"
	"github.com/wildstyl3r/ionbca/internal/utils"
)

func main() {
	dataFlags := model.NewDataFlags()
	configFileNamePointer := flag.String("input", "ionbca", "model configuration in toml format")
	flag.Parse()

	startTime := time.Now()
	fmt.Printf("Current time: %s\n", startTime.UTC().Format(time.UnixDate))

	cfg, err := config.LoadConfig(*configFileNamePointer)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.OutputDir != "" && cfg.OutputDir != "." {
		if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		dataFlags.SetOutputPath(cfg.OutputDir)
	}

	var summary utils.CSV
	for _, modelName := range cfg.ModelNames() {
		fmt.Println("\n" + modelName)
		parameters, err := cfg.Model(modelName)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		setup, err := model.NewModel(parameters)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}

		modelStart := time.Now()
		setup.Run()
		if setup.Options.Verbose {
			fmt.Printf("Model time: %v\n", time.Since(modelStart))
		}

		extractor := model.NewDataExtractor(setup, cfg.OutputUnits, cfg.MakeDir)
		extractor.Save(modelName, dataFlags)
		summary = append(summary, extractor.Summary())
	}

	if len(summary) > 0 {
		if err := utils.WriteAsCSV(summary, cfg.MakeDir, dataFlags.GetOutputPath(), "summary", cfg.Name(), model.SummaryColumns); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	fmt.Printf("Elapsed time: %v\n", time.Since(startTime))
}
