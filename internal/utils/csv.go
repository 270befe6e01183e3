package utils

import (
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/facette/natsort"
)

type CSV [][]string

func (data CSV) Less(i, j int) bool {
	return natsort.Compare(data[i][0], data[j][0])
}

func (data CSV) Len() int {
	return len(data)
}
func (data CSV) Swap(i, j int) {
	data[i], data[j] = data[j], data[i]
}

// WriteAsCSV writes rows naturally ordered by their first column under a header.
func WriteAsCSV(data CSV, makeDir bool, path, subpath, filename string, columns []string) error {
	clearName := GetFilename(filename)
	file, err := OpenFile(makeDir, path, subpath, clearName)
	if err != nil {
		return fmt.Errorf("unable to save %s: %w", clearName, err)
	}
	defer file.Close()
	w := csv.NewWriter(file)
	w.Write(columns)
	sort.Sort(data)
	w.WriteAll(data)
	return w.Error()
}
