package config

import (
	"fmt"
	"strings"

	"github.com/wildstyl3r/ionbca/internal/constants"
	"github.com/wildstyl3r/ionbca/internal/utils"
)

var unitToSI = map[string]float64{
	"ANGSTROM": constants.Angstrom, // [m]
	"NM":       1e-9,               // [m]
	"MICRON":   1e-6,               // [m]
	"CM":       1e-2,               // [m]
	"M":        1,                  // [m]
	"EV":       constants.EV,       // [J]
	"KEV":      1e3 * constants.EV, // [J]
	"MEV":      1e6 * constants.EV, // [J]
	"J":        1,                  // [J]
	"AMU":      constants.AtomicMassUnit,
	"KG":       1,
}

type UnitClass int

const (
	Length UnitClass = iota
	Energy
	Mass
)

var unitsInClass = map[UnitClass][]string{
	Length: {"ANGSTROM", "NM", "MICRON", "CM", "M"},
	Energy: {"EV", "KEV", "MEV", "J"},
	Mass:   {"AMU", "KG"},
}

var classesOfUnits = map[string]UnitClass{
	"ANGSTROM": Length,
	"NM":       Length,
	"MICRON":   Length,
	"CM":       Length,
	"M":        Length,
	"EV":       Energy,
	"KEV":      Energy,
	"MEV":      Energy,
	"J":        Energy,
	"AMU":      Mass,
	"KG":       Mass,
}

type UnitElement = struct {
	Class UnitClass
	Power int
}

var defaultUnits = []string{"ANGSTROM", "EV", "AMU"}

func (c UnitClass) String() string {
	switch c {
	case Length:
		return "length"
	case Energy:
		return "energy"
	case Mass:
		return "mass"
	}
	return "unknown"
}

// UnitScale resolves a unit tag of the given class into its SI factor.
func UnitScale(unit string, class UnitClass) (float64, error) {
	name := strings.ToUpper(strings.TrimSpace(unit))
	if name == "" {
		name = *utils.Intersect(unitsInClass[class], defaultUnits)
	}
	if unitClass, some := classesOfUnits[name]; !some || unitClass != class {
		return 0, fmt.Errorf("%w: %q is not a %s unit", ErrInvalidUnit, unit, class)
	}
	return unitToSI[name], nil
}

func checkUnits(units []string) (extended, conflicts []string) {
	classes := map[UnitClass]struct{}{}
	for _, unit := range units {
		unit = strings.ToUpper(unit)
		if _, some := classes[classesOfUnits[unit]]; some {
			conflicts = append(conflicts, unit)
		} else {
			classes[classesOfUnits[unit]] = struct{}{}
		}
		extended = append(extended, unit)
	}
	for _, unit := range defaultUnits {
		if _, some := classes[classesOfUnits[unit]]; !some {
			extended = append(extended, unit)
		}
	}
	return
}

// SI converts v between the unit system `units` and SI; direct means into SI.
func SI(v float64, classes []UnitElement, units []string, direct bool) float64 {
	for i := range classes {
		uc := classes[i]
		unit := utils.Intersect(unitsInClass[uc.Class], units)
		if unit == nil {
			continue
		}
		absPower := utils.IntAbs(uc.Power)
		if direct == (uc.Power > 0) {
			for range absPower {
				v *= unitToSI[*unit]
			}
		} else {
			for range absPower {
				v /= unitToSI[*unit]
			}
		}
	}
	return v
}

// UnitName is the unit of the class among units, empty if none is listed.
func UnitName(class UnitClass, units []string) string {
	if unit := utils.Intersect(unitsInClass[class], units); unit != nil {
		return *unit
	}
	return ""
}
