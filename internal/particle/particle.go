package particle

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

type Termination int

const (
	Running Termination = iota
	Backscattered
	Transmitted
	Stopped
	Suppressed
)

func (t Termination) String() string {
	switch t {
	case Running:
		return "running"
	case Backscattered:
		return "backscattered"
	case Transmitted:
		return "transmitted"
	case Stopped:
		return "stopped"
	case Suppressed:
		return "suppressed"
	}
	return fmt.Sprintf("Termination(%d)", int(t))
}

type TrajectoryPoint struct {
	E   float64 // [J]
	Pos r3.Vec  // [m]
}

// EnergyLoss is recorded per free flight with its collisions.
type EnergyLoss struct {
	Electronic float64 // [J]
	Nuclear    float64 // [J]
	Pos        r3.Vec
}

type Particle struct {
	M  float64 // [kg]
	Z  float64
	E  float64 // [J]
	Ec float64 // [J]
	Es float64 // [J]
	E0 float64 // [J]

	Pos       r3.Vec
	PosOld    r3.Vec
	PosOrigin r3.Vec
	Dir       r3.Vec
	DirOld    r3.Vec

	Incident      bool
	Track         bool
	Stopped       bool
	Left          bool
	Backreflected bool
	FirstStep     bool

	InteractionIndex int
	SpeciesIndex     int // -1 for incident ions

	AsymptoticDeflection float64 // [m]

	PathLength     float64 // [m]
	ElectronicLoss float64 // [J]
	NuclearLoss    float64 // [J]
	NumCollisions  int

	Trajectory   []TrajectoryPoint
	EnergyLosses []EnergyLoss
	Termination  Termination
}

func New(m, z, e, ec, es float64, pos, dir r3.Vec, incident, track bool, interactionIndex int) Particle {
	dir = r3.Unit(dir)
	p := Particle{
		M:                m,
		Z:                z,
		E:                e,
		Ec:               ec,
		Es:               es,
		E0:               e,
		Pos:              pos,
		PosOld:           pos,
		PosOrigin:        pos,
		Dir:              dir,
		DirOld:           dir,
		Incident:         incident,
		Track:            track,
		FirstStep:        incident,
		InteractionIndex: interactionIndex,
		SpeciesIndex:     -1,
	}
	p.AddTrajectory()
	return p
}

func (p *Particle) Momentum() r3.Vec {
	return r3.Scale(math.Sqrt(2.*p.M*p.E), p.Dir)
}

func (p *Particle) AddTrajectory() {
	if p.Track {
		p.Trajectory = append(p.Trajectory, TrajectoryPoint{E: p.E, Pos: p.Pos})
	}
}

func (p *Particle) Finished() bool {
	return p.Stopped || p.Left || p.Termination != Running
}

// SetEnergy panics on values no physical process can produce.
func (p *Particle) SetEnergy(e float64) {
	if math.IsNaN(e) || math.IsInf(e, 0) {
		panic(fmt.Sprintf("particle energy is %v", e))
	}
	p.E = math.Max(e, 0)
}
