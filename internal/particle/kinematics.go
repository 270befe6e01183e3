package particle

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/wildstyl3r/ionbca/internal/material"
)

const parallelTolerance = 1e-12

// Rotate turns the direction by the polar angle psi at azimuth phi.
// Rotate(p, -psi, phi) undoes Rotate(p, psi, phi) only for phi in {0, pi};
// for other azimuths the frame of the second rotation has moved.
func Rotate(p *Particle, psi, phi float64) {
	ca, cb, cg := p.Dir.X, p.Dir.Y, p.Dir.Z
	cpsi, spsi := math.Cos(psi), math.Sin(psi)
	cphi, sphi := math.Cos(phi), math.Sin(phi)
	sa := math.Sqrt(math.Max(0, 1.-ca*ca))

	var dir r3.Vec
	if sa < parallelTolerance {
		// along the x axis the azimuth is measured from +y
		dir = r3.Vec{X: cpsi * ca, Y: spsi * cphi, Z: spsi * sphi}
	} else {
		dir = r3.Vec{
			X: cpsi*ca + spsi*cphi*sa,
			Y: cpsi*cb - spsi/sa*(cphi*ca*cb-sphi*cg),
			Z: cpsi*cg - spsi/sa*(cphi*ca*cg+sphi*cb),
		}
	}
	p.DirOld = p.Dir
	p.Dir = unit(dir)
}

// AzimuthalDirection is the unit vector perpendicular to dir at azimuth phi
// that Rotate tilts the direction towards.
func AzimuthalDirection(dir r3.Vec, phi float64) r3.Vec {
	sa := math.Sqrt(math.Max(0, 1.-dir.X*dir.X))
	cphi, sphi := math.Cos(phi), math.Sin(phi)
	if sa < parallelTolerance {
		return r3.Vec{Y: cphi, Z: sphi}
	}
	e1 := r3.Vec{X: sa, Y: -dir.X * dir.Y / sa, Z: -dir.X * dir.Z / sa}
	e2 := r3.Vec{Y: dir.Z / sa, Z: -dir.Y / sa}
	return r3.Add(r3.Scale(cphi, e1), r3.Scale(sphi, e2))
}

func unit(v r3.Vec) r3.Vec {
	norm := r3.Norm(v)
	if math.IsNaN(norm) || norm == 0 {
		panic("direction vector is degenerate")
	}
	return r3.Scale(1./norm, v)
}

// Advance moves the particle along its direction by the free flight corrected
// for the asymptotic deflections of the previous and the current collision.
func Advance(p *Particle, mfp, asymptoticDeflection float64) float64 {
	distance := mfp + p.AsymptoticDeflection - asymptoticDeflection
	p.AsymptoticDeflection = asymptoticDeflection
	p.PosOld = p.Pos
	p.Pos = r3.Add(p.Pos, r3.Scale(distance, p.Dir))
	p.PathLength += distance
	return distance
}

// RefractionAngle returns the polar rotation (applied with phi = 0) that bends a
// direction with x cosine cosTheta when the energy changes from eOld to eNew
// at a surface normal to x.
func RefractionAngle(cosTheta, eOld, eNew float64) float64 {
	cosTheta = math.Max(-1, math.Min(1, cosTheta))
	sinTheta0 := math.Sqrt(1. - cosTheta*cosTheta)
	sinTheta1 := math.Min(1, sinTheta0*math.Sqrt(eOld/eNew))
	delta := math.Asin(sinTheta0) - math.Asin(sinTheta1)
	if math.IsNaN(delta) {
		panic("refraction angle is NaN")
	}
	if cosTheta < 0 {
		return -delta
	}
	return delta
}

// SurfaceRefraction changes the energy by deltaE at a surface with unit normal
// n, conserving the tangential momentum. It returns false without any change
// when the normal energy cannot pay for a negative deltaE.
func SurfaceRefraction(p *Particle, n r3.Vec, deltaE float64) bool {
	cosTheta := r3.Dot(p.Dir, n)
	normalEnergy := p.E*cosTheta*cosTheta + deltaE
	if normalEnergy <= 0 || p.E+deltaE <= 0 {
		return false
	}
	tangential := r3.Scale(math.Sqrt(p.E), r3.Sub(p.Dir, r3.Scale(cosTheta, n)))
	normal := r3.Scale(math.Copysign(math.Sqrt(normalEnergy), cosTheta), n)
	p.DirOld = p.Dir
	p.Dir = unit(r3.Add(tangential, normal))
	p.SetEnergy(p.E + deltaE)
	return true
}

// Reflect mirrors the direction at the surface with unit normal n.
func Reflect(p *Particle, n r3.Vec) {
	p.DirOld = p.Dir
	p.Dir = unit(r3.Sub(p.Dir, r3.Scale(2.*r3.Dot(p.Dir, n), n)))
}

// SurfaceBindingEnergy applies the planar surface potential when the last
// free flight crossed the energy barrier: entering particles gain the binding
// energy, leaving ones pay it or are reflected back.
func SurfaceBindingEnergy(p *Particle, m *material.Material) {
	insideNow := m.InsideEnergyBarrier(p.Pos.X, p.Pos.Y)
	insideOld := m.InsideEnergyBarrier(p.PosOld.X, p.PosOld.Y)
	entering := insideNow && !insideOld
	leaving := !insideNow && insideOld
	if !entering && !leaving {
		return
	}
	es := m.ActualSurfaceBindingEnergy(p.Es, p.PosOld.X, p.PosOld.Y)

	_, normal2 := m.ClosestBoundaryPoint(p.Pos.X, p.Pos.Y)
	normal := r3.Vec{X: normal2.X, Y: normal2.Y}
	if r3.Dot(p.Dir, normal) < 0 {
		normal = r3.Scale(-1, normal)
	}

	switch {
	case entering:
		if p.Backreflected {
			p.Backreflected = false
			return
		}
		SurfaceRefraction(p, normal, es)
	case leaving:
		if !SurfaceRefraction(p, normal, -es) {
			Reflect(p, normal)
			p.Backreflected = true
		}
	}
}

// BoundaryCondition marks particles that left the simulation or ran out of
// energy inside the material.
func BoundaryCondition(p *Particle, m *material.Material) {
	if !m.InsideSimulationBoundary(p.Pos.X, p.Pos.Y) {
		p.Left = true
		if p.Dir.X < 0 {
			p.Termination = Backscattered
		} else {
			p.Termination = Transmitted
		}
		p.AddTrajectory()
		return
	}
	if p.E < p.Ec && m.InsideEnergyBarrier(p.Pos.X, p.Pos.Y) {
		p.Stopped = true
		p.Termination = Stopped
		p.AddTrajectory()
	}
}
