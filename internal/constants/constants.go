package constants

import "math"

const ElectronCharge = 1.602176634e-19               // C
const ElectronMass float64 = 9.1093837139e-31        // [kg]
const FreeSpacePermittivityE0 = 8.8541878188e-12     // [m^-3 kg^{-1} s^4 A^2]
const SpeedOfLight = 299792458.                      // [m s^-1]
const AtomicMassUnit = 1.66053906660e-27             // [kg]
const BohrRadius = 0.529177210903e-10                // [m]
const Angstrom = 1e-10                               // [m]
const EV = ElectronCharge                            // [J]
const SqrtPi = 1.7724538509055160272981674833411452

// 4 pi e0 / e^2, multiplies a*E/(Za*Zb) into Lindhard reduced energy
const LindhardReducedEnergyPrefactor = 4. * math.Pi * FreeSpacePermittivityE0 / ElectronCharge / ElectronCharge
