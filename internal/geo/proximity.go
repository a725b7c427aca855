package geo

// boundaryEpsilonKm absorbs floating point noise so a device exactly on the
// radius is admitted.
const boundaryEpsilonKm = 1e-9

// Verdict is the outcome of a proximity check.
// DistanceKm is always the measured distance, admitted or not.
type Verdict struct {
	Admitted   bool
	DistanceKm float64
	MaxKm      float64
}

// CheckProximity admits the device when it is within maxKm of target.
// The radius is inclusive.
func CheckProximity(device, target Point, maxKm float64) Verdict {
	d := Distance(device, target)
	return Verdict{
		Admitted:   d <= maxKm+boundaryEpsilonKm,
		DistanceKm: d,
		MaxKm:      maxKm,
	}
}
