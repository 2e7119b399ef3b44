package fraud

import (
	"fmt"
	"math"

	"github.com/campuswatch/checkin-fraud/internal/behavior"
	"github.com/campuswatch/checkin-fraud/internal/geo"
)

const (
	// maxFeasibleSpeed is ~360 km/h, beyond feasible ground travel.
	maxFeasibleSpeed = 100.0 // m/s

	minPlausibleAccuracy = 1.0   // meters; tighter readings suggest spoofing
	maxPlausibleAccuracy = 100.0 // meters; looser readings are useless for a classroom

	// coordEpsilon treats coordinates within 1e-6 degrees as bit-identical;
	// live GPS always jitters more than that.
	coordEpsilon = 1e-6

	repeatedLocationLimit = 2
)

// analyzeLocation scores a GPS reading against the student's location history.
// Contributions are summed and clamped to [0,1].
func analyzeLocation(loc *LocationData, pattern *behavior.Pattern) SignalResult {
	var result SignalResult
	if loc == nil {
		return result
	}

	// Impossible travel from the most recent prior location.
	if pattern != nil {
		if prior := pattern.LastLocated(); prior != nil {
			elapsed := loc.Timestamp.Sub(prior.Timestamp).Seconds()
			if elapsed > 0 {
				distance := geo.DistanceMeters(prior.Location.Latitude, prior.Location.Longitude, loc.Latitude, loc.Longitude)
				speed := distance / elapsed
				if speed > maxFeasibleSpeed {
					result.Score += 0.5
					result.Factors = append(result.Factors,
						fmt.Sprintf("impossible travel speed of %.0f m/s over %.0f m", speed, distance))
				}
			}
		}
	}

	// Accuracy spoofing: implausibly precise or implausibly vague readings.
	if loc.Accuracy < minPlausibleAccuracy {
		result.Score += 0.3
		result.Factors = append(result.Factors,
			fmt.Sprintf("implausibly precise GPS accuracy of %.2f m", loc.Accuracy))
	} else if loc.Accuracy > maxPlausibleAccuracy {
		result.Score += 0.2
		result.Factors = append(result.Factors,
			fmt.Sprintf("implausibly vague GPS accuracy of %.0f m", loc.Accuracy))
	}

	// Coordinate replay: real GPS jitters, a mocked provider repeats exactly.
	if pattern != nil {
		identical := 0
		for _, a := range pattern.Attempts {
			if a.Location == nil {
				continue
			}
			if math.Abs(a.Location.Latitude-loc.Latitude) < coordEpsilon &&
				math.Abs(a.Location.Longitude-loc.Longitude) < coordEpsilon {
				identical++
			}
		}
		if identical > repeatedLocationLimit {
			result.Score += 0.4
			result.Factors = append(result.Factors,
				fmt.Sprintf("coordinates repeated exactly across %d prior attempts", identical))
		}
	}

	result.Score = clamp01(result.Score)
	return result
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
