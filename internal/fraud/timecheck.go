package fraud

import (
	"fmt"
	"time"

	"github.com/campuswatch/checkin-fraud/internal/behavior"
)

const (
	maxClockSkew   = 5 * time.Minute
	floodingWindow = time.Hour
	floodingLimit  = 5

	earliestNormalHour = 6
	latestNormalHour   = 22
)

// analyzeTime scores the client-reported timestamp against the server clock
// and the student's recent attempt rate.
func analyzeTime(sctx *SecurityContext, pattern *behavior.Pattern, now time.Time) SignalResult {
	var result SignalResult

	// Client clock manipulation.
	skew := now.Sub(sctx.Timestamp)
	if skew < 0 {
		skew = -skew
	}
	if skew > maxClockSkew {
		result.Score += 0.4
		result.Factors = append(result.Factors,
			fmt.Sprintf("client clock skewed %s from server time", skew.Round(time.Second)))
	}

	// Attempt flooding in the trailing hour.
	if pattern != nil {
		recent := pattern.AttemptsSince(now.Add(-floodingWindow))
		if recent > floodingLimit {
			result.Score += 0.3
			result.Factors = append(result.Factors,
				fmt.Sprintf("%d attempts within the last hour", recent))
		}
	}

	// Off-hours check-in.
	hour := sctx.Timestamp.Hour()
	if hour < earliestNormalHour || hour > latestNormalHour {
		result.Score += 0.2
		result.Factors = append(result.Factors,
			fmt.Sprintf("check-in at %02d:00 is outside normal hours", hour))
	}

	result.Score = clamp01(result.Score)
	return result
}
