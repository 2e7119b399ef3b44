package fraud

import (
	"fmt"
	"math"
	"time"

	"github.com/campuswatch/checkin-fraud/internal/behavior"
)

const frequencyWindow = 24 * time.Hour

// analyzeBehavior scores deviation from the student's own baseline. With no
// baseline the score is 0: cold start means no information, not suspicion.
func analyzeBehavior(sctx *SecurityContext, pattern *behavior.Pattern, now time.Time) SignalResult {
	var result SignalResult
	if pattern == nil || len(pattern.Attempts) == 0 {
		return result
	}

	recent := pattern.AttemptsSince(now.Add(-frequencyWindow))
	average := pattern.AveragePerDay()

	// Frequency anomaly against the historical daily average.
	if average > 0 && float64(recent) > 2*average {
		result.Score += 0.3
		result.Factors = append(result.Factors,
			fmt.Sprintf("%d attempts in 24h against a %.1f/day average", recent, average))
	}

	// Hour of day never seen before for this student.
	hour := sctx.Timestamp.Hour()
	if !pattern.HasHour(hour) {
		result.Score += 0.2
		result.Factors = append(result.Factors,
			fmt.Sprintf("check-in hour %02d:00 outside usual hours", hour))
	}

	// Blended deviation: distance of the current hour from the mean
	// historical hour, and deviation of the recent attempt count from the
	// daily average, each normalized and clamped, combined at 0.4 weight.
	hourDeviation := clamp01(math.Abs(float64(hour)-pattern.MeanHour()) / 12.0)
	frequencyDeviation := 0.0
	if average > 0 {
		frequencyDeviation = clamp01(math.Abs(float64(recent)-average) / average)
	}
	blended := 0.5*hourDeviation + 0.5*frequencyDeviation
	if blended > 0 {
		result.Score += 0.4 * blended
	}

	result.Score = clamp01(result.Score)
	return result
}
