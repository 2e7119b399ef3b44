package fraud

import (
	"time"

	"github.com/campuswatch/checkin-fraud/internal/behavior"
	"github.com/campuswatch/checkin-fraud/pkg/config"
)

// mentionCutoff is the per-signal score above which its factors are worth
// surfacing on the combined score.
const mentionCutoff = 0.3

// optionalInputs is how many optional evidence inputs exist (location,
// device, photo); time and behavior are always computable.
const optionalInputs = 3

// Detector combines the five signal analyzers into an overall fraud score.
// It is pure and stateless per call; the behavioral baseline is read by the
// caller and passed in, never mutated here.
type Detector struct {
	weights    Weights
	thresholds Thresholds
	device     DeviceAnalyzer
	photo      PhotoAnalyzer
	now        func() time.Time
}

// DetectorOption customizes a Detector.
type DetectorOption func(*Detector)

// WithClock overrides the server clock, for tests.
func WithClock(now func() time.Time) DetectorOption {
	return func(d *Detector) { d.now = now }
}

// WithDeviceAnalyzer substitutes the device heuristic.
func WithDeviceAnalyzer(a DeviceAnalyzer) DetectorOption {
	return func(d *Detector) { d.device = a }
}

// WithPhotoAnalyzer substitutes the photo heuristic.
func WithPhotoAnalyzer(a PhotoAnalyzer) DetectorOption {
	return func(d *Detector) { d.photo = a }
}

// NewDetector creates a detector from fraud configuration.
func NewDetector(cfg *config.FraudConfig, opts ...DetectorOption) *Detector {
	d := &Detector{
		weights: Weights{
			Location: cfg.LocationWeight,
			Device:   cfg.DeviceWeight,
			Time:     cfg.TimeWeight,
			Behavior: cfg.BehaviorWeight,
			Photo:    cfg.PhotoWeight,
		},
		thresholds: Thresholds{
			Medium:   cfg.MediumThreshold,
			High:     cfg.HighThreshold,
			Critical: cfg.CriticalThreshold,
		},
		device: NewHeuristicDeviceAnalyzer(cfg.DeviceLimit),
		photo:  NewHeuristicPhotoAnalyzer(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Score evaluates one check-in attempt. Absent optional inputs score 0 but
// keep their weight in the denominator: less evidence means a diluted
// overall and a lower confidence, never higher certainty.
func (d *Detector) Score(sctx *SecurityContext, photo []byte, pattern *behavior.Pattern) *Score {
	now := d.now()

	location := analyzeLocation(sctx.Location, pattern)

	var device SignalResult
	if sctx.Device != nil {
		device = d.device.AnalyzeDevice(sctx.Device, pattern, now)
	}

	timeSignal := analyzeTime(sctx, pattern, now)
	behaviorSignal := analyzeBehavior(sctx, pattern, now)

	var photoSignal SignalResult
	if len(photo) > 0 {
		photoSignal = d.photo.AnalyzePhoto(photo)
	}

	score := &Score{
		Location: location.Score,
		Device:   device.Score,
		Time:     timeSignal.Score,
		Behavior: behaviorSignal.Score,
		Photo:    photoSignal.Score,
	}

	denominator := d.weights.Sum()
	if denominator > 0 {
		score.Overall = (location.Score*d.weights.Location +
			device.Score*d.weights.Device +
			timeSignal.Score*d.weights.Time +
			behaviorSignal.Score*d.weights.Behavior +
			photoSignal.Score*d.weights.Photo) / denominator
	}
	score.RiskLevel = d.thresholds.Level(score.Overall)

	present := 0
	if sctx.Location != nil {
		present++
	}
	if sctx.Device != nil {
		present++
	}
	if len(photo) > 0 {
		present++
	}
	score.Confidence = float64(present) / optionalInputs
	if score.Confidence > 1 {
		score.Confidence = 1
	}

	score.SignalFactors = make(map[string][]string)
	for _, s := range []struct {
		name   string
		result SignalResult
	}{
		{"location", location},
		{"device", device},
		{"time", timeSignal},
		{"behavior", behaviorSignal},
		{"photo", photoSignal},
	} {
		if len(s.result.Factors) > 0 {
			score.SignalFactors[s.name] = s.result.Factors
		}
		if s.result.Score > mentionCutoff {
			score.Factors = append(score.Factors, s.result.Factors...)
		}
	}

	return score
}
