package behavior

import (
	"sort"
	"time"
)

// Outcome is the recorded result of a check-in attempt. Outcomes are supplied
// by the caller once downstream verification has finished; scoring never
// writes them.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeFlagged  Outcome = "flagged"
)

// Location is a GPS reading attached to a past attempt.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// Attempt is one historical check-in attempt for a student.
type Attempt struct {
	Timestamp time.Time `json:"timestamp"`
	Location  *Location `json:"location,omitempty"`
	DeviceID  string    `json:"device_id,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Outcome   Outcome   `json:"outcome"`
}

// Pattern is the behavioral baseline for one student, built incrementally
// from recorded attempts. Day and hour sets are kept as sorted slices so the
// pattern survives JSON round-trips through the redis store.
type Pattern struct {
	StudentID    int64     `json:"student_id"`
	Attempts     []Attempt `json:"attempts"`
	ActiveDays   []string  `json:"active_days"`   // distinct calendar days, YYYY-MM-DD
	AttemptHours []int     `json:"attempt_hours"` // distinct hours of day, 0-23
	LastUpdated  time.Time `json:"last_updated"`
}

// NewPattern creates an empty baseline for a student.
func NewPattern(studentID int64) *Pattern {
	return &Pattern{StudentID: studentID}
}

// Record appends an attempt and folds its calendar day and hour into the
// baseline. History is trimmed to maxHistory most recent attempts when
// maxHistory is positive; the day and hour sets are never trimmed.
func (p *Pattern) Record(a Attempt, maxHistory int) {
	p.Attempts = append(p.Attempts, a)
	if maxHistory > 0 && len(p.Attempts) > maxHistory {
		p.Attempts = p.Attempts[len(p.Attempts)-maxHistory:]
	}

	day := a.Timestamp.Format("2006-01-02")
	if !containsString(p.ActiveDays, day) {
		p.ActiveDays = append(p.ActiveDays, day)
		sort.Strings(p.ActiveDays)
	}

	hour := a.Timestamp.Hour()
	if !containsInt(p.AttemptHours, hour) {
		p.AttemptHours = append(p.AttemptHours, hour)
		sort.Ints(p.AttemptHours)
	}

	p.LastUpdated = a.Timestamp
}

// DaysActive is the number of distinct calendar days with at least one attempt.
func (p *Pattern) DaysActive() int {
	return len(p.ActiveDays)
}

// HasHour reports whether the student has previously attempted during hour.
func (p *Pattern) HasHour(hour int) bool {
	return containsInt(p.AttemptHours, hour)
}

// AttemptsSince counts attempts with timestamps at or after t.
func (p *Pattern) AttemptsSince(t time.Time) int {
	n := 0
	for _, a := range p.Attempts {
		if !a.Timestamp.Before(t) {
			n++
		}
	}
	return n
}

// AveragePerDay is the historical mean number of attempts per active day.
func (p *Pattern) AveragePerDay() float64 {
	if p.DaysActive() == 0 {
		return 0
	}
	return float64(len(p.Attempts)) / float64(p.DaysActive())
}

// MeanHour is the mean hour of day over recorded attempt hours.
func (p *Pattern) MeanHour() float64 {
	if len(p.AttemptHours) == 0 {
		return 0
	}
	sum := 0
	for _, h := range p.AttemptHours {
		sum += h
	}
	return float64(sum) / float64(len(p.AttemptHours))
}

// LastLocated returns the most recent attempt that carried a location, or nil.
func (p *Pattern) LastLocated() *Attempt {
	for i := len(p.Attempts) - 1; i >= 0; i-- {
		if p.Attempts[i].Location != nil {
			return &p.Attempts[i]
		}
	}
	return nil
}

// DistinctDevices returns the set of device ids seen at or after since. A zero
// since covers the whole retained history.
func (p *Pattern) DistinctDevices(since time.Time) []string {
	seen := make(map[string]struct{})
	var devices []string
	for _, a := range p.Attempts {
		if a.DeviceID == "" || a.Timestamp.Before(since) {
			continue
		}
		if _, ok := seen[a.DeviceID]; !ok {
			seen[a.DeviceID] = struct{}{}
			devices = append(devices, a.DeviceID)
		}
	}
	return devices
}

// Clone returns a deep copy safe to read while the original is being updated.
func (p *Pattern) Clone() *Pattern {
	if p == nil {
		return nil
	}
	cp := &Pattern{
		StudentID:    p.StudentID,
		Attempts:     make([]Attempt, len(p.Attempts)),
		ActiveDays:   append([]string(nil), p.ActiveDays...),
		AttemptHours: append([]int(nil), p.AttemptHours...),
		LastUpdated:  p.LastUpdated,
	}
	for i, a := range p.Attempts {
		cp.Attempts[i] = a
		if a.Location != nil {
			loc := *a.Location
			cp.Attempts[i].Location = &loc
		}
	}
	return cp
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
