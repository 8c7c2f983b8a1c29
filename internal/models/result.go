package models

import "time"

// Result is one user's attempt at one task within one simulation
type Result struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user"`
	SimulationID string     `json:"simulation"`
	TaskID       string     `json:"task"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	Score        *float64   `json:"score,omitempty"`
	Accuracy     *float64   `json:"accuracy,omitempty"`
	Speed        *float64   `json:"speed,omitempty"`
	Submission   Document   `json:"submission,omitempty"`
	Feedback     string     `json:"feedback,omitempty"`
	Recording    Document   `json:"recording,omitempty"`
	Completed    bool       `json:"completed"`
	CreatedAt    time.Time  `json:"created"`
	UpdatedAt    time.Time  `json:"updated"`
}

// IsOpen reports whether the attempt is still in progress
func (r *Result) IsOpen() bool {
	return !r.Completed
}

// ActivityTime is the time the result is ordered by: end time when set, start time otherwise
func (r *Result) ActivityTime() time.Time {
	if r.EndTime != nil {
		return *r.EndTime
	}
	return r.StartTime
}

// Elapsed returns the time spent on the attempt. Completed attempts measure up to
// their end time, open ones up to now. Never negative.
func (r *Result) Elapsed(now time.Time) time.Duration {
	end := now
	if r.EndTime != nil {
		end = *r.EndTime
	}
	d := end.Sub(r.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// ResultFilter filters result listings
type ResultFilter struct {
	UserID       string
	SimulationID string
	Completed    *bool
}
