// Package evaluator turns a submission and its timing into a scored outcome.
package evaluator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/terra-clan/simulex-engine/internal/models"
)

// PassMark is the score at which feedback turns positive
const PassMark = 70

const (
	feedbackPass    = "Great job! Your solution demonstrates a good understanding of the concepts."
	feedbackFail    = "Your solution needs some improvement. Consider reviewing the key concepts."
	feedbackNoInput = "No submission was received before the time ran out."
)

// Evaluator scores a completed attempt. Implementations must keep every number in [0,100].
type Evaluator interface {
	Evaluate(ctx context.Context, in Input) (Outcome, error)
}

// Input is everything an evaluator may look at
type Input struct {
	TaskID     string
	TaskType   models.TaskType
	Criteria   []models.Criterion
	Submission models.Document
	Elapsed    time.Duration
	// Allotted is the reference duration for speed. Zero means unknown.
	Allotted time.Duration
}

// Outcome is the scored result of an attempt
type Outcome struct {
	Score    float64 `json:"score" validate:"gte=0,lte=100"`
	Accuracy float64 `json:"accuracy" validate:"gte=0,lte=100"`
	Speed    float64 `json:"speed" validate:"gte=0,lte=100"`
	Feedback string  `json:"feedback" validate:"max=2000"`
}

// Speed rates elapsed time against the allotted time: 100 for an instant
// finish, 0 at or beyond the allotted time. Non-increasing in elapsed.
func Speed(elapsed, allotted time.Duration) float64 {
	if allotted <= 0 {
		return 100
	}
	if elapsed < 0 {
		elapsed = 0
	}
	ratio := float64(elapsed) / float64(allotted)
	return round1(clamp(100 * (1 - ratio)))
}

// Feedback summarizes an outcome for display
func Feedback(o Outcome) string {
	verdict := feedbackFail
	if o.Score >= PassMark {
		verdict = feedbackPass
	}
	return fmt.Sprintf("Score %.1f, accuracy %.1f, speed %.1f. %s", o.Score, o.Accuracy, o.Speed, verdict)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
