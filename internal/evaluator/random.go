package evaluator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Random is the placeholder evaluator. Marks are drawn at random per
// criterion and weighted; speed is derived from timing.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns a Random evaluator. A nil source uses a randomly seeded PCG.
func NewRandom(src rand.Source) *Random {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Random{rng: rand.New(src)}
}

// Evaluate implements Evaluator
func (e *Random) Evaluate(ctx context.Context, in Input) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	speed := Speed(in.Elapsed, in.Allotted)

	if in.Submission.IsEmpty() {
		return Outcome{
			Speed:    speed,
			Feedback: fmt.Sprintf("Score 0.0, accuracy 0.0, speed %.1f. %s", speed, feedbackNoInput),
		}, nil
	}

	e.mu.Lock()
	score := e.weightedMark(in)
	accuracy := e.mark()
	e.mu.Unlock()

	out := Outcome{
		Score:    round1(clamp(score)),
		Accuracy: round1(clamp(accuracy)),
		Speed:    speed,
	}
	out.Feedback = Feedback(out)
	return out, nil
}

func (e *Random) mark() float64 {
	return e.rng.Float64() * 100
}

// weightedMark draws one mark per criterion and averages them by weight.
// Weights need not sum to 1; non-positive weights are ignored.
func (e *Random) weightedMark(in Input) float64 {
	var total, weights float64
	for _, c := range in.Criteria {
		m := e.mark()
		if c.Weight <= 0 {
			continue
		}
		total += m * c.Weight
		weights += c.Weight
	}
	if weights == 0 {
		return e.mark()
	}
	return total / weights
}
