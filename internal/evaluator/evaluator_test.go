package evaluator

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/simulex-engine/internal/models"
)

func TestSpeedMonotonic(t *testing.T) {
	allotted := 10 * time.Minute

	prev := 101.0
	for elapsed := time.Duration(0); elapsed <= 12*time.Minute; elapsed += 15 * time.Second {
		s := Speed(elapsed, allotted)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 100.0)
		assert.LessOrEqual(t, s, prev, "speed rose at %s", elapsed)
		prev = s
	}

	assert.Equal(t, 100.0, Speed(0, allotted))
	assert.Equal(t, 50.0, Speed(5*time.Minute, allotted))
	assert.Equal(t, 0.0, Speed(allotted, allotted))
	assert.Equal(t, 0.0, Speed(2*allotted, allotted))
	assert.Equal(t, 100.0, Speed(time.Hour, 0))
}

func TestFeedback(t *testing.T) {
	pass := Feedback(Outcome{Score: 82.5, Accuracy: 71, Speed: 64.3})
	assert.Equal(t, "Score 82.5, accuracy 71.0, speed 64.3. "+feedbackPass, pass)

	fail := Feedback(Outcome{Score: 69.9, Accuracy: 50, Speed: 10})
	assert.True(t, strings.HasSuffix(fail, feedbackFail))

	assert.True(t, strings.HasSuffix(Feedback(Outcome{Score: PassMark}), feedbackPass))
}

func TestRandomStaysInRange(t *testing.T) {
	e := NewRandom(rand.NewPCG(1, 2))
	criteria := []models.Criterion{
		{Name: "Functionality", Weight: 0.5},
		{Name: "Code Quality", Weight: 0.3},
		{Name: "Explanation", Weight: 0.2},
	}

	for i := 0; i < 500; i++ {
		out, err := e.Evaluate(context.Background(), Input{
			Criteria:   criteria,
			Submission: models.Document(`{"code":"fixed"}`),
			Elapsed:    time.Duration(i) * time.Second,
			Allotted:   600 * time.Second,
		})
		require.NoError(t, err)

		for _, v := range []float64{out.Score, out.Accuracy, out.Speed} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
		assert.Contains(t, out.Feedback, "Score ")
		assert.LessOrEqual(t, len(out.Feedback), 2000)
	}
}

func TestRandomDeterministicWithSource(t *testing.T) {
	in := Input{Submission: models.Document(`"answer"`), Elapsed: time.Minute, Allotted: 10 * time.Minute}

	a, err := NewRandom(rand.NewPCG(7, 7)).Evaluate(context.Background(), in)
	require.NoError(t, err)
	b, err := NewRandom(rand.NewPCG(7, 7)).Evaluate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 90.0, a.Speed)
}

func TestRandomEmptySubmission(t *testing.T) {
	out, err := NewRandom(nil).Evaluate(context.Background(), Input{Elapsed: 10 * time.Minute, Allotted: 10 * time.Minute})
	require.NoError(t, err)

	assert.Equal(t, 0.0, out.Score)
	assert.Equal(t, 0.0, out.Accuracy)
	assert.Equal(t, 0.0, out.Speed)
	assert.Contains(t, out.Feedback, feedbackNoInput)
}

func TestRandomHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRandom(nil).Evaluate(ctx, Input{Submission: models.Document(`{}`)})
	assert.ErrorIs(t, err, context.Canceled)
}
