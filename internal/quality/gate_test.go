package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreIndexesTechnicalContent(t *testing.T) {
	gate := NewGate(0)

	res := gate.Score(
		"Switching from Apache Kafka to NATS JetStream fixed our consumer lag problem. "+
			"Throughput improved 3x and p99 latency dropped 40%.",
		"transcript")

	assert.True(t, res.ShouldIndex)
	assert.Contains(t, res.Signals, "named entities")
	assert.Contains(t, res.Signals, "problem+solution vocabulary")
	assert.Contains(t, res.Signals, "numeric metrics")
}

func TestScoreRejectsChitChat(t *testing.T) {
	gate := NewGate(0)

	res := gate.Score("hey, how are you doing today? i was thinking we could catch up later", "transcript")

	assert.False(t, res.ShouldIndex)
	assert.Zero(t, res.Score)
}

func TestScoreEmptyText(t *testing.T) {
	gate := NewGate(0)

	res := gate.Score("   \n\t  ", "article")

	assert.Zero(t, res.Score)
	assert.False(t, res.ShouldIndex)
	assert.Empty(t, res.Signals)
}

func TestScorePromoShortCircuit(t *testing.T) {
	gate := NewGate(0)

	// Dense technical content that would otherwise score well.
	res := gate.Score(
		"Use code KAFKA20 for 20% off. Apache Kafka and NATS JetStream fixed our lag problem, throughput improved 3x.",
		"transcript")

	assert.Zero(t, res.Score)
	assert.False(t, res.ShouldIndex)
	require.Len(t, res.Signals, 1)
	assert.Equal(t, "promotional boilerplate", res.Signals[0])
}

func TestScoreProblemSolutionOutweighsProblemAlone(t *testing.T) {
	gate := NewGate(0)

	problemOnly := gate.Score("the nightly deploy fails intermittently", "transcript")
	both := gate.Score("the nightly deploy fails intermittently, but pinning the runner version fixed it", "transcript")

	assert.Contains(t, problemOnly.Signals, "problem vocabulary")
	assert.Contains(t, both.Signals, "problem+solution vocabulary")
	assert.Greater(t, both.Score, problemOnly.Score)
}

func TestScoreMonotonicUnderAddedSignals(t *testing.T) {
	gate := NewGate(0)

	base := "the nightly deploy fails intermittently"
	additions := []string{
		", but pinning the runner version fixed it",
		" compared to the weekly one",
		"; median duration dropped 40%",
	}

	prev := gate.Score(base, "transcript").Score
	text := base
	for _, add := range additions {
		text += add
		score := gate.Score(text, "transcript").Score
		assert.GreaterOrEqual(t, score, prev, "score dropped after appending %q", add)
		prev = score
	}
}

func TestScorePercentageIsNumericMetric(t *testing.T) {
	gate := NewGate(0)

	res := gate.Score("cache hit rate improved 40% after the rollout.", "transcript")

	assert.Contains(t, res.Signals, "numeric metrics")
}

func TestScoreStopwordCapsAreNotEntities(t *testing.T) {
	gate := NewGate(0)

	// "This Week" and "The Setup" start with sentence furniture.
	res := gate.Score("This Week we looked at The Setup again", "transcript")

	assert.NotContains(t, res.Signals, "named entities")
}

func TestNewGateDefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultThreshold, NewGate(0).Threshold())
	assert.Equal(t, 0.6, NewGate(0.6).Threshold())
}

func TestHighThresholdRejects(t *testing.T) {
	gate := NewGate(0.99)

	res := gate.Score(
		"Switching from Apache Kafka to NATS JetStream fixed our consumer lag problem. Throughput improved 3x.",
		"transcript")

	assert.Positive(t, res.Score)
	assert.False(t, res.ShouldIndex)
}
