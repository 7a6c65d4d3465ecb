package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeedback_Score(t *testing.T) {
	fb := Feedback{
		Overall:    0.6,
		Dimensions: map[string]float64{"Scene": 0.9},
	}

	assert.Equal(t, 0.9, fb.Score("Scene"))
	assert.Equal(t, 0.6, fb.Score("Music"))
	assert.Equal(t, 0.6, Feedback{Overall: 0.6}.Score("Scene"))
}

func TestTracker_RunningAverage(t *testing.T) {
	var tr tracker

	tr.recordProcess()
	tr.recordProcess()
	tr.recordFeedback(1.0)
	tr.recordFeedback(0.5)
	tr.recordFeedback(0.0)

	m := tr.Metrics()
	assert.Equal(t, 2, m.TotalProcesses)
	assert.Equal(t, 3, m.TotalFeedback)
	assert.InDelta(t, 0.5, m.AverageQuality, 1e-9)
}

func TestTracker_ZeroValue(t *testing.T) {
	var tr tracker
	m := tr.Metrics()
	assert.Equal(t, 0, m.TotalProcesses)
	assert.Equal(t, 0, m.TotalFeedback)
	assert.Equal(t, 0.0, m.AverageQuality)
}
