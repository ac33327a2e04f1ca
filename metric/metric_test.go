package metric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultPassed(t *testing.T) {
	assert.True(t, Result{Score: 1}.Passed())
	assert.False(t, Result{Score: 0.4}.Passed())
	assert.False(t, Result{Score: 0}.Passed())
}

func TestDetectionScore(t *testing.T) {
	assert.Equal(t, 0.0, detectionScore(ConfidenceHigh))
	assert.Equal(t, 0.2, detectionScore(ConfidenceMedium))
	assert.Equal(t, 0.4, detectionScore(ConfidenceLow))
	assert.Equal(t, 0.0, detectionScore("certain"))
}

func TestValidateScore(t *testing.T) {
	assert.NoError(t, ValidateScore(0))
	assert.NoError(t, ValidateScore(0.5))
	assert.NoError(t, ValidateScore(1))
	assert.Error(t, ValidateScore(-0.1))
	assert.Error(t, ValidateScore(1.1))
	assert.Error(t, ValidateScore(math.NaN()))
}
