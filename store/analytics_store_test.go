package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFiniteOrZero(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(1)
	value := 12.5

	assert.Zero(t, finiteOrZero(nil))
	assert.Zero(t, finiteOrZero(&nan))
	assert.Zero(t, finiteOrZero(&inf))
	assert.Equal(t, 12.5, finiteOrZero(&value))
}
