package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidInterval(t *testing.T) {
	assert.True(t, IsValidInterval("Day"))
	assert.True(t, IsValidInterval("Quarter"))
	assert.False(t, IsValidInterval("day"))
	assert.False(t, IsValidInterval("Day); DROP TABLE funnel_events"))
}

func TestParseTimeRangeDefaults(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	start, end, err := ParseTimeRange("", "", now)
	require.NoError(t, err)
	assert.Equal(t, now, end)
	assert.Equal(t, now.Add(-7*24*time.Hour), start)
}

func TestParseTimeRangeExplicit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	start, end, err := ParseTimeRange("2026-03-01T00:00:00Z", "2026-03-02T00:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), end)
}

func TestParseTimeRangeRejectsBadInput(t *testing.T) {
	now := time.Now()

	_, _, err := ParseTimeRange("yesterday", "", now)
	assert.Error(t, err)

	_, _, err = ParseTimeRange("", "soon", now)
	assert.Error(t, err)

	_, _, err = ParseTimeRange("2026-03-02T00:00:00Z", "2026-03-01T00:00:00Z", now)
	assert.Error(t, err)
}
