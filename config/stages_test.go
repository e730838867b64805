package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelscope/api/funnel"
)

func writeStageFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stages.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadStagesDefault(t *testing.T) {
	stages, err := LoadStages("")
	require.NoError(t, err)
	assert.Equal(t, funnel.DefaultStages(), stages)
}

func TestLoadStagesFromFile(t *testing.T) {
	path := writeStageFile(t, `
[[stages]]
id = "visit"
triggers = ["page_view"]

[[stages]]
id = "signup"
name = "Signup"
triggers = ["form_submit"]
required_events = ["visit"]
goal_value = 25.0
time_window = "1h30m"
`)

	stages, err := LoadStages(path)
	require.NoError(t, err)
	require.Len(t, stages, 2)

	assert.Equal(t, "visit", stages[0].Name)
	assert.Equal(t, []string{"visit"}, stages[1].RequiredEvents)
	assert.Equal(t, 25.0, stages[1].GoalValue)
	assert.Equal(t, (90 * time.Minute).Milliseconds(), stages[1].TimeWindowMs)
}

func TestLoadStagesRejectsUnknownRequirement(t *testing.T) {
	path := writeStageFile(t, `
[[stages]]
id = "visit"
triggers = ["page_view"]
required_events = ["ghost"]
`)

	_, err := LoadStages(path)
	assert.ErrorIs(t, err, funnel.ErrInvalidStageConfig)
}

func TestLoadStagesRejectsBadWindow(t *testing.T) {
	path := writeStageFile(t, `
[[stages]]
id = "visit"
triggers = ["page_view"]
time_window = "fortnight"
`)

	_, err := LoadStages(path)
	assert.ErrorIs(t, err, funnel.ErrInvalidStageConfig)
}

func TestLoadStagesMissingFile(t *testing.T) {
	_, err := LoadStages(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
