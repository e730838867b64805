package funnel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"funnelscope/api/models"
)

func TestDefaultStagesAreValid(t *testing.T) {
	stages := DefaultStages()
	assert.NoError(t, ValidateStages(stages))
	assert.Equal(t, "lead", stages[len(stages)-1].ID)
	assert.Contains(t, stages[len(stages)-1].RequiredEvents, "intent")
}

func TestValidateStagesRejectsBadConfig(t *testing.T) {
	cases := map[string][]models.FunnelStage{
		"empty":           nil,
		"blank id":        {{ID: " ", Triggers: []string{"x"}}},
		"duplicate id":    {{ID: "a", Triggers: []string{"x"}}, {ID: "a", Triggers: []string{"y"}}},
		"no triggers":     {{ID: "a"}},
		"blank trigger":   {{ID: "a", Triggers: []string{""}}},
		"unknown require": {{ID: "a", Triggers: []string{"x"}, RequiredEvents: []string{"b"}}},
		"self require":    {{ID: "a", Triggers: []string{"x"}, RequiredEvents: []string{"a"}}},
		"negative goal":   {{ID: "a", Triggers: []string{"x"}, GoalValue: -1}},
		"negative window": {{ID: "a", Triggers: []string{"x"}, TimeWindowMs: -1}},
	}
	for name, stages := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateStages(stages), ErrInvalidStageConfig)
		})
	}
}

func TestValidateStagesAllowsForwardRequirement(t *testing.T) {
	stages := []models.FunnelStage{
		{ID: "a", Triggers: []string{"x"}, RequiredEvents: []string{"b"}},
		{ID: "b", Triggers: []string{"y"}},
	}
	assert.NoError(t, ValidateStages(stages))
}
