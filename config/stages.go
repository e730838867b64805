package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"funnelscope/api/funnel"
	"funnelscope/api/models"
)

// StageFile is the TOML layout of a funnel definition:
//
//	[[stages]]
//	id = "lead"
//	name = "Lead"
//	triggers = ["form_submit"]
//	required_events = ["intent"]
//	goal_value = 50.0
//	time_window = "720h"
type StageFile struct {
	Stages []StageEntry `toml:"stages"`
}

type StageEntry struct {
	ID             string   `toml:"id"`
	Name           string   `toml:"name"`
	Description    string   `toml:"description"`
	Triggers       []string `toml:"triggers"`
	RequiredEvents []string `toml:"required_events"`
	GoalValue      float64  `toml:"goal_value"`
	TimeWindow     string   `toml:"time_window"`
}

// LoadStages reads and validates a stage file. An empty path selects the
// built-in funnel. Any configuration error is fatal to start-up.
func LoadStages(path string) ([]models.FunnelStage, error) {
	if path == "" {
		return funnel.DefaultStages(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat stage file: %w", err)
	}

	var file StageFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to decode stage file: %w", err)
	}

	stages := make([]models.FunnelStage, 0, len(file.Stages))
	for _, entry := range file.Stages {
		stage := models.FunnelStage{
			ID:             entry.ID,
			Name:           entry.Name,
			Description:    entry.Description,
			Triggers:       entry.Triggers,
			RequiredEvents: entry.RequiredEvents,
			GoalValue:      entry.GoalValue,
		}
		if stage.Name == "" {
			stage.Name = stage.ID
		}
		if entry.TimeWindow != "" {
			d, err := time.ParseDuration(entry.TimeWindow)
			if err != nil {
				return nil, fmt.Errorf("%w: stage %q has invalid time_window %q: %v",
					funnel.ErrInvalidStageConfig, entry.ID, entry.TimeWindow, err)
			}
			stage.TimeWindowMs = d.Milliseconds()
		}
		stages = append(stages, stage)
	}

	if err := funnel.ValidateStages(stages); err != nil {
		return nil, err
	}
	return stages, nil
}
