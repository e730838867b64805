package funnel

import (
	"fmt"
	"strings"
	"time"

	"funnelscope/api/models"
)

// DefaultStages returns the consulting-site funnel used when no stage file is configured.
func DefaultStages() []models.FunnelStage {
	return []models.FunnelStage{
		{
			ID:          "awareness",
			Name:        "Awareness",
			Description: "Visitor lands on any page of the site",
			Triggers:    []string{"page_view", "landing_page_view"},
		},
		{
			ID:             "interest",
			Name:           "Interest",
			Description:    "Visitor engages with content beyond the first page",
			Triggers:       []string{"scroll_depth_50", "time_on_page_30s", "blog_read", "service_page_view"},
			RequiredEvents: []string{"awareness"},
			GoalValue:      1,
		},
		{
			ID:             "consideration",
			Name:           "Consideration",
			Description:    "Visitor evaluates the offering through case studies, industry pages or chat",
			Triggers:       []string{"case_study_view", "industry_page_view", "pricing_view", "chat_started"},
			RequiredEvents: []string{"interest"},
			GoalValue:      5,
		},
		{
			ID:             "intent",
			Name:           "Intent",
			Description:    "Visitor shows buying intent",
			Triggers:       []string{"contact_page_view", "cta_click", "chat_qualified"},
			RequiredEvents: []string{"consideration"},
			GoalValue:      10,
		},
		{
			ID:             "lead",
			Name:           "Lead",
			Description:    "Visitor submits the contact form or books a consultation",
			Triggers:       []string{"form_submit", "contact_form_submit", "consultation_booked"},
			RequiredEvents: []string{"intent"},
			GoalValue:      50,
			TimeWindowMs:   (30 * 24 * time.Hour).Milliseconds(),
		},
	}
}

// ValidateStages checks a stage configuration before an engine is built from it.
// A required stage id that names no configured stage would make its stage
// unreachable, so it is rejected here rather than discovered at runtime.
func ValidateStages(stages []models.FunnelStage) error {
	if len(stages) == 0 {
		return fmt.Errorf("%w: no stages configured", ErrInvalidStageConfig)
	}

	ids := make(map[string]struct{}, len(stages))
	for i, stage := range stages {
		id := strings.TrimSpace(stage.ID)
		if id == "" {
			return fmt.Errorf("%w: stage %d has an empty id", ErrInvalidStageConfig, i)
		}
		if _, dup := ids[id]; dup {
			return fmt.Errorf("%w: duplicate stage id %q", ErrInvalidStageConfig, id)
		}
		ids[id] = struct{}{}
	}

	for _, stage := range stages {
		if len(stage.Triggers) == 0 {
			return fmt.Errorf("%w: stage %q has no triggers", ErrInvalidStageConfig, stage.ID)
		}
		for _, trigger := range stage.Triggers {
			if strings.TrimSpace(trigger) == "" {
				return fmt.Errorf("%w: stage %q has an empty trigger", ErrInvalidStageConfig, stage.ID)
			}
		}
		for _, req := range stage.RequiredEvents {
			if req == stage.ID {
				return fmt.Errorf("%w: stage %q requires itself", ErrInvalidStageConfig, stage.ID)
			}
			if _, ok := ids[req]; !ok {
				return fmt.Errorf("%w: stage %q requires unknown stage %q", ErrInvalidStageConfig, stage.ID, req)
			}
		}
		if stage.GoalValue < 0 {
			return fmt.Errorf("%w: stage %q has a negative goal value", ErrInvalidStageConfig, stage.ID)
		}
		if stage.TimeWindowMs < 0 {
			return fmt.Errorf("%w: stage %q has a negative time window", ErrInvalidStageConfig, stage.ID)
		}
	}
	return nil
}
