package funnel

import "funnelscope/api/models"

// advance applies the stage rules for one event and returns the stages entered.
// Only stages at or after the current one are considered, so the current stage
// never moves backwards, while a single event may still unlock several stages
// whose preconditions are satisfied earlier in the same pass.
func (e *Engine) advance(p *models.FunnelProgress, event models.FunnelEvent) []models.FunnelStage {
	start := 0
	if idx, ok := e.stageIndex[p.CurrentStage]; ok {
		start = idx
	}

	var reached []models.FunnelStage
	for _, stage := range e.stages[start:] {
		if p.HasCompleted(stage.ID) {
			continue
		}
		if !stage.HasTrigger(event.EventName) {
			continue
		}
		if !requirementsMet(p, stage) {
			continue
		}
		if stage.TimeWindowMs > 0 && event.Timestamp-p.StartTime > stage.TimeWindowMs {
			continue
		}

		p.CompletedStages = append(p.CompletedStages, stage.ID)
		p.CurrentStage = stage.ID
		p.TotalValue += stage.GoalValue
		if p.StageEnteredAt == nil {
			p.StageEnteredAt = make(map[string]int64)
		}
		p.StageEnteredAt[stage.ID] = event.Timestamp
		reached = append(reached, stage)
	}
	return reached
}

func requirementsMet(p *models.FunnelProgress, stage models.FunnelStage) bool {
	for _, req := range stage.RequiredEvents {
		if !p.HasCompleted(req) {
			return false
		}
	}
	return true
}
