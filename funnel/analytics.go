package funnel

import (
	"sort"

	"funnelscope/api/models"
)

const topDropOffLimit = 5

// GenerateAnalytics aggregates every active and completed progress record.
func (e *Engine) GenerateAnalytics() models.FunnelAnalytics {
	e.mu.RLock()
	records := e.recordsLocked()
	e.mu.RUnlock()

	return analyze(e.stages, records, e.clock.Now().UnixMilli())
}

func (e *Engine) recordsLocked() []models.FunnelProgress {
	records := make([]models.FunnelProgress, 0, len(e.active)+len(e.completed))
	for _, p := range e.active {
		records = append(records, *p)
	}
	return append(records, e.completed...)
}

// analyze is the pure aggregation behind GenerateAnalytics.
//
// Revenue per stage is the goal value attributable to reaching that stage
// (users × goalValue); cumulative totalValue is reported once, funnel-wide.
func analyze(stages []models.FunnelStage, records []models.FunnelProgress, now int64) models.FunnelAnalytics {
	a := models.FunnelAnalytics{
		TotalUsers:       len(records),
		Stages:           make([]models.StageMetrics, len(stages)),
		TopDropOffPoints: []models.DropOffPoint{},
		GeneratedAt:      now,
	}

	var converted int
	var convertedTime float64
	for _, p := range records {
		a.TotalValue += p.TotalValue
		switch {
		case p.IsAbandoned():
			a.CompletedUsers++
			a.AbandonedUsers++
		case p.HasCompleted(stages[len(stages)-1].ID):
			a.CompletedUsers++
			converted++
			convertedTime += float64(p.LastActivity - p.StartTime)
		default:
			a.ActiveUsers++
		}
	}
	if a.TotalUsers > 0 {
		a.OverallConversionRate = float64(converted) / float64(a.TotalUsers) * 100
	}
	if converted > 0 {
		a.AverageTime = convertedTime / float64(converted)
	}

	for i, stage := range stages {
		m := models.StageMetrics{StageID: stage.ID, Name: stage.Name}
		var timeSum float64
		for _, p := range records {
			if !p.HasCompleted(stage.ID) {
				continue
			}
			m.Users++
			if i == len(stages)-1 || p.HasCompleted(stages[i+1].ID) {
				m.Conversions++
			}
			timeSum += float64(stageEntryTime(p, stage) - p.StartTime)
		}
		if m.Users > 0 {
			m.ConversionRate = float64(m.Conversions) / float64(m.Users) * 100
			m.DropOffRate = 100 - m.ConversionRate
			m.AverageTimeInStage = timeSum / float64(m.Users)
		}
		m.Revenue = float64(m.Users) * stage.GoalValue
		a.Stages[i] = m
	}

	for i := 0; i+1 < len(stages); i++ {
		m := a.Stages[i]
		if m.Users == 0 {
			continue
		}
		a.TopDropOffPoints = append(a.TopDropOffPoints, models.DropOffPoint{
			FromStage:   stages[i].ID,
			ToStage:     stages[i+1].ID,
			Users:       m.Users,
			DropOff:     m.Users - m.Conversions,
			DropOffRate: m.DropOffRate,
		})
	}
	sort.SliceStable(a.TopDropOffPoints, func(i, j int) bool {
		return a.TopDropOffPoints[i].DropOffRate > a.TopDropOffPoints[j].DropOffRate
	})
	if len(a.TopDropOffPoints) > topDropOffLimit {
		a.TopDropOffPoints = a.TopDropOffPoints[:topDropOffLimit]
	}
	return a
}

// stageEntryTime is the timestamp of the event that moved the user into stage.
// Records persisted without entry times fall back to the first triggering event.
func stageEntryTime(p models.FunnelProgress, stage models.FunnelStage) int64 {
	if ts, ok := p.StageEnteredAt[stage.ID]; ok {
		return ts
	}
	for _, ev := range p.Events {
		if stage.HasTrigger(ev.EventName) {
			return ev.Timestamp
		}
	}
	return p.StartTime
}
