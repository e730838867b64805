package funnel

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelscope/api/models"
)

func filterOpps(opps []models.OptimizationOpportunity, kind string) []models.OptimizationOpportunity {
	var out []models.OptimizationOpportunity
	for _, o := range opps {
		if o.Type == kind {
			out = append(out, o)
		}
	}
	return out
}

func TestAnalyticsWithNoUsers(t *testing.T) {
	e, _ := newTestEngine(t, abcStages())

	a := e.GenerateAnalytics()
	assert.Equal(t, 0, a.TotalUsers)
	assert.Zero(t, a.OverallConversionRate)
	assert.Zero(t, a.AverageTime)
	assert.Empty(t, a.TopDropOffPoints)
	require.Len(t, a.Stages, 3)
	for _, m := range a.Stages {
		assert.Zero(t, m.Users)
		assert.Zero(t, m.ConversionRate)
		assert.Zero(t, m.DropOffRate)
		assert.Zero(t, m.AverageTimeInStage)
	}

	assert.Empty(t, e.IdentifyOptimizationOpportunities())
}

func TestHighDropOffOpportunity(t *testing.T) {
	e, _ := newTestEngine(t, abcStages())

	for i := 0; i < 10; i++ {
		user := fmt.Sprintf("u%d", i)
		track(t, e, ev("x", user, 0))
		if i < 2 {
			track(t, e, ev("y", user, 1))
		}
	}

	a := e.GenerateAnalytics()
	stageA := a.Stages[0]
	assert.Equal(t, 10, stageA.Users)
	assert.Equal(t, 2, stageA.Conversions)
	assert.InDelta(t, 20.0, stageA.ConversionRate, 1e-9)
	assert.InDelta(t, 80.0, stageA.DropOffRate, 1e-9)

	opps := e.IdentifyOptimizationOpportunities()
	require.NotEmpty(t, opps)
	top := opps[0]
	assert.Equal(t, models.OpportunityHighDropOff, top.Type)
	assert.Equal(t, models.PriorityHigh, top.Priority)
	assert.Equal(t, "A", top.StageID)
	assert.InDelta(t, 1.0, top.PotentialImpact, 1e-9)

	assert.Equal(t, opps, e.Snapshot().Opportunities)
}

func TestStageMetricsAndOverallConversion(t *testing.T) {
	stages := abcStages()
	records := []models.FunnelProgress{
		{UserID: "won", StartTime: 0, LastActivity: 60_000, CompletedStages: []string{"A", "B", "C"},
			StageEnteredAt: map[string]int64{"A": 0, "B": 20_000, "C": 60_000}, TotalValue: 7},
		{UserID: "lost", StartTime: 0, LastActivity: 5_000, CompletedStages: []string{"A"},
			StageEnteredAt: map[string]int64{"A": 2_000}, TotalValue: 1, AbandonedAt: strPtr("A")},
		{UserID: "active", StartTime: 100, LastActivity: 200, CompletedStages: []string{"A", "B"},
			StageEnteredAt: map[string]int64{"A": 100, "B": 200}, TotalValue: 3},
		{UserID: "fresh", StartTime: 0, LastActivity: 0, CompletedStages: []string{}},
	}

	a := analyze(stages, records, 1234)
	assert.Equal(t, 4, a.TotalUsers)
	assert.Equal(t, 2, a.ActiveUsers)
	assert.Equal(t, 2, a.CompletedUsers)
	assert.Equal(t, 1, a.AbandonedUsers)
	assert.InDelta(t, 25.0, a.OverallConversionRate, 1e-9)
	assert.InDelta(t, 60_000.0, a.AverageTime, 1e-9)
	assert.InDelta(t, 11.0, a.TotalValue, 1e-9)
	assert.Equal(t, int64(1234), a.GeneratedAt)

	stageA := a.Stages[0]
	assert.Equal(t, 3, stageA.Users)
	assert.Equal(t, 2, stageA.Conversions)
	assert.InDelta(t, 2_000.0/3, stageA.AverageTimeInStage, 1e-9)
	assert.InDelta(t, 3.0, stageA.Revenue, 1e-9)

	stageB := a.Stages[1]
	assert.Equal(t, 2, stageB.Users)
	assert.Equal(t, 1, stageB.Conversions)
	assert.InDelta(t, 50.0, stageB.DropOffRate, 1e-9)
	assert.InDelta(t, 10_050.0, stageB.AverageTimeInStage, 1e-9)

	terminal := a.Stages[2]
	assert.Equal(t, 1, terminal.Users)
	assert.InDelta(t, 100.0, terminal.ConversionRate, 1e-9)
	assert.Zero(t, terminal.DropOffRate)
	assert.InDelta(t, 4.0, terminal.Revenue, 1e-9)

	require.Len(t, a.TopDropOffPoints, 2)
	assert.Equal(t, "B", a.TopDropOffPoints[0].FromStage)
	assert.Equal(t, "C", a.TopDropOffPoints[0].ToStage)
	assert.Equal(t, 1, a.TopDropOffPoints[0].DropOff)
	assert.Equal(t, "A", a.TopDropOffPoints[1].FromStage)
}

func TestStageEntryFallsBackToFirstTriggerEvent(t *testing.T) {
	stage := models.FunnelStage{ID: "A", Triggers: []string{"x"}}
	p := models.FunnelProgress{
		StartTime: 100,
		Events: []models.FunnelEvent{
			{EventName: "page_view", Timestamp: 100},
			{EventName: "x", Timestamp: 450},
			{EventName: "x", Timestamp: 900},
		},
	}
	assert.Equal(t, int64(450), stageEntryTime(p, stage))
}

func TestTopDropOffPointsLimitedToFive(t *testing.T) {
	var stages []models.FunnelStage
	for i := 0; i < 8; i++ {
		stages = append(stages, models.FunnelStage{ID: fmt.Sprintf("s%d", i), Triggers: []string{"t"}})
	}
	var records []models.FunnelProgress
	for u := 0; u < 8; u++ {
		completed := []string{}
		for i := 0; i <= u; i++ {
			completed = append(completed, fmt.Sprintf("s%d", i))
		}
		records = append(records, models.FunnelProgress{UserID: fmt.Sprintf("u%d", u), CompletedStages: completed})
	}

	a := analyze(stages, records, 0)
	require.Len(t, a.TopDropOffPoints, 5)
	for i := 1; i < len(a.TopDropOffPoints); i++ {
		assert.GreaterOrEqual(t, a.TopDropOffPoints[i-1].DropOffRate, a.TopDropOffPoints[i].DropOffRate)
	}
	// s6 -> s7 loses one of two users, the worst rate of the chain.
	assert.Equal(t, "s6", a.TopDropOffPoints[0].FromStage)
}

func TestSlowProgressionOpportunity(t *testing.T) {
	stages := abcStages()
	records := []models.FunnelProgress{
		{UserID: "a", StartTime: 0, CompletedStages: []string{"A", "B"},
			StageEnteredAt: map[string]int64{"A": 0, "B": (10 * time.Minute).Milliseconds()}},
		{UserID: "b", StartTime: 0, CompletedStages: []string{"A", "B"},
			StageEnteredAt: map[string]int64{"A": 0, "B": (8 * time.Minute).Milliseconds()}},
	}

	opps := opportunitiesFor(stages, analyze(stages, records, 0), records)
	slow := filterOpps(opps, models.OpportunitySlowProgression)
	require.Len(t, slow, 1)
	assert.Equal(t, "B", slow[0].StageID)
	assert.Equal(t, models.PriorityMedium, slow[0].Priority)
	assert.InDelta(t, 0.1, slow[0].PotentialImpact, 1e-9)
	assert.Contains(t, slow[0].Description, "9m0s")
}

func TestDeviceSpecificOpportunity(t *testing.T) {
	stages := abcStages()
	var records []models.FunnelProgress
	for i := 0; i < 4; i++ {
		completed := []string{"A"}
		if i < 2 {
			completed = []string{"A", "B", "C"}
		}
		records = append(records, models.FunnelProgress{
			UserID: fmt.Sprintf("d%d", i), DeviceType: models.DeviceDesktop, CompletedStages: completed,
		})
		records = append(records, models.FunnelProgress{
			UserID: fmt.Sprintf("m%d", i), DeviceType: models.DeviceMobile, CompletedStages: []string{"A"},
		})
	}

	a := analyze(stages, records, 0)
	require.InDelta(t, 25.0, a.OverallConversionRate, 1e-9)

	device := filterOpps(opportunitiesFor(stages, a, records), models.OpportunityDeviceSpecific)
	require.Len(t, device, 1)
	assert.Equal(t, models.DeviceMobile, device[0].DeviceType)
	assert.Equal(t, models.PriorityHigh, device[0].Priority)
	assert.InDelta(t, 0.6, device[0].PotentialImpact, 1e-9)
	assert.Zero(t, device[0].MetricValue)
}

func TestOpportunitiesSortedByImpact(t *testing.T) {
	stages := abcStages()
	var records []models.FunnelProgress
	for i := 0; i < 20; i++ {
		records = append(records, models.FunnelProgress{
			UserID: fmt.Sprintf("u%d", i), DeviceType: models.DeviceDesktop, CompletedStages: []string{"A"},
			StageEnteredAt: map[string]int64{"A": (6 * time.Minute).Milliseconds()},
		})
	}

	opps := opportunitiesFor(stages, analyze(stages, records, 0), records)
	require.Len(t, opps, 2)
	assert.Equal(t, models.OpportunityHighDropOff, opps[0].Type)
	assert.Equal(t, models.OpportunitySlowProgression, opps[1].Type)
	assert.Greater(t, opps[0].PotentialImpact, opps[1].PotentialImpact)
}

func strPtr(s string) *string { return &s }
