package funnel

import (
	"fmt"
	"sort"
	"time"

	"funnelscope/api/models"
)

// Heuristic thresholds. These are fixed rules, not fitted values.
const (
	highDropOffRate       = 70.0
	slowStageThreshold    = 5 * time.Minute
	deviceUnderperformPct = 0.7

	highDropOffImpact = 0.1
	slowStageImpact   = 0.05
	deviceImpact      = 0.15
)

// IdentifyOptimizationOpportunities evaluates the heuristic rules over fresh
// analytics and caches the result for export.
func (e *Engine) IdentifyOptimizationOpportunities() []models.OptimizationOpportunity {
	e.mu.RLock()
	records := e.recordsLocked()
	e.mu.RUnlock()

	analytics := analyze(e.stages, records, e.clock.Now().UnixMilli())
	opps := opportunitiesFor(e.stages, analytics, records)

	e.mu.Lock()
	e.opportunities = opps
	e.mu.Unlock()

	return append([]models.OptimizationOpportunity(nil), opps...)
}

func opportunitiesFor(stages []models.FunnelStage, a models.FunnelAnalytics, records []models.FunnelProgress) []models.OptimizationOpportunity {
	opps := []models.OptimizationOpportunity{}

	for _, m := range a.Stages {
		if m.DropOffRate > highDropOffRate {
			opps = append(opps, models.OptimizationOpportunity{
				Type:     models.OpportunityHighDropOff,
				Priority: models.PriorityHigh,
				StageID:  m.StageID,
				Description: fmt.Sprintf("%.1f%% of users who reach %s never move on to the next stage",
					m.DropOffRate, m.Name),
				Recommendation:  "Tighten the message and call to action on this step and remove friction on the path to the next stage",
				MetricValue:     m.DropOffRate,
				PotentialImpact: float64(m.Users) * highDropOffImpact,
			})
		}
		if m.AverageTimeInStage > float64(slowStageThreshold.Milliseconds()) {
			opps = append(opps, models.OptimizationOpportunity{
				Type:     models.OpportunitySlowProgression,
				Priority: models.PriorityMedium,
				StageID:  m.StageID,
				Description: fmt.Sprintf("users take %s on average to reach %s",
					formatMillis(m.AverageTimeInStage), m.Name),
				Recommendation:  "Surface the content that leads to this stage earlier and shorten the journey towards it",
				MetricValue:     m.AverageTimeInStage,
				PotentialImpact: float64(m.Users) * slowStageImpact,
			})
		}
	}

	terminal := stages[len(stages)-1].ID
	deviceUsers := make(map[string]int)
	deviceConversions := make(map[string]int)
	for _, p := range records {
		deviceUsers[p.DeviceType]++
		if p.HasCompleted(terminal) {
			deviceConversions[p.DeviceType]++
		}
	}
	devices := make([]string, 0, len(deviceUsers))
	for d := range deviceUsers {
		devices = append(devices, d)
	}
	sort.Strings(devices)

	for _, device := range devices {
		users := deviceUsers[device]
		rate := float64(deviceConversions[device]) / float64(users) * 100
		if rate < a.OverallConversionRate*deviceUnderperformPct {
			opps = append(opps, models.OptimizationOpportunity{
				Type:       models.OpportunityDeviceSpecific,
				Priority:   models.PriorityHigh,
				DeviceType: device,
				Description: fmt.Sprintf("%s users convert at %.1f%% against %.1f%% overall",
					device, rate, a.OverallConversionRate),
				Recommendation:  fmt.Sprintf("Audit layout, load time and form usability of the %s experience", device),
				MetricValue:     rate,
				PotentialImpact: float64(users) * deviceImpact,
			})
		}
	}

	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].PotentialImpact > opps[j].PotentialImpact
	})
	return opps
}

func formatMillis(ms float64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}
