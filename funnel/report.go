package funnel

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"funnelscope/api/models"
)

// GenerateOptimizationReport renders analytics and opportunities as plain text.
func (e *Engine) GenerateOptimizationReport() string {
	analytics := e.GenerateAnalytics()
	opps := e.IdentifyOptimizationOpportunities()

	var b strings.Builder
	b.WriteString("Conversion Funnel Optimization Report\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", time.UnixMilli(analytics.GeneratedAt).UTC().Format(time.RFC3339))

	b.WriteString("Overview\n")
	fmt.Fprintf(&b, "  Total users:             %d\n", analytics.TotalUsers)
	fmt.Fprintf(&b, "  Active / completed:      %d / %d (%d abandoned)\n",
		analytics.ActiveUsers, analytics.CompletedUsers, analytics.AbandonedUsers)
	fmt.Fprintf(&b, "  Overall conversion rate: %.2f%%\n", analytics.OverallConversionRate)
	fmt.Fprintf(&b, "  Average time to convert: %s\n", formatMillis(analytics.AverageTime))
	fmt.Fprintf(&b, "  Total goal value:        %.2f\n\n", analytics.TotalValue)

	b.WriteString("Stage performance\n")
	for _, m := range analytics.Stages {
		fmt.Fprintf(&b, "  - %s: %d users, %.2f%% conversion, %.2f%% drop-off, %s avg time, %.2f revenue\n",
			m.Name, m.Users, m.ConversionRate, m.DropOffRate, formatMillis(m.AverageTimeInStage), m.Revenue)
	}

	b.WriteString("\nTop drop-off points\n")
	if len(analytics.TopDropOffPoints) == 0 {
		b.WriteString("  none\n")
	}
	for i, d := range analytics.TopDropOffPoints {
		fmt.Fprintf(&b, "  %d. %s -> %s: %.2f%% (%d of %d users)\n",
			i+1, d.FromStage, d.ToStage, d.DropOffRate, d.DropOff, d.Users)
	}

	b.WriteString("\nOptimization opportunities\n")
	if len(opps) == 0 {
		b.WriteString("  none\n")
	}
	for i, o := range opps {
		target := o.StageID
		if o.DeviceType != "" {
			target = o.DeviceType
		}
		fmt.Fprintf(&b, "  %d. [%s] %s (%s): %s\n", i+1, strings.ToUpper(o.Priority), o.Type, target, o.Description)
		fmt.Fprintf(&b, "     Recommendation: %s\n", o.Recommendation)
		fmt.Fprintf(&b, "     Potential impact: %.2f\n", o.PotentialImpact)
	}
	return b.String()
}

// Snapshot returns a deep copy of the engine state together with fresh analytics
// and the most recently identified opportunities.
func (e *Engine) Snapshot() models.ExportSnapshot {
	e.mu.RLock()
	state := e.stateLocked()
	records := e.recordsLocked()
	opps := append([]models.OptimizationOpportunity{}, e.opportunities...)
	e.mu.RUnlock()

	now := e.clock.Now().UnixMilli()
	return models.ExportSnapshot{
		ExportedAt:    now,
		Stages:        e.Stages(),
		Progress:      state.Progress,
		Completed:     state.Completed,
		Events:        state.Events,
		Opportunities: opps,
		Analytics:     analyze(e.stages, records, now),
	}
}

// ExportData serialises Snapshot as indented JSON.
func (e *Engine) ExportData() ([]byte, error) {
	data, err := json.MarshalIndent(e.Snapshot(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal funnel export: %w", err)
	}
	return data, nil
}
