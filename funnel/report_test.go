package funnel

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelscope/api/models"
)

func TestOptimizationReportSections(t *testing.T) {
	e, _ := newTestEngine(t, abcStages())
	for i := 0; i < 10; i++ {
		track(t, e, ev("x", fmt.Sprintf("u%d", i), 0))
	}

	report := e.GenerateOptimizationReport()
	assert.Contains(t, report, "Conversion Funnel Optimization Report")
	assert.Contains(t, report, "Total users:             10")
	assert.Contains(t, report, "Stage performance")
	assert.Contains(t, report, "A -> B: 100.00% (10 of 10 users)")
	assert.Contains(t, report, "[HIGH] high_drop_off (A)")
}

func TestOptimizationReportEmpty(t *testing.T) {
	e, _ := newTestEngine(t, abcStages())

	report := e.GenerateOptimizationReport()
	assert.Contains(t, report, "Total users:             0")
	assert.Contains(t, report, "Top drop-off points\n  none")
	assert.Contains(t, report, "Optimization opportunities\n  none")
}

func TestExportDataRoundTrips(t *testing.T) {
	e, _ := newTestEngine(t, abcStages())
	track(t, e, ev("x", "u1", 0), ev("y", "u1", 1), ev("x", "u2", 0))
	e.IdentifyOptimizationOpportunities()

	data, err := e.ExportData()
	require.NoError(t, err)

	var snap models.ExportSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Len(t, snap.Stages, 3)
	assert.Len(t, snap.Progress, 2)
	assert.Len(t, snap.Events, 3)
	assert.Equal(t, 2, snap.Analytics.TotalUsers)
	assert.NotEmpty(t, snap.Opportunities)
	assert.Equal(t, []string{"A", "B"}, snap.Progress["u1"].CompletedStages)
}
