package models

// Opportunity types and priorities produced by the optimization heuristics.
const (
	OpportunityHighDropOff     = "high_drop_off"
	OpportunitySlowProgression = "slow_progression"
	OpportunityDeviceSpecific  = "device_specific"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

type StageMetrics struct {
	StageID        string  `json:"stageId"`
	Name           string  `json:"name"`
	Users          int     `json:"users"`
	Conversions    int     `json:"conversions"`
	ConversionRate float64 `json:"conversionRate"`
	DropOffRate    float64 `json:"dropOffRate"`
	// AverageTimeInStage is in milliseconds, measured from the user's start time.
	AverageTimeInStage float64 `json:"averageTimeInStage"`
	Revenue            float64 `json:"revenue"`
}

type DropOffPoint struct {
	FromStage   string  `json:"fromStage"`
	ToStage     string  `json:"toStage"`
	Users       int     `json:"users"`
	DropOff     int     `json:"dropOff"`
	DropOffRate float64 `json:"dropOffRate"`
}

// FunnelAnalytics aggregates active and completed progress records.
type FunnelAnalytics struct {
	TotalUsers            int            `json:"totalUsers"`
	ActiveUsers           int            `json:"activeUsers"`
	CompletedUsers        int            `json:"completedUsers"`
	AbandonedUsers        int            `json:"abandonedUsers"`
	OverallConversionRate float64        `json:"overallConversionRate"`
	AverageTime           float64        `json:"averageTime"`
	TotalValue            float64        `json:"totalValue"`
	Stages                []StageMetrics `json:"stages"`
	TopDropOffPoints      []DropOffPoint `json:"topDropOffPoints"`
	GeneratedAt           int64          `json:"generatedAt"`
}

type OptimizationOpportunity struct {
	Type            string  `json:"type"`
	Priority        string  `json:"priority"`
	StageID         string  `json:"stageId,omitempty"`
	DeviceType      string  `json:"deviceType,omitempty"`
	Description     string  `json:"description"`
	Recommendation  string  `json:"recommendation"`
	MetricValue     float64 `json:"metricValue"`
	PotentialImpact float64 `json:"potentialImpact"`
}

// ExportSnapshot is the transportable form of the whole engine state.
type ExportSnapshot struct {
	ExportedAt    int64                     `json:"exportedAt"`
	Stages        []FunnelStage             `json:"stages"`
	Progress      map[string]FunnelProgress `json:"progress"`
	Completed     []FunnelProgress          `json:"completedFunnels"`
	Events        []FunnelEvent             `json:"events"`
	Opportunities []OptimizationOpportunity `json:"opportunities"`
	Analytics     FunnelAnalytics           `json:"analytics"`
}
