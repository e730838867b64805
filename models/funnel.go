package models

// Device classes used to segment funnel conversion.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceUnknown = "unknown"
)

// FunnelStage is a named step of the conversion journey. Stages are configured at
// start-up and never change for the lifetime of the process.
type FunnelStage struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Triggers       []string `json:"triggers"`
	RequiredEvents []string `json:"requiredEvents,omitempty"`
	GoalValue      float64  `json:"goalValue,omitempty"`
	// TimeWindowMs bounds, from the user's start time, when triggers are honored. Zero disables it.
	TimeWindowMs int64 `json:"timeWindow,omitempty"`
}

// HasTrigger reports whether eventName can advance a user into the stage.
func (s FunnelStage) HasTrigger(eventName string) bool {
	for _, t := range s.Triggers {
		if t == eventName {
			return true
		}
	}
	return false
}

// FunnelProgress tracks one user through the funnel.
type FunnelProgress struct {
	UserID          string           `json:"userId"`
	SessionID       string           `json:"sessionId"`
	StartTime       int64            `json:"startTime"`
	CurrentStage    string           `json:"currentStage"`
	CompletedStages []string         `json:"completedStages"`
	StageEnteredAt  map[string]int64 `json:"stageEnteredAt,omitempty"`
	AbandonedAt     *string          `json:"abandonedAt,omitempty"`
	TotalValue      float64          `json:"totalValue"`
	Events          []FunnelEvent    `json:"events"`
	DeviceType      string           `json:"deviceType"`
	TrafficSource   string           `json:"trafficSource"`
	LastActivity    int64            `json:"lastActivity"`
}

// HasCompleted reports whether stageID is among the completed stages.
func (p FunnelProgress) HasCompleted(stageID string) bool {
	for _, id := range p.CompletedStages {
		if id == stageID {
			return true
		}
	}
	return false
}

func (p FunnelProgress) IsAbandoned() bool {
	return p.AbandonedAt != nil
}

// Clone returns a deep copy whose slices and maps can be mutated independently.
// Event payloads are shared; events are never modified after ingestion.
func (p FunnelProgress) Clone() FunnelProgress {
	c := p
	c.CompletedStages = append([]string(nil), p.CompletedStages...)
	c.Events = append([]FunnelEvent(nil), p.Events...)
	if p.StageEnteredAt != nil {
		c.StageEnteredAt = make(map[string]int64, len(p.StageEnteredAt))
		for k, v := range p.StageEnteredAt {
			c.StageEnteredAt[k] = v
		}
	}
	if p.AbandonedAt != nil {
		stage := *p.AbandonedAt
		c.AbandonedAt = &stage
	}
	return c
}

// FunnelState is the durable layout of the engine: active progress by user id,
// the recent event log and the completed funnel history, both oldest-first.
type FunnelState struct {
	Progress  map[string]FunnelProgress `json:"progress"`
	Events    []FunnelEvent             `json:"events"`
	Completed []FunnelProgress          `json:"completed"`
}
