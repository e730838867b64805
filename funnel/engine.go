// Package funnel tracks users through ordered conversion stages and derives
// drop-off statistics and optimization heuristics from their progress.
package funnel

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"funnelscope/api/models"
)

const (
	MaxStoredEvents     = 1000
	MaxCompletedFunnels = 100

	DefaultAbandonAfter = 24 * time.Hour
)

// ProgressStore is the durable key-value substrate behind the engine.
type ProgressStore interface {
	Load(ctx context.Context) (models.FunnelState, error)
	Save(ctx context.Context, state models.FunnelState) error
	Clear(ctx context.Context) error
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Option func(*Engine)

func WithStore(s ProgressStore) Option {
	return func(e *Engine) { e.store = s }
}

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) { e.log = log }
}

func WithListener(l ProgressionListener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, l) }
}

// WithAbandonAfter overrides the inactivity period after which a user is abandoned.
func WithAbandonAfter(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.abandonAfter = d
		}
	}
}

// Engine is the funnel analytics engine. It is safe for concurrent use: events of the
// same user are serialised, events of different users proceed in parallel.
type Engine struct {
	stages       []models.FunnelStage
	stageIndex   map[string]int
	store        ProgressStore
	clock        Clock
	log          *logrus.Entry
	listeners    []ProgressionListener
	abandonAfter time.Duration
	validate     *validator.Validate

	userLocks *keyedMutex

	// mu guards everything below. Progress records stored in active are never
	// mutated in place; writers replace them with an updated clone.
	mu             sync.RWMutex
	active         map[string]*models.FunnelProgress
	completed      []models.FunnelProgress
	completedUsers map[string]int
	events         []models.FunnelEvent
	opportunities  []models.OptimizationOpportunity
	version        uint64
	generation     uint64

	persistMu        sync.Mutex
	persistedVersion uint64
}

// NewEngine validates stages and builds an engine around them.
func NewEngine(stages []models.FunnelStage, opts ...Option) (*Engine, error) {
	if err := ValidateStages(stages); err != nil {
		return nil, err
	}

	v := validator.New()
	v.SetTagName("binding")

	e := &Engine{
		stages:         append([]models.FunnelStage(nil), stages...),
		stageIndex:     make(map[string]int, len(stages)),
		clock:          systemClock{},
		log:            logrus.NewEntry(logrus.StandardLogger()),
		abandonAfter:   DefaultAbandonAfter,
		validate:       v,
		userLocks:      newKeyedMutex(),
		active:         make(map[string]*models.FunnelProgress),
		completedUsers: make(map[string]int),
	}
	for i, stage := range e.stages {
		e.stageIndex[stage.ID] = i
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Stages returns a copy of the configured stages in funnel order.
func (e *Engine) Stages() []models.FunnelStage {
	return append([]models.FunnelStage(nil), e.stages...)
}

func (e *Engine) terminalStage() models.FunnelStage {
	return e.stages[len(e.stages)-1]
}

// Load replaces the in-memory state with the persisted one.
func (e *Engine) Load(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	state, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load funnel state: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.active = make(map[string]*models.FunnelProgress, len(state.Progress))
	for userID, p := range state.Progress {
		p := p
		e.active[userID] = &p
	}
	e.events = trimEvents(state.Events)
	e.completed = nil
	e.completedUsers = make(map[string]int)
	for _, p := range state.Completed {
		e.appendCompletedLocked(p)
	}
	e.generation++

	e.log.WithFields(logrus.Fields{
		"active":    len(e.active),
		"completed": len(e.completed),
		"events":    len(e.events),
	}).Info("funnel state restored")
	return nil
}

// ValidateEvent reports the ErrInvalidEvent TrackEvent would return for event,
// without tracking it.
func (e *Engine) ValidateEvent(event models.FunnelEvent) error {
	if err := e.validate.Struct(event); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	for name, value := range map[string]string{
		"userId":    event.UserID,
		"sessionId": event.SessionID,
		"eventName": event.EventName,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s is blank", ErrInvalidEvent, name)
		}
	}
	return nil
}

// TrackEvent ingests one event: it is logged, the user's progress is advanced and
// checked for completion or abandonment, and the state is persisted.
// Only malformed events produce an error; persistence failures are logged.
func (e *Engine) TrackEvent(ctx context.Context, event models.FunnelEvent) error {
	if err := e.ValidateEvent(event); err != nil {
		return err
	}

	unlock := e.userLocks.Lock(event.UserID)
	defer unlock()

	now := e.clock.Now()

	e.mu.Lock()
	e.appendEventLocked(event)
	if e.completedUsers[event.UserID] > 0 {
		e.version++
		version, state := e.version, e.stateLocked()
		e.mu.Unlock()

		e.log.WithFields(logrus.Fields{
			"userId":    event.UserID,
			"eventName": event.EventName,
		}).Debug("event for a finished funnel recorded without progression")
		e.persist(ctx, state, version)
		return nil
	}

	var progress models.FunnelProgress
	if current, ok := e.active[event.UserID]; ok {
		progress = current.Clone()
	} else {
		progress = newProgress(event)
	}
	generation := e.generation
	e.mu.Unlock()

	progress.Events = append(progress.Events, event)
	if event.Timestamp > progress.LastActivity {
		progress.LastActivity = event.Timestamp
	}
	reached := e.advance(&progress, event)
	finished := e.settle(&progress, now)

	e.mu.Lock()
	if generation != e.generation {
		// Cleared or reloaded while this event was being applied.
		e.mu.Unlock()
		return nil
	}
	if finished {
		delete(e.active, progress.UserID)
		e.appendCompletedLocked(progress)
	} else {
		e.active[progress.UserID] = &progress
	}
	e.version++
	version, state := e.version, e.stateLocked()
	e.mu.Unlock()

	e.persist(ctx, state, version)

	for _, stage := range reached {
		e.notify(ctx, models.StageProgression{
			UserProgress: progress,
			Stage:        stage,
			ReachedAt:    event.Timestamp,
		})
	}
	return nil
}

func newProgress(event models.FunnelEvent) models.FunnelProgress {
	return models.FunnelProgress{
		UserID:          event.UserID,
		SessionID:       event.SessionID,
		StartTime:       event.Timestamp,
		CompletedStages: []string{},
		StageEnteredAt:  make(map[string]int64),
		DeviceType:      deviceTypeFor(event),
		TrafficSource:   trafficSourceFor(event),
		LastActivity:    event.Timestamp,
	}
}

// settle moves a finished funnel out of the active set: either the terminal stage
// was reached, or the user has been idle for longer than abandonAfter.
func (e *Engine) settle(p *models.FunnelProgress, now time.Time) bool {
	if p.HasCompleted(e.terminalStage().ID) {
		return true
	}
	if now.UnixMilli()-p.LastActivity > e.abandonAfter.Milliseconds() {
		stage := p.CurrentStage
		p.AbandonedAt = &stage
		return true
	}
	return false
}

// SweepAbandoned abandons every active user idle for longer than the abandonment
// period and returns how many were moved to completed history.
func (e *Engine) SweepAbandoned(ctx context.Context) int {
	now := e.clock.Now()
	cutoff := now.UnixMilli() - e.abandonAfter.Milliseconds()

	e.mu.RLock()
	var stale []string
	for userID, p := range e.active {
		if p.LastActivity < cutoff {
			stale = append(stale, userID)
		}
	}
	e.mu.RUnlock()
	sort.Strings(stale)

	moved := 0
	for _, userID := range stale {
		unlock := e.userLocks.Lock(userID)
		e.mu.Lock()
		if current, ok := e.active[userID]; ok {
			p := current.Clone()
			if e.settle(&p, now) {
				delete(e.active, userID)
				e.appendCompletedLocked(p)
				moved++
			}
		}
		e.mu.Unlock()
		unlock()
	}

	if moved == 0 {
		return 0
	}

	e.mu.Lock()
	e.version++
	version, state := e.version, e.stateLocked()
	e.mu.Unlock()
	e.persist(ctx, state, version)

	e.log.WithField("abandoned", moved).Info("abandonment sweep moved idle users to completed history")
	return moved
}

// Progress returns a copy of the user's active record, or of the most recent
// completed record when the user has finished the funnel.
func (e *Engine) Progress(userID string) (models.FunnelProgress, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if p, ok := e.active[userID]; ok {
		return p.Clone(), true
	}
	for i := len(e.completed) - 1; i >= 0; i-- {
		if e.completed[i].UserID == userID {
			return e.completed[i].Clone(), true
		}
	}
	return models.FunnelProgress{}, false
}

// ClearData resets the in-memory state and wipes the store.
func (e *Engine) ClearData(ctx context.Context) error {
	e.mu.Lock()
	e.active = make(map[string]*models.FunnelProgress)
	e.completed = nil
	e.completedUsers = make(map[string]int)
	e.events = nil
	e.opportunities = nil
	e.generation++
	e.version++
	version := e.version
	e.mu.Unlock()

	if e.store == nil {
		return nil
	}
	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	if err := e.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear funnel store: %w", err)
	}
	e.persistedVersion = version
	e.log.Info("funnel data cleared")
	return nil
}

func (e *Engine) appendEventLocked(event models.FunnelEvent) {
	e.events = append(e.events, event)
	if len(e.events) > MaxStoredEvents {
		e.events = trimEvents(e.events)
	}
}

func (e *Engine) appendCompletedLocked(p models.FunnelProgress) {
	e.completed = append(e.completed, p)
	e.completedUsers[p.UserID]++
	if over := len(e.completed) - MaxCompletedFunnels; over > 0 {
		for _, old := range e.completed[:over] {
			if e.completedUsers[old.UserID]--; e.completedUsers[old.UserID] <= 0 {
				delete(e.completedUsers, old.UserID)
			}
		}
		e.completed = append([]models.FunnelProgress(nil), e.completed[over:]...)
	}
}

func trimEvents(events []models.FunnelEvent) []models.FunnelEvent {
	if over := len(events) - MaxStoredEvents; over > 0 {
		return append([]models.FunnelEvent(nil), events[over:]...)
	}
	return events
}

// stateLocked copies the current state for persistence. Active records are
// immutable once stored, so copying the values is enough.
func (e *Engine) stateLocked() models.FunnelState {
	state := models.FunnelState{
		Progress:  make(map[string]models.FunnelProgress, len(e.active)),
		Events:    append([]models.FunnelEvent(nil), e.events...),
		Completed: append([]models.FunnelProgress(nil), e.completed...),
	}
	for userID, p := range e.active {
		state.Progress[userID] = *p
	}
	return state
}

// persist saves state unless a newer version already reached the store.
func (e *Engine) persist(ctx context.Context, state models.FunnelState, version uint64) {
	if e.store == nil {
		return
	}
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	if version <= e.persistedVersion {
		return
	}
	if err := e.store.Save(ctx, state); err != nil {
		e.log.WithError(err).WithField("version", version).Warn("failed to persist funnel state")
		return
	}
	e.persistedVersion = version
}

func (e *Engine) notify(ctx context.Context, p models.StageProgression) {
	for _, l := range e.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.WithFields(logrus.Fields{
						"panic": r,
						"stage": p.Stage.ID,
					}).Error("stage progression listener panicked")
				}
			}()
			l.OnStageReached(ctx, p)
		}()
	}
}
