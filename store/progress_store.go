// api/store/progress_store.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"funnelscope/api/models"
)

// Keys of the persisted funnel state.
const (
	KeyProgress  = "funnel-progress"
	KeyEvents    = "funnel-events"
	KeyCompleted = "completed-funnels"
)

var (
	ErrNotConfigured = errors.New("backend not configured")
	ErrUnknownDriver = errors.New("unknown store driver")
)

// KV is the minimal key-value contract the funnel state is laid out on.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
}

// KVProgressStore persists the funnel state as three JSON documents.
type KVProgressStore struct {
	kv KV
}

func NewKVProgressStore(kv KV) *KVProgressStore {
	return &KVProgressStore{kv: kv}
}

func (s *KVProgressStore) Load(ctx context.Context) (models.FunnelState, error) {
	state := models.FunnelState{Progress: make(map[string]models.FunnelProgress)}
	if err := s.getJSON(ctx, KeyProgress, &state.Progress); err != nil {
		return models.FunnelState{}, err
	}
	if err := s.getJSON(ctx, KeyEvents, &state.Events); err != nil {
		return models.FunnelState{}, err
	}
	if err := s.getJSON(ctx, KeyCompleted, &state.Completed); err != nil {
		return models.FunnelState{}, err
	}
	if state.Progress == nil {
		state.Progress = make(map[string]models.FunnelProgress)
	}
	return state, nil
}

func (s *KVProgressStore) Save(ctx context.Context, state models.FunnelState) error {
	values := make(map[string][]byte, 3)
	for key, v := range map[string]any{
		KeyProgress:  state.Progress,
		KeyEvents:    state.Events,
		KeyCompleted: state.Completed,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		values[key] = data
	}
	if err := s.kv.SetMany(ctx, values); err != nil {
		return fmt.Errorf("failed to save funnel state: %w", err)
	}
	return nil
}

func (s *KVProgressStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyProgress, KeyEvents, KeyCompleted); err != nil {
		return fmt.Errorf("failed to clear funnel state: %w", err)
	}
	return nil
}

func (s *KVProgressStore) getJSON(ctx context.Context, key string, dst any) error {
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}
