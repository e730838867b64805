package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelscope/api/database"
	"funnelscope/api/models"
)

func sampleState() models.FunnelState {
	abandoned := "interest"
	return models.FunnelState{
		Progress: map[string]models.FunnelProgress{
			"u1": {
				UserID: "u1", SessionID: "s1", StartTime: 1000, CurrentStage: "awareness",
				CompletedStages: []string{"awareness"}, StageEnteredAt: map[string]int64{"awareness": 1000},
				Events:     []models.FunnelEvent{{EventID: "e1", EventName: "page_view", UserID: "u1", SessionID: "s1", Timestamp: 1000}},
				DeviceType: models.DeviceDesktop, TrafficSource: "direct", LastActivity: 1000,
			},
		},
		Events: []models.FunnelEvent{{EventID: "e1", EventName: "page_view", UserID: "u1", SessionID: "s1", Timestamp: 1000}},
		Completed: []models.FunnelProgress{
			{UserID: "u0", CompletedStages: []string{"awareness", "interest"}, AbandonedAt: &abandoned, TotalValue: 1},
		},
	}
}

// exerciseProgressStore runs the same contract against every KV backend.
func exerciseProgressStore(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()
	s := NewKVProgressStore(kv)

	empty, err := s.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty.Progress)
	assert.Empty(t, empty.Progress)
	assert.Empty(t, empty.Events)
	assert.Empty(t, empty.Completed)

	want := sampleState()
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Overwrite replaces every document.
	want.Progress = map[string]models.FunnelProgress{}
	want.Events = []models.FunnelEvent{}
	require.NoError(t, s.Save(ctx, want))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Progress)
	assert.Empty(t, got.Events)
	assert.Len(t, got.Completed, 1)

	require.NoError(t, s.Clear(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Progress)
	assert.Empty(t, got.Completed)

	// Clearing twice is harmless.
	require.NoError(t, s.Clear(ctx))
}

func TestMemoryProgressStore(t *testing.T) {
	exerciseProgressStore(t, NewMemoryKV())
}

func TestBuntProgressStore(t *testing.T) {
	client, err := database.NewBuntDB(filepath.Join(t.TempDir(), "funnel.db"))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	exerciseProgressStore(t, NewBuntKV(client.DB))
}

func TestSQLiteProgressStore(t *testing.T) {
	client, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "funnel.sqlite"))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	kv, err := NewSQLKV(context.Background(), client.DB, SQLiteDialect)
	require.NoError(t, err)
	exerciseProgressStore(t, kv)
}

func TestLoadRejectsCorruptDocument(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.SetMany(context.Background(), map[string][]byte{KeyProgress: []byte("{not json")}))

	_, err := NewKVProgressStore(kv).Load(context.Background())
	assert.ErrorContains(t, err, KeyProgress)
}

func TestMemoryKVCopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	value := []byte("abc")
	require.NoError(t, kv.SetMany(ctx, map[string][]byte{"k": value}))
	value[0] = 'z'

	got, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))

	_, ok, err = kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
