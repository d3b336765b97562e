package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourplan/internal/model"
)

func seedRuns(t *testing.T, s Store, n int) []model.Run {
	t.Helper()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	runs := make([]model.Run, n)
	for i := range runs {
		runs[i] = model.Run{
			ID:        fmt.Sprintf("run_%02d", i),
			Status:    model.RunSucceeded,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
			Stops:     3,
		}
		if i%2 == 1 {
			runs[i].Status = model.RunFailed
		}
		require.NoError(t, s.CreateRun(context.Background(), runs[i]))
	}
	return runs
}

func TestMemoryRuns_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	run := model.Run{ID: "r1", Status: model.RunQueued, Stops: 4}
	require.NoError(t, m.CreateRun(ctx, run))
	require.Error(t, m.CreateRun(ctx, run), "duplicate id")

	run.Status = model.RunSucceeded
	require.NoError(t, m.UpdateRun(ctx, run))
	got, err := m.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.RunSucceeded, got.Status)

	_, err = m.GetRun(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, m.UpdateRun(ctx, model.Run{ID: "missing"}), ErrNotFound)
}

func TestMemoryRuns_ListPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seedRuns(t, m, 5)

	page, next, err := m.ListRuns(ctx, "", "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "run_04", page[0].ID)
	assert.Equal(t, "run_03", page[1].ID)
	assert.Equal(t, "run_03", next)

	page, next, err = m.ListRuns(ctx, "", next, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"run_02", "run_01"}, ids(page))

	page, next, err = m.ListRuns(ctx, "", next, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"run_00"}, ids(page))
	assert.Empty(t, next)

	failed, _, err := m.ListRuns(ctx, model.RunFailed, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"run_03", "run_01"}, ids(failed))
}

func ids(runs []model.Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}

func TestMemoryWebhooks_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.EnqueueWebhook(ctx, "r1", "run.completed", "http://x", "s", []byte(`{"id":"evt_1"}`))
	require.NoError(t, err)

	again, err := m.EnqueueWebhook(ctx, "r1", "run.completed", "http://x", "s", []byte(`{"id":"evt_1","retry":true}`))
	require.NoError(t, err)
	assert.Equal(t, id, again, "same event id is deduplicated")

	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, DeliveryPending, due[0].Status)

	later := time.Now().Add(time.Hour)
	require.NoError(t, m.MarkWebhookDelivery(ctx, id, false, &later, "boom", 500, 12))
	due, err = m.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, due, "retry is scheduled in the future")

	require.NoError(t, m.FailWebhookDelivery(ctx, id, "gave up", 500, 10))
	all, err := m.ListWebhookDeliveries(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, DeliveryFailed, all[0].Status)
	assert.Equal(t, 2, all[0].Attempts)
	assert.Equal(t, "gave up", all[0].LastError)

	require.ErrorIs(t, m.MarkWebhookDelivery(ctx, "nope", true, nil, "", 200, 1), ErrNotFound)
}

func TestComputeDedupKeyFromID(t *testing.T) {
	assert.Equal(t, "evt_123", computeDedupKey([]byte(`{"id":"evt_123","type":"x"}`)))
}

func TestComputeDedupKeyFromHash(t *testing.T) {
	got := computeDedupKey([]byte(`{"notId":"x"}`))
	b, err := hex.DecodeString(got)
	require.NoError(t, err)
	assert.Len(t, b, 8)
}
