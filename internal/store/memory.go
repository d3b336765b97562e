package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tourplan/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu         sync.Mutex
	runs       map[string]model.Run        // id -> run
	deliveries map[string]*WebhookDelivery // id -> delivery
	order      []string                    // delivery ids in enqueue order
	dedup      map[string]string           // runId|eventType|url|key -> delivery id
}

func NewMemory() *Memory {
	return &Memory{
		runs:       map[string]model.Run{},
		deliveries: map[string]*WebhookDelivery{},
		dedup:      map[string]string{},
	}
}

func (m *Memory) CreateRun(ctx context.Context, run model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; ok {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	m.runs[run.ID] = run
	return nil
}

func (m *Memory) UpdateRun(ctx context.Context, run model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		return ErrNotFound
	}
	m.runs[run.ID] = run
	return nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return model.Run{}, ErrNotFound
	}
	return run, nil
}

// ListRuns returns runs newest first. cursor is the id of the last run of the
// previous page.
func (m *Memory) ListRuns(ctx context.Context, status model.RunStatus, cursor string, limit int) ([]model.Run, string, error) {
	limit = clampLimit(limit)
	m.mu.Lock()
	all := make([]model.Run, 0, len(m.runs))
	for _, r := range m.runs {
		if status == "" || r.Status == status {
			all = append(all, r)
		}
	}
	m.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	start := 0
	if cursor != "" {
		start = len(all)
		for i, r := range all {
			if r.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	page := all[start:end]
	var next string
	if end < len(all) && len(page) > 0 {
		next = page[len(page)-1].ID
	}
	return page, next, nil
}

// EnqueueWebhook queues payload for delivery. A payload already queued for
// the same run, event and URL is not queued twice; its id is returned.
func (m *Memory) EnqueueWebhook(ctx context.Context, runID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := runID + "|" + eventType + "|" + url + "|" + computeDedupKey(payload)
	if id, ok := m.dedup[key]; ok {
		return id, nil
	}
	id := uuid.New().String()
	m.deliveries[id] = &WebhookDelivery{
		ID:            id,
		RunID:         runID,
		EventType:     eventType,
		URL:           url,
		Secret:        secret,
		Payload:       payload,
		Status:        DeliveryPending,
		NextAttemptAt: time.Now(),
	}
	m.order = append(m.order, id)
	m.dedup[key] = id
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.order {
		d := m.deliveries[id]
		if (d.Status == DeliveryPending || d.Status == DeliveryRetry) && !d.NextAttemptAt.After(now) {
			out = append(out, *d)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Attempts++
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = DeliveryDelivered
		d.LastError = ""
		return nil
	}
	d.Status = DeliveryRetry
	d.LastError = lastError
	if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	} else {
		d.NextAttemptAt = time.Now().Add(time.Minute)
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = DeliveryFailed
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, runID string) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []WebhookDelivery{}
	for _, id := range m.order {
		if d := m.deliveries[id]; runID == "" || d.RunID == runID {
			out = append(out, *d)
		}
	}
	return out, nil
}
