// Package export hands finished run reports to an external system through a
// signed webhook with retries.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tourplan/internal/model"
	"tourplan/internal/store"
)

// Publisher queues run outcomes for the Worker.
type Publisher struct {
	Store  store.Store
	URL    string
	Secret string
}

func NewPublisher(s store.Store, url, secret string) *Publisher {
	return &Publisher{Store: s, URL: url, Secret: secret}
}

// Enabled reports whether a webhook URL is configured.
func (p *Publisher) Enabled() bool { return p != nil && p.URL != "" }

// Event is the webhook body.
type Event struct {
	ID    string          `json:"id"`
	Type  string          `json:"type"`
	RunID string          `json:"runId"`
	TS    string          `json:"ts"`
	Data  json.RawMessage `json:"data"`
}

// PublishRun queues the outcome of a finished run: its report on success,
// its error otherwise. Runs still in progress are ignored.
func (p *Publisher) PublishRun(ctx context.Context, run model.Run) error {
	if !p.Enabled() {
		return nil
	}
	var (
		eventType string
		data      any
	)
	switch run.Status {
	case model.RunSucceeded:
		eventType, data = model.EventRunCompleted, run.Report
	case model.RunFailed:
		eventType, data = model.EventRunFailed, run.Error
	default:
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("export: encode %s: %w", run.ID, err)
	}
	body, err := json.Marshal(Event{
		ID:    "evt_" + run.ID + "_" + eventType,
		Type:  eventType,
		RunID: run.ID,
		TS:    run.UpdatedAt.UTC().Format(time.RFC3339),
		Data:  raw,
	})
	if err != nil {
		return fmt.Errorf("export: encode %s: %w", run.ID, err)
	}
	if _, err := p.Store.EnqueueWebhook(ctx, run.ID, eventType, p.URL, p.Secret, body); err != nil {
		return fmt.Errorf("export: enqueue %s: %w", run.ID, err)
	}
	return nil
}
