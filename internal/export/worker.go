package export

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"tourplan/internal/metrics"
	"tourplan/internal/store"
)

const batchSize = 50

// Worker drains due webhook deliveries from the store and POSTs them.
type Worker struct {
	Store       store.Store
	HTTP        *http.Client
	MaxAttempts int
	Interval    time.Duration
	Logger      *log.Logger
}

func NewWorker(s store.Store, maxAttempts int, timeout time.Duration, logger *log.Logger) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Worker{
		Store:       s,
		HTTP:        &http.Client{Timeout: timeout},
		MaxAttempts: maxAttempts,
		Interval:    time.Second,
		Logger:      logger,
	}
}

// Start polls until ctx is done. It does not block.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.processOnce(ctx)
			}
		}
	}()
}

func (w *Worker) processOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	items, err := w.Store.FetchDueWebhookDeliveries(ctx, batchSize)
	if err != nil {
		w.Logger.Warn("fetch webhook deliveries", "err", err)
		return
	}
	for _, it := range items {
		w.deliver(ctx, it)
	}
}

func (w *Worker) deliver(ctx context.Context, it store.WebhookDelivery) {
	success := false
	code := 0
	lastErr := ""

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, it.URL, bytes.NewReader(it.Payload))
	if err == nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Event-Type", it.EventType)
		if it.Secret != "" {
			req.Header.Set("X-Signature", SignHMAC(it.Secret, it.Payload))
		}
		var resp *http.Response
		resp, err = w.HTTP.Do(req)
		if err == nil {
			code = resp.StatusCode
			_ = resp.Body.Close()
			success = code >= 200 && code < 300
			if !success {
				lastErr = "unexpected status " + strconv.Itoa(code)
			}
		}
	}
	if err != nil {
		lastErr = err.Error()
	}
	latency := int(time.Since(start).Milliseconds())

	status := store.DeliveryDelivered
	switch {
	case success:
		err = w.Store.MarkWebhookDelivery(ctx, it.ID, true, nil, "", code, latency)
	case it.Attempts+1 >= w.MaxAttempts:
		status = store.DeliveryFailed
		err = w.Store.FailWebhookDelivery(ctx, it.ID, lastErr, code, latency)
		w.Logger.Error("webhook delivery gave up", "id", it.ID, "run", it.RunID, "attempts", it.Attempts+1, "err", lastErr)
	default:
		status = store.DeliveryRetry
		next := time.Now().Add(nextBackoff(it.Attempts))
		err = w.Store.MarkWebhookDelivery(ctx, it.ID, false, &next, lastErr, code, latency)
		w.Logger.Debug("webhook delivery will retry", "id", it.ID, "at", next, "err", lastErr)
	}
	if err != nil {
		w.Logger.Warn("record webhook delivery", "id", it.ID, "err", err)
	}
	metrics.WebhookDeliveries.WithLabelValues(it.EventType, status).Inc()
	metrics.WebhookLatency.WithLabelValues(it.EventType, status).Observe(float64(latency))
}

// nextBackoff doubles from one second and caps at an hour.
func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 12 {
		attempts = 12
	}
	d := time.Second << attempts
	if d > time.Hour {
		d = time.Hour
	}
	return d
}
