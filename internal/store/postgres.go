package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tourplan/internal/model"
	"tourplan/internal/opt"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// MigrateDir applies every *.sql file in dir, in name order, that is not yet
// recorded in schema_migrations.
func (p *Postgres) MigrateDir(dir string) error {
	ctx := context.Background()
	if _, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (name TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())`); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	sort.Strings(files)
	for _, f := range files {
		name := filepath.Base(f)
		var seen string
		err := p.db.QueryRowContext(ctx, `SELECT name FROM schema_migrations WHERE name=$1`, name).Scan(&seen)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		body, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
	}
	return nil
}

func (p *Postgres) CreateRun(ctx context.Context, run model.Run) error {
	req, report, rerr, err := encodeRun(run)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO runs (id, status, created_at, updated_at, stops, request, report, error, cached)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		run.ID, string(run.Status), run.CreatedAt, run.UpdatedAt, run.Stops, req, report, rerr, run.Cached)
	return err
}

func (p *Postgres) UpdateRun(ctx context.Context, run model.Run) error {
	_, report, rerr, err := encodeRun(run)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `UPDATE runs SET status=$2, updated_at=$3, report=$4, error=$5, cached=$6 WHERE id=$1`,
		run.ID, string(run.Status), run.UpdatedAt, report, rerr, run.Cached)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const runColumns = `id, status, created_at, updated_at, stops, request, report, error, cached`

func (p *Postgres) GetRun(ctx context.Context, id string) (model.Run, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=$1`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, ErrNotFound
	}
	return run, err
}

func (p *Postgres) ListRuns(ctx context.Context, status model.RunStatus, cursor string, limit int) ([]model.Run, string, error) {
	limit = clampLimit(limit)
	rows, err := p.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs
        WHERE ($1 = '' OR status = $1)
          AND ($2 = '' OR (created_at, id) < (SELECT created_at, id FROM runs WHERE id = $2))
        ORDER BY created_at DESC, id DESC LIMIT $3`, string(status), cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	var next string
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.Run, error) {
	var (
		run            model.Run
		status         string
		req            []byte
		report, runErr []byte
	)
	if err := row.Scan(&run.ID, &status, &run.CreatedAt, &run.UpdatedAt, &run.Stops, &req, &report, &runErr, &run.Cached); err != nil {
		return model.Run{}, err
	}
	run.Status = model.RunStatus(status)
	if err := json.Unmarshal(req, &run.Request); err != nil {
		return model.Run{}, fmt.Errorf("run %s: decode request: %w", run.ID, err)
	}
	if len(report) > 0 {
		run.Report = &opt.Report{}
		if err := json.Unmarshal(report, run.Report); err != nil {
			return model.Run{}, fmt.Errorf("run %s: decode report: %w", run.ID, err)
		}
	}
	if len(runErr) > 0 {
		run.Error = &model.RunError{}
		if err := json.Unmarshal(runErr, run.Error); err != nil {
			return model.Run{}, fmt.Errorf("run %s: decode error: %w", run.ID, err)
		}
	}
	return run, nil
}

// encodeRun marshals the JSONB columns; absent report and error become NULL.
func encodeRun(run model.Run) (req []byte, report, runErr any, err error) {
	req, err = json.Marshal(run.Request)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("run %s: encode request: %w", run.ID, err)
	}
	if run.Report != nil {
		b, err := json.Marshal(run.Report)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("run %s: encode report: %w", run.ID, err)
		}
		report = b
	}
	if run.Error != nil {
		b, err := json.Marshal(run.Error)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("run %s: encode error: %w", run.ID, err)
		}
		runErr = b
	}
	return req, report, runErr, nil
}

// Webhook deliveries
func (p *Postgres) EnqueueWebhook(ctx context.Context, runID, eventType, url, secret string, payload []byte) (string, error) {
	var id string
	err := p.db.QueryRowContext(ctx, `INSERT INTO webhook_deliveries (id, run_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
        VALUES ($1,$2,$3,$4,$5,$6,'pending',0,now(),$7)
        ON CONFLICT (run_id, event_type, url, dedup_key) DO UPDATE SET updated_at = webhook_deliveries.updated_at
        RETURNING id::text`, uuid.New(), runID, eventType, url, nullIfEmpty(secret), payload, computeDedupKey(payload)).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

const deliveryColumns = `id::text, run_id, event_type, url, COALESCE(secret,''), payload, status, attempts, next_attempt_at, COALESCE(last_error,''), COALESCE(response_code,0), COALESCE(latency_ms,0)`

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+deliveryColumns+`
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return scanDeliveries(rows)
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, runID string) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+deliveryColumns+`
        FROM webhook_deliveries WHERE ($1 = '' OR run_id = $1) ORDER BY created_at ASC`, runID)
	if err != nil {
		return nil, err
	}
	return scanDeliveries(rows)
}

func scanDeliveries(rows *sql.Rows) ([]WebhookDelivery, error) {
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.RunID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts, &d.NextAttemptAt, &d.LastError, &d.ResponseCode, &d.LatencyMs); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if !success {
		if nextAttemptAt == nil {
			t := time.Now().Add(time.Minute)
			nextAttemptAt = &t
		}
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$2, next_attempt_at=$3, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$1`,
			id, nullIfEmpty(lastError), *nextAttemptAt, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', last_error=NULL, delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`,
		id, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
