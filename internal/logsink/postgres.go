package logsink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"auroraai/internal/config"
	"auroraai/internal/domain"
)

const createLogsTable = `
CREATE TABLE IF NOT EXISTS orchestration_logs (
	id            UUID PRIMARY KEY,
	timestamp     TIMESTAMPTZ NOT NULL,
	user_id       TEXT,
	tier          TEXT NOT NULL,
	request_type  TEXT NOT NULL,
	input         TEXT,
	selected_model TEXT,
	all_models    JSONB,
	scores        JSONB,
	tokens_used   INTEGER NOT NULL DEFAULT 0,
	latency_ms    BIGINT NOT NULL DEFAULT 0,
	success       BOOLEAN NOT NULL,
	error         TEXT
);
CREATE INDEX IF NOT EXISTS idx_orchestration_logs_user_id ON orchestration_logs (user_id);
CREATE INDEX IF NOT EXISTS idx_orchestration_logs_timestamp ON orchestration_logs (timestamp);
`

// Postgres persists log entries asynchronously. Record enqueues onto a
// buffered channel drained by a writer goroutine; when the buffer is full
// the entry is dropped rather than blocking the response path.
type Postgres struct {
	db     *sql.DB
	queue  chan *domain.LogEntry
	done   chan struct{}
	logger *slog.Logger
}

// NewPostgres opens the database, ensures the log table exists, and starts
// the writer goroutine
func NewPostgres(cfg *config.DatabaseConfig, logger *slog.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(cfg.ConnMaxAge)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, createLogsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure log table: %w", err)
	}

	p := &Postgres{
		db:     db,
		queue:  make(chan *domain.LogEntry, 256),
		done:   make(chan struct{}),
		logger: logger,
	}
	go p.writer()
	return p, nil
}

// Record enqueues an entry for persistence. Never blocks.
func (p *Postgres) Record(entry *domain.LogEntry) {
	if entry == nil {
		return
	}

	select {
	case p.queue <- entry:
	default:
		p.logger.Warn("log queue full, dropping entry", "id", entry.ID)
	}
}

// List returns entries matching the query, newest first
func (p *Postgres) List(q Query) []*domain.LogEntry {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, timestamp, user_id, tier, request_type, input,
		selected_model, all_models, scores, tokens_used, latency_ms, success, error
		FROM orchestration_logs
		WHERE ($1 = '' OR user_id = $1)
		  AND ($2 = '' OR tier = $2)
		  AND ($3 = '' OR request_type = $3)
		ORDER BY timestamp DESC
		LIMIT $4 OFFSET $5`

	rows, err := p.db.Query(query, q.UserID, q.Tier, q.RequestType, limit, q.Offset)
	if err != nil {
		p.logger.Error("log query failed", "error", err)
		return nil
	}
	defer rows.Close()

	var entries []*domain.LogEntry
	for rows.Next() {
		var (
			e          domain.LogEntry
			userID     sql.NullString
			input      sql.NullString
			selected   sql.NullString
			errText    sql.NullString
			modelsJSON []byte
			scoresJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &userID, &e.Tier, &e.RequestType,
			&input, &selected, &modelsJSON, &scoresJSON,
			&e.TokensUsed, &e.LatencyMS, &e.Success, &errText); err != nil {
			p.logger.Error("log scan failed", "error", err)
			continue
		}
		e.UserID = userID.String
		e.Input = input.String
		e.SelectedModel = selected.String
		e.Error = errText.String
		json.Unmarshal(modelsJSON, &e.AllModels)
		json.Unmarshal(scoresJSON, &e.Scores)
		entries = append(entries, &e)
	}
	return entries
}

// Close drains the queue and closes the database
func (p *Postgres) Close() error {
	close(p.queue)
	<-p.done
	return p.db.Close()
}

func (p *Postgres) writer() {
	defer close(p.done)

	for entry := range p.queue {
		if err := p.insert(entry); err != nil {
			p.logger.Error("log insert failed", "id", entry.ID, "error", err)
		}
	}
}

func (p *Postgres) insert(entry *domain.LogEntry) error {
	models, _ := json.Marshal(entry.AllModels)
	scores, _ := json.Marshal(entry.Scores)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO orchestration_logs
			(id, timestamp, user_id, tier, request_type, input, selected_model,
			 all_models, scores, tokens_used, latency_ms, success, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entry.ID, entry.Timestamp, entry.UserID, string(entry.Tier), entry.RequestType,
		entry.Input, entry.SelectedModel, models, scores,
		entry.TokensUsed, entry.LatencyMS, entry.Success, entry.Error)
	return err
}
