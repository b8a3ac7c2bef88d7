// Package history persists one row per handled query to Postgres so past
// answers and their latencies can be inspected later.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/saborai/saborai/agent/contract"
)

type Config struct {
	DSN     string        `envconfig:"DSN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// QueryRecord is one handled query.
type QueryRecord struct {
	bun.BaseModel `bun:"table:query_records,alias:qr"`

	ID         int64     `bun:"id,pk,autoincrement"`
	Query      string    `bun:"query,notnull"`
	AgentsUsed []string  `bun:"agents_used,array"`
	Status     string    `bun:"status,notnull"`
	Response   string    `bun:"response"`
	LatencyMS  float64   `bun:"latency_ms,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Recorder writes query records through bun.
type Recorder struct {
	db *bun.DB
}

var _ contractx.Recorder = (*Recorder)(nil)

// NewRecorder connects to Postgres and makes sure the table exists.
func NewRecorder(ctx context.Context, cfg Config) (*Recorder, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("history dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	initCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if _, err := db.NewCreateTable().Model((*QueryRecord)(nil)).IfNotExists().Exec(initCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create query_records table: %w", err)
	}

	return &Recorder{db: db}, nil
}

func (r *Recorder) Record(ctx context.Context, agg *contractx.Aggregate) error {
	if agg == nil {
		return errors.New("nil aggregate")
	}

	agents := make([]string, 0, len(agg.AgentsUsed))
	for _, tag := range agg.AgentsUsed {
		agents = append(agents, string(tag))
	}

	record := &QueryRecord{
		Query:      agg.Query,
		AgentsUsed: agents,
		Status:     string(agg.Status),
		Response:   agg.Response,
		LatencyMS:  agg.LatencyMS,
	}
	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return fmt.Errorf("insert query record: %w", err)
	}
	return nil
}

func (r *Recorder) Close() error {
	return r.db.Close()
}
