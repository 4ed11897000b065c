package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"hl-chase-bot/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// Event is one row of the chase audit trail: a placement, a reprice attempt
// or an applied fill.
type Event struct {
	Time      time.Time
	Coin      string
	Kind      string
	FromPrice float64
	ToPrice   float64
	Size      float64
	Remaining float64
	Accepted  bool
}

const (
	EventPlace   = "place"
	EventReprice = "reprice"
	EventFill    = "fill"
)

// Writer records chase events into Postgres/Timescale off the chase loop.
// Enqueueing never blocks; rows are dropped when the queue is full.
type Writer struct {
	db      *sql.DB
	log     *zap.Logger
	schema  string
	events  chan Event
	started atomic.Bool
	dropped atomic.Uint64
}

func New(cfg config.TimescaleConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	writer := &Writer{
		db:     db,
		log:    log,
		schema: schema,
		events: make(chan Event, 256),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) Enqueue(ev Event) {
	if w == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	select {
	case w.events <- ev:
	default:
		if w.dropped.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale event queue full")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-w.events:
			w.writeEvent(ctx, ev)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("timescale db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		coin TEXT NOT NULL,
		kind TEXT NOT NULL,
		from_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		to_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		size DOUBLE PRECISION NOT NULL DEFAULT 0,
		remaining DOUBLE PRECISION NOT NULL DEFAULT 0,
		accepted BOOLEAN NOT NULL DEFAULT TRUE
	)`, w.table("chase_events"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if w.log != nil {
			w.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("chase_events"))); err != nil && w.log != nil {
		w.log.Warn("timescale chase_events hypertable create failed", zap.Error(err))
	}
	return nil
}

func (w *Writer) writeEvent(ctx context.Context, ev Event) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, coin, kind, from_price, to_price, size, remaining, accepted
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8
	)`, w.table("chase_events"))
	if _, err := w.db.ExecContext(ctx, query,
		ev.Time,
		ev.Coin,
		ev.Kind,
		ev.FromPrice,
		ev.ToPrice,
		ev.Size,
		ev.Remaining,
		ev.Accepted,
	); err != nil && w.log != nil {
		w.log.Warn("timescale event insert failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
