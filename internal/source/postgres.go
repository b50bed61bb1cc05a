package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	appLog "agendash/internal/log"
	"agendash/internal/model"
)

// DefaultTable is the institutional events table.
const DefaultTable = "events"

// DBInstance is the subset of a pgx pool the Postgres source needs; it is
// satisfied by *pgxpool.Pool and by pgxmock pools in tests.
type DBInstance interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres reads events from a hosted Postgres table.
type Postgres struct {
	db      DBInstance
	query   string
	tracer  trace.Tracer
	metrics *DBMetrics
}

func NewPostgres(db DBInstance, table string) *Postgres {
	if strings.TrimSpace(table) == "" {
		table = DefaultTable
	}
	ident := pgx.Identifier(strings.Split(table, ".")).Sanitize()
	return &Postgres{
		db: db,
		query: "SELECT id::text, title, event_date, coalesce(time_range, ''), coalesce(description, ''), category " +
			"FROM " + ident + " WHERE event_date >= $1 ORDER BY event_date ASC",
		tracer:  otel.GetTracerProvider().Tracer("agendash/source"),
		metrics: NewDBMetrics(),
	}
}

func (p *Postgres) Name() string { return "postgres" }

// Upcoming runs the single filtered, ascending read. Rows with an unknown
// category are logged and skipped.
func (p *Postgres) Upcoming(ctx context.Context, from model.Date) ([]model.Event, error) {
	start := time.Now()

	var err error

	defer func() { p.metrics.Observe(ctx, "select_upcoming", start, err) }()

	ctx, span := p.tracer.Start(ctx, "source.Postgres.Upcoming")
	defer span.End()

	rows, err := p.db.Query(ctx, p.query, from.Time(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("query upcoming events: %w", err)
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		var (
			ev       model.Event
			date     time.Time
			category string
		)
		if err = rows.Scan(&ev.ID, &ev.Title, &date, &ev.TimeRange, &ev.Description, &category); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		ev.EventDate = model.DateOf(date)

		cat, catErr := model.ParseCategory(category)
		if catErr != nil || cat == model.CategoryPersonal {
			appLog.Error("skipping remote event with unusable category", catErr, "id", ev.ID, "category", category)
			continue
		}
		ev.Category = cat
		out = append(out, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	appLog.Debug("remote events loaded", "source", p.Name(), "from", from, "count", len(out))
	return out, nil
}

// Connect opens a traced connection pool and pings it.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}

	cfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// DBMetrics records query counts, errors and latency.
type DBMetrics struct {
	qTotal   metric.Int64Counter
	qErrors  metric.Int64Counter
	qLatency metric.Float64Histogram
}

func NewDBMetrics() *DBMetrics {
	meter := otel.Meter("agendash/db")

	qTotal, _ := meter.Int64Counter("db.query.total")
	qErrors, _ := meter.Int64Counter("db.query.errors.total")
	qLatency, _ := meter.Float64Histogram("db.query.duration.ms")

	return &DBMetrics{qTotal: qTotal, qErrors: qErrors, qLatency: qLatency}
}

func (m *DBMetrics) Observe(ctx context.Context, op string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("db.system", "postgres"),
		attribute.String("db.operation", op),
	)

	m.qTotal.Add(ctx, 1, attrs)
	m.qLatency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	if err != nil {
		m.qErrors.Add(ctx, 1, attrs)
	}
}
