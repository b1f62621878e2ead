// Package store implements the SQLite-backed validation and persistence
// layer described in spec §4.10/§3: forecasts, predictions, actuals, and
// validations, plus the transaction discipline that keeps a forecast run
// and its predictions totally ordered.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"
)

// MaxRetries bounds the exponential-backoff retry loop applied to
// transient SQLite errors, matching C1's fetch retry budget.
const MaxRetries = 3

// transientSubstrings classifies a SQLite error as retryable. SQLite
// reports lock contention and I/O hiccups as plain error strings rather
// than typed errors, so substring matching is the only portable option.
var transientSubstrings = []string{"locked", "busy", "timeout", "disk i/o"}

// PersistenceError wraps a store-layer failure that is a data-quality or
// durability problem rather than a caller bug: a non-UTC timestamp, a
// write that exhausted its retries, a broken invariant in a batch.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range transientSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Store wraps a *sql.DB configured for single-file SQLite use: WAL mode,
// foreign keys, and a 30s busy timeout baked into the DSN.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if absent) the SQLite file at path and applies the
// pragmas spec §4.10 requires on every connection.
func Open(path string, logger *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers internally; a single connection avoids
	// SQLITE_BUSY from this process racing itself.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying *sql.DB for read-only query packages (C13)
// that need arbitrary SELECTs the Store doesn't wrap directly.
func (s *Store) DB() *sql.DB {
	return s.db
}

// withRetry runs op, retrying up to MaxRetries times with exponential
// backoff when op's error is transient, matching fetch.Fetcher's idiom.
func (s *Store) withRetry(ctx context.Context, label string, op func() error) error {
	attempt := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		s.logger.Warn("retrying after transient sqlite error", "op", label, "err", err)
		return err
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), MaxRetries)
	if err := backoff.Retry(attempt, backoff.WithContext(bo, ctx)); err != nil {
		return &PersistenceError{Op: label, Err: err}
	}
	return nil
}

// withConnTx checks out one raw connection, issues beginStmt directly
// (database/sql's Tx.Begin has no way to express BEGIN IMMEDIATE or
// BEGIN EXCLUSIVE), runs fn against it, and commits or rolls back.
// fn receives the *sql.Conn rather than a *sql.Tx since the transaction
// itself is managed by hand here.
func withConnTx(ctx context.Context, db *sql.DB, beginStmt string, fn func(conn *sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("checkout connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, beginStmt); err != nil {
		return fmt.Errorf("%s: %w", beginStmt, err)
	}

	committed := false
	defer func() {
		if !committed {
			conn.ExecContext(ctx, "ROLLBACK")
		}
	}()

	if err := fn(conn); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// WithImmediate runs fn inside a BEGIN IMMEDIATE transaction, committing
// on success and rolling back on any error. Transient begin/commit
// failures are retried per spec §4.10.
func (s *Store) WithImmediate(ctx context.Context, label string, fn func(conn *sql.Conn) error) error {
	return s.withRetry(ctx, label, func() error {
		return withConnTx(ctx, s.db, "BEGIN IMMEDIATE", fn)
	})
}

// withExclusive runs fn inside a BEGIN EXCLUSIVE transaction, used only
// for schema changes per spec §4.10.
func (s *Store) withExclusive(ctx context.Context, fn func(conn *sql.Conn) error) error {
	return withConnTx(ctx, s.db, "BEGIN EXCLUSIVE", fn)
}

const schema = `
CREATE TABLE IF NOT EXISTS forecasts (
	forecast_id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	bundle_id TEXT NOT NULL,
	model_version TEXT,
	total_tokens INTEGER,
	input_tokens INTEGER,
	output_tokens INTEGER,
	model_cost_usd REAL,
	generation_time_sec REAL,
	status TEXT NOT NULL,
	confidence_report TEXT
);

CREATE TABLE IF NOT EXISTS predictions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	forecast_id TEXT NOT NULL REFERENCES forecasts(forecast_id),
	shore TEXT NOT NULL,
	forecast_time TEXT NOT NULL,
	valid_time TEXT NOT NULL,
	predicted_height REAL NOT NULL,
	predicted_period REAL,
	predicted_direction REAL,
	predicted_category TEXT,
	confidence REAL
);

CREATE TABLE IF NOT EXISTS actuals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	buoy_id TEXT NOT NULL,
	observation_time TEXT NOT NULL,
	wave_height REAL NOT NULL,
	dominant_period REAL,
	direction REAL,
	source TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS validations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	forecast_id TEXT NOT NULL REFERENCES forecasts(forecast_id),
	prediction_id INTEGER NOT NULL REFERENCES predictions(id),
	actual_id INTEGER NOT NULL REFERENCES actuals(id),
	validated_at TEXT NOT NULL,
	height_error REAL NOT NULL,
	period_error REAL,
	direction_error REAL,
	category_match INTEGER,
	mae REAL,
	rmse REAL
);

CREATE INDEX IF NOT EXISTS idx_predictions_shore_valid_time ON predictions(shore, valid_time);
CREATE INDEX IF NOT EXISTS idx_validations_validated_at ON validations(validated_at);
CREATE INDEX IF NOT EXISTS idx_actuals_buoy_observation ON actuals(buoy_id, observation_time);
CREATE INDEX IF NOT EXISTS idx_forecasts_created_at ON forecasts(created_at);
CREATE INDEX IF NOT EXISTS idx_forecasts_bundle_id ON forecasts(bundle_id);
`

// Migrate creates the schema if absent, under BEGIN EXCLUSIVE.
func (s *Store) Migrate(ctx context.Context) error {
	return s.withExclusive(ctx, func(conn *sql.Conn) error {
		for _, stmt := range strings.Split(schema, ";\n\n") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		return nil
	})
}

// Forecast mirrors the forecasts table row.
type Forecast struct {
	ForecastID        string
	CreatedAt         string
	BundleID          string
	ModelVersion      string
	TotalTokens       int
	InputTokens       int
	OutputTokens      int
	ModelCostUSD      float64
	GenerationTimeSec float64
	Status            string
	ConfidenceReport  string
}

// Prediction mirrors the predictions table row (ID is populated on insert).
type Prediction struct {
	ID                 int64
	ForecastID         string
	Shore              string
	ForecastTime       string
	ValidTime          string
	PredictedHeight    float64
	PredictedPeriod    float64
	PredictedDirection float64
	PredictedCategory  string
	Confidence         float64
}

// Actual mirrors the actuals table row.
type Actual struct {
	ID              int64
	BuoyID          string
	ObservationTime string
	WaveHeight      float64
	DominantPeriod  float64
	Direction       float64
	Source          string
}

// Validation mirrors the validations table row.
type Validation struct {
	ID             int64
	ForecastID     string
	PredictionID   int64
	ActualID       int64
	ValidatedAt    string
	HeightError    float64
	PeriodError    float64
	DirectionError float64
	CategoryMatch  bool
	MAE            float64
	RMSE           float64
}

// requireUTC rejects any timestamp not expressed in UTC (suffix "Z" or a
// "+00:00"/"-00:00" offset), per SUPPLEMENTED FEATURES' UTC-normalization
// decision: this is a data-quality rejection, not a caller-config panic.
func requireUTC(field, ts string) error {
	if strings.HasSuffix(ts, "Z") || strings.HasSuffix(ts, "+00:00") || strings.HasSuffix(ts, "-00:00") {
		return nil
	}
	return &PersistenceError{Op: "requireUTC", Err: fmt.Errorf("%s timestamp %q is not UTC", field, ts)}
}

// PersistForecastRun writes a forecast row and its predictions inside one
// BEGIN IMMEDIATE transaction, so the forecast row always precedes its
// predictions per spec §5's totally-ordered guarantee.
func (s *Store) PersistForecastRun(ctx context.Context, f Forecast, predictions []Prediction) error {
	if err := requireUTC("forecasts.created_at", f.CreatedAt); err != nil {
		return err
	}
	for _, p := range predictions {
		if err := requireUTC("predictions.valid_time", p.ValidTime); err != nil {
			return err
		}
	}

	return s.WithImmediate(ctx, "persist_forecast_run", func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO forecasts (forecast_id, created_at, bundle_id, model_version, total_tokens,
				input_tokens, output_tokens, model_cost_usd, generation_time_sec, status, confidence_report)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ForecastID, f.CreatedAt, f.BundleID, f.ModelVersion, f.TotalTokens,
			f.InputTokens, f.OutputTokens, f.ModelCostUSD, f.GenerationTimeSec, f.Status, f.ConfidenceReport)
		if err != nil {
			return fmt.Errorf("insert forecast: %w", err)
		}

		stmt, err := conn.PrepareContext(ctx, `
			INSERT INTO predictions (forecast_id, shore, forecast_time, valid_time, predicted_height,
				predicted_period, predicted_direction, predicted_category, confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare prediction insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range predictions {
			if _, err := stmt.ExecContext(ctx, f.ForecastID, p.Shore, p.ForecastTime, p.ValidTime,
				p.PredictedHeight, p.PredictedPeriod, p.PredictedDirection, p.PredictedCategory, p.Confidence); err != nil {
				return fmt.Errorf("insert prediction: %w", err)
			}
		}
		return nil
	})
}

// PersistActuals batch-inserts observed buoy readings as a single
// IMMEDIATE transaction; any single row failing rolls back the batch.
func (s *Store) PersistActuals(ctx context.Context, actuals []Actual) error {
	for _, a := range actuals {
		if err := requireUTC("actuals.observation_time", a.ObservationTime); err != nil {
			return err
		}
	}

	return s.WithImmediate(ctx, "persist_actuals", func(conn *sql.Conn) error {
		stmt, err := conn.PrepareContext(ctx, `
			INSERT INTO actuals (buoy_id, observation_time, wave_height, dominant_period, direction, source)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare actual insert: %w", err)
		}
		defer stmt.Close()

		for _, a := range actuals {
			if _, err := stmt.ExecContext(ctx, a.BuoyID, a.ObservationTime, a.WaveHeight, a.DominantPeriod, a.Direction, a.Source); err != nil {
				return fmt.Errorf("insert actual: %w", err)
			}
		}
		return nil
	})
}

// PersistValidation writes one validation row. Validations are created
// asynchronously once actuals become available, so this is a standalone
// IMMEDIATE transaction rather than part of PersistForecastRun.
func (s *Store) PersistValidation(ctx context.Context, v Validation) (int64, error) {
	if err := requireUTC("validations.validated_at", v.ValidatedAt); err != nil {
		return 0, err
	}

	var id int64
	err := s.WithImmediate(ctx, "persist_validation", func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			INSERT INTO validations (forecast_id, prediction_id, actual_id, validated_at,
				height_error, period_error, direction_error, category_match, mae, rmse)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ForecastID, v.PredictionID, v.ActualID, v.ValidatedAt,
			v.HeightError, v.PeriodError, v.DirectionError, v.CategoryMatch, v.MAE, v.RMSE)
		if err != nil {
			return fmt.Errorf("insert validation: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// NormalizeLegacyTimestamps rewrites non-UTC timestamps in forecasts,
// predictions, and actuals to UTC. A value with no offset recorded (the
// pre-UTC legacy shape spec §9 documents) is read as local time at
// localOffset; a value carrying its own non-UTC offset is converted using
// that offset. Rows already in UTC are left untouched.
func (s *Store) NormalizeLegacyTimestamps(ctx context.Context, localOffset time.Duration) error {
	type column struct{ table, col string }
	columns := []column{
		{"forecasts", "created_at"},
		{"predictions", "forecast_time"},
		{"predictions", "valid_time"},
		{"actuals", "observation_time"},
	}

	return s.WithImmediate(ctx, "normalize_legacy_timestamps", func(conn *sql.Conn) error {
		for _, c := range columns {
			rows, err := conn.QueryContext(ctx, fmt.Sprintf(`SELECT rowid, %s FROM %s`, c.col, c.table))
			if err != nil {
				return fmt.Errorf("select %s.%s: %w", c.table, c.col, err)
			}

			type update struct {
				rowid int64
				value string
			}
			var updates []update
			for rows.Next() {
				var rowid int64
				var ts string
				if err := rows.Scan(&rowid, &ts); err != nil {
					rows.Close()
					return fmt.Errorf("scan %s.%s: %w", c.table, c.col, err)
				}
				if requireUTC(c.col, ts) == nil {
					continue
				}
				parsed, err := time.Parse(time.RFC3339, ts)
				if err != nil {
					// No offset recorded: read it as local time at localOffset.
					parsed, err = time.ParseInLocation("2006-01-02T15:04:05", ts, time.FixedZone("legacy", int(localOffset.Seconds())))
					if err != nil {
						// Neither shape; leave for manual remediation.
						continue
					}
				}
				updates = append(updates, update{rowid: rowid, value: parsed.UTC().Format(time.RFC3339)})
			}
			rows.Close()

			for _, u := range updates {
				if _, err := conn.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET %s = ? WHERE rowid = ?`, c.table, c.col), u.value, u.rowid); err != nil {
					return fmt.Errorf("update %s.%s: %w", c.table, c.col, err)
				}
			}
		}
		return nil
	})
}

// ErrNotFound is returned by lookup helpers when no row matches.
var ErrNotFound = errors.New("store: not found")
