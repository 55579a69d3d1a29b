package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/edp1096/toy-qpm/pkg/analysis"
)

var ErrRunNotFound = errors.New("store: run not found")

// Run is one archived tuning curve with the configuration that produced it.
type Run struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Title     string
	Pump      float64 // um
	Signal    float64 // reference signal (um)
	Idler     float64 // reference idler (um)
	T0        float64 // degC
	Tref      float64 // degC
	Period    float64 // um
	Method    string
	Curve     analysis.TuningCurve
}

// Summary is a run without its points.
type Summary struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Title     string
	Period    float64
	Points    int
	Failures  int
}

// Store archives runs in SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the archive at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		pump REAL NOT NULL,
		signal REAL NOT NULL,
		idler REAL NOT NULL,
		t0 REAL NOT NULL,
		tref REAL NOT NULL,
		period REAL NOT NULL,
		method TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS points (
		run_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		temperature REAL NOT NULL,
		signal REAL,
		idler REAL,
		failure INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, idx),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores run and its curve in one transaction. A nil ID is replaced
// by a fresh one; a zero CreatedAt by the current time.
func (s *Store) SaveRun(ctx context.Context, run *Run) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, title, pump, signal, idler, t0, tref, period, method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID.String(), run.CreatedAt.UnixNano(), run.Title, run.Pump, run.Signal, run.Idler,
		run.T0, run.Tref, run.Period, run.Method)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (run_id, idx, temperature, signal, idler, failure)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to prepare point insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range run.Curve {
		signal, idler := wavelengthToNull(p, p.Signal), wavelengthToNull(p, p.Idler)
		if _, err := stmt.ExecContext(ctx, run.ID.String(), i, p.Temperature, signal, idler, int(p.Failure)); err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

// LoadRun returns the run with its curve in sweep order.
func (s *Store) LoadRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	run := &Run{ID: id}
	var created int64

	err := s.db.QueryRowContext(ctx, `
		SELECT created_at, title, pump, signal, idler, t0, tref, period, method
		FROM runs WHERE id = ?
	`, id.String()).Scan(&created, &run.Title, &run.Pump, &run.Signal, &run.Idler,
		&run.T0, &run.Tref, &run.Period, &run.Method)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	run.CreatedAt = time.Unix(0, created)

	rows, err := s.db.QueryContext(ctx, `
		SELECT temperature, signal, idler, failure
		FROM points WHERE run_id = ? ORDER BY idx
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p             analysis.TuningPoint
			signal, idler sql.NullFloat64
			failure       int
		)
		if err := rows.Scan(&p.Temperature, &signal, &idler, &failure); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}

		p.Failure = analysis.FailureKind(failure)
		p.Valid = signal.Valid && idler.Valid
		p.Signal = nullToWavelength(signal)
		p.Idler = nullToWavelength(idler)
		run.Curve = append(run.Curve, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating points: %w", err)
	}

	return run, nil
}

// ListRuns returns every archived run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.created_at, r.title, r.period,
			COUNT(p.idx), COUNT(p.idx) - COUNT(p.signal)
		FROM runs r LEFT JOIN points p ON p.run_id = r.id
		GROUP BY r.id
		ORDER BY r.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			id      string
			created int64
		)
		if err := rows.Scan(&id, &created, &sum.Title, &sum.Period, &sum.Points, &sum.Failures); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if sum.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("corrupt run id %q: %w", id, err)
		}
		sum.CreatedAt = time.Unix(0, created)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return out, nil
}

// DeleteRun removes a run and its points.
func (s *Store) DeleteRun(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Invalid points keep their wavelengths as NULL.
func wavelengthToNull(p analysis.TuningPoint, v float64) sql.NullFloat64 {
	if !p.Valid {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nullToWavelength(v sql.NullFloat64) float64 {
	if v.Valid {
		return v.Float64
	}
	return analysis.NoData
}
