package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// dialect captures the SQL differences between the supported drivers.
type dialect struct {
	driver     string
	numbered   bool
	migrations []string
}

var dialects = map[string]dialect{
	"postgres": {
		driver:   "postgres",
		numbered: true,
		migrations: []string{`
CREATE TABLE IF NOT EXISTS mesh_results (
 id          VARCHAR(36) PRIMARY KEY,
 run_id      VARCHAR(36) NOT NULL,
 name        TEXT NOT NULL,
 mesh_volume DOUBLE PRECISION NULL,
 box_volume  DOUBLE PRECISION NULL,
 triangles   INTEGER NOT NULL,
 error       TEXT NOT NULL,
 created_at  TIMESTAMPTZ NOT NULL
);`,
			`CREATE INDEX IF NOT EXISTS idx_mesh_results_run ON mesh_results (run_id);`,
		},
	},
	"mysql": {
		driver: "mysql",
		migrations: []string{`
CREATE TABLE IF NOT EXISTS mesh_results (
 id          VARCHAR(36) PRIMARY KEY,
 run_id      VARCHAR(36) NOT NULL,
 name        VARCHAR(1024) NOT NULL,
 mesh_volume DOUBLE NULL,
 box_volume  DOUBLE NULL,
 triangles   INT NOT NULL,
 error       TEXT NOT NULL,
 created_at  DATETIME(6) NOT NULL,
 INDEX idx_mesh_results_run (run_id)
) CHARACTER SET utf8mb4;`,
		},
	},
}

// rebind rewrites ? placeholders to $1, $2, ... for drivers that number them.
func (d dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var sb strings.Builder
	n := 0
	for _, c := range q {
		if c == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

// SQL is a Repository backed by PostgreSQL or MySQL.
type SQL struct {
	db *sql.DB
	d  dialect
}

// Open connects to driver ("postgres" or "mysql") and verifies the
// connection with a ping.
func Open(ctx context.Context, driver, dsn string) (*SQL, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", driver, err)
	}
	return &SQL{db: db, d: d}, nil
}

func (s *SQL) Close() error { return s.db.Close() }

// Ping reports whether the database is reachable.
func (s *SQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Migrate creates the results table if it does not exist.
func (s *SQL) Migrate(ctx context.Context) error {
	for _, q := range s.d.migrations {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// nullable maps non-finite volumes to NULL, which MySQL requires.
func nullable(f float64) sql.NullFloat64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func fromNullable(n sql.NullFloat64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}

func (s *SQL) Save(ctx context.Context, recs ...*Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	q := s.d.rebind(`
INSERT INTO mesh_results
(id, run_id, name, mesh_volume, box_volume, triangles, error, created_at)
VALUES (?,?,?,?,?,?,?,?)`)
	for _, r := range recs {
		created := r.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, q,
			r.ID, r.RunID, r.Name,
			nullable(r.MeshVolume), nullable(r.BoxVolume),
			r.Triangles, r.Error, created,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: save %s: %w", r.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

const recordColumns = `id, run_id, name, mesh_volume, box_volume, triangles, error, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var r Record
	var mesh, box sql.NullFloat64
	if err := row.Scan(&r.ID, &r.RunID, &r.Name, &mesh, &box, &r.Triangles, &r.Error, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.MeshVolume = fromNullable(mesh)
	r.BoxVolume = fromNullable(box)
	return &r, nil
}

func (s *SQL) Get(ctx context.Context, id string) (*Record, error) {
	q := s.d.rebind(`SELECT ` + recordColumns + ` FROM mesh_results WHERE id=? LIMIT 1`)
	r, err := scanRecord(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	return r, nil
}

func (s *SQL) ListByRun(ctx context.Context, runID string) ([]*Record, error) {
	q := s.d.rebind(`SELECT ` + recordColumns + ` FROM mesh_results WHERE run_id=? ORDER BY name`)
	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("store: list run %s: %w", runID, err)
	}
	defer rows.Close()
	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list run %s: %w", runID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list run %s: %w", runID, err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (s *SQL) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	q := s.d.rebind(`
SELECT run_id, COUNT(*),
       COALESCE(SUM(CASE WHEN error <> '' THEN 1 ELSE 0 END), 0),
       MIN(created_at)
FROM mesh_results
GROUP BY run_id
ORDER BY MIN(created_at) DESC
LIMIT ?`)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("store: runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Files, &r.Failed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: runs: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
