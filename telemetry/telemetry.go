// Package telemetry records one row per scan-matcher optimizer call to a
// sqlite-backed sink, so a fleet of matcher runs can be compared offline
// (which configs converge, how long Optimize/ICPOptimize/Likelihood calls
// take, how scores trend across a run). Schema migrations are embedded and
// applied through golang-migrate's sqlite driver on Open, alongside
// WAL-mode pragmas and a thin wrapper around *sql.DB.
package telemetry

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/openslam-go/scanmatch/config"
	"github.com/openslam-go/scanmatch/geom"
	"github.com/openslam-go/scanmatch/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Operation names the optimizer call a Run recorded.
type Operation string

const (
	OperationOptimize     Operation = "optimize"
	OperationICPOptimize  Operation = "icp_optimize"
	OperationLikelihood   Operation = "likelihood"
	OperationRegisterScan Operation = "register_scan"
)

// Run is one recorded optimizer call.
type Run struct {
	ID         string
	CreatedAt  time.Time
	SensorID   string
	Operation  Operation
	Iterations int
	Elapsed    time.Duration
	BestScore  float64
	Pose       geom.OrientedPoint
	Config     config.MatcherConfig
}

// Store is a sqlite-backed telemetry sink. The zero value is not usable;
// construct one with Open.
type Store struct {
	db *sql.DB
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("telemetry: applying %q: %w", p, err)
		}
	}
	return nil
}

// Open opens (creating if absent) the sqlite database at path and brings its
// schema up to the latest embedded migration. path may be ":memory:" for an
// ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %q: %w", path, err)
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("telemetry: sub filesystem for migrations: %w", err)
	}
	sourceDriver, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("telemetry: iofs source driver: %w", err)
	}
	dbDriver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("telemetry: sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("telemetry: new migrate instance: %w", err)
	}
	// m.Close() would close the underlying *sql.DB through the sqlite
	// driver's Close(), but Store owns that connection's lifetime.
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("telemetry: migrate up: %w", err)
	} else if err == nil {
		monitoring.Logf("telemetry: applied pending migrations")
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one Run row and returns the generated run ID.
func (s *Store) Record(ctx context.Context, r Run) (string, error) {
	id := uuid.NewString()
	cfgJSON, err := json.Marshal(r.Config)
	if err != nil {
		return "", fmt.Errorf("telemetry: marshal config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, sensor_id, operation, iterations, elapsed_ms, best_score, pose_x, pose_y, pose_theta, config_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		// Fixed-width timestamps, so ORDER BY created_at sorts chronologically.
		id, time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00"), r.SensorID, string(r.Operation),
		r.Iterations, float64(r.Elapsed.Microseconds())/1000.0, r.BestScore,
		r.Pose.X, r.Pose.Y, r.Pose.Theta, string(cfgJSON))
	if err != nil {
		return "", fmt.Errorf("telemetry: insert run: %w", err)
	}
	return id, nil
}

// RunsBySensor returns every recorded run for sensorID, oldest first.
func (s *Store) RunsBySensor(ctx context.Context, sensorID string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, sensor_id, operation, iterations, elapsed_ms, best_score, pose_x, pose_y, pose_theta, config_json
		FROM runs WHERE sensor_id = ? ORDER BY created_at ASC`, sensorID)
	if err != nil {
		return nil, fmt.Errorf("telemetry: query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r          Run
			createdAt  string
			op         string
			elapsedMs  float64
			cfgJSON    string
		)
		if err := rows.Scan(&r.ID, &createdAt, &r.SensorID, &op, &r.Iterations, &elapsedMs,
			&r.BestScore, &r.Pose.X, &r.Pose.Y, &r.Pose.Theta, &cfgJSON); err != nil {
			return nil, fmt.Errorf("telemetry: scan run row: %w", err)
		}
		r.Operation = Operation(op)
		r.Elapsed = time.Duration(elapsedMs * float64(time.Millisecond))
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		if err := json.Unmarshal([]byte(cfgJSON), &r.Config); err != nil {
			return nil, fmt.Errorf("telemetry: unmarshal config for run %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
