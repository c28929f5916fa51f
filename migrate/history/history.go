// Package history persists migration attempts in the _Migration table.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/satishbabariya/lift/datamodel"
	"github.com/satishbabariya/lift/internal/debug"
	"github.com/satishbabariya/lift/migrate/database"
	"github.com/satishbabariya/lift/migrate/dialect"
	"github.com/satishbabariya/lift/migrate/planner"
	"github.com/satishbabariya/lift/migrate/schema"
)

// ErrNotFound is returned when no matching migration record exists.
var ErrNotFound = errors.New("migration not found")

// Status is the lifecycle state of a migration record.
type Status string

const (
	StatusPending         Status = "Pending"
	StatusInProgress      Status = "InProgress"
	StatusSuccess         Status = "Success"
	StatusFailure         Status = "Failure"
	StatusRollingBack     Status = "RollingBack"
	StatusRollbackSuccess Status = "RollbackSuccess"
	StatusRollbackFailure Status = "RollbackFailure"
)

// Record is one migration attempt.
type Record struct {
	Revision       int64              `json:"revision"`
	Name           string             `json:"name"`
	Datamodel      string             `json:"datamodel"`
	Status         Status             `json:"status"`
	Applied        int                `json:"applied"`
	RolledBack     int                `json:"rolledBack"`
	DatamodelSteps []datamodel.Step   `json:"datamodelSteps"`
	Migration      *planner.Migration `json:"databaseMigration"`
	Errors         []string           `json:"errors"`
	StartedAt      time.Time          `json:"startedAt"`
	FinishedAt     *time.Time         `json:"finishedAt,omitempty"`
}

// UpdateParams identify a record by (Name, Revision) and carry its new
// mutable state. An empty NewName keeps the name.
type UpdateParams struct {
	Name       string
	Revision   int64
	NewName    string
	Status     Status
	Applied    int
	RolledBack int
	Errors     []string
	FinishedAt *time.Time
}

// Manager manages migration history
type Manager struct {
	conn       database.Conn
	dialect    dialect.Dialect
	schemaName string
}

// NewManager creates a new migration history manager
func NewManager(conn database.Conn, d dialect.Dialect, schemaName string) *Manager {
	return &Manager{conn: conn, dialect: d, schemaName: schemaName}
}

// Init creates the owning schema, where the database has one, and the
// history table.
func (m *Manager) Init(ctx context.Context) error {
	if m.dialect.Name() != dialect.SQLite && m.schemaName != "" {
		stmt := "CREATE SCHEMA IF NOT EXISTS " + m.dialect.Quote(m.schemaName)
		if _, err := m.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema %s: %w", m.schemaName, err)
		}
	}
	if _, err := m.conn.ExecContext(ctx, m.getMigrationTableSQL()); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}
	return nil
}

// Reset drops the owning schema, or every table on SQLite. It destroys all
// data and is meant for development databases.
func (m *Manager) Reset(ctx context.Context) error {
	debug.Warn("Resetting database", "schema", m.schemaName)
	if m.dialect.Name() != dialect.SQLite {
		stmt := fmt.Sprintf("DROP SCHEMA IF EXISTS %s", m.dialect.Quote(m.schemaName))
		if m.dialect.Name() == dialect.Postgres {
			stmt += " CASCADE"
		}
		if _, err := m.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop schema %s: %w", m.schemaName, err)
		}
		return nil
	}

	tables, err := m.sqliteTables(ctx)
	if err != nil {
		return err
	}
	stmts := []string{"PRAGMA foreign_keys=OFF"}
	for _, t := range tables {
		stmts = append(stmts, "DROP TABLE IF EXISTS "+m.dialect.QualifiedName(m.schemaName, t))
	}
	stmts = append(stmts, "PRAGMA foreign_keys=ON")
	for _, stmt := range stmts {
		if _, err := m.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}
	}
	return nil
}

func (m *Manager) sqliteTables(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT name FROM %s.sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%%'`,
		m.dialect.Quote(m.schemaName))
	rows, err := m.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Last returns the most recent successful migration.
func (m *Manager) Last(ctx context.Context) (*Record, error) {
	query := m.selectSQL(fmt.Sprintf("WHERE status = %s ORDER BY revision DESC LIMIT 1", m.dialect.Placeholder(1)))
	return m.queryOne(ctx, query, string(StatusSuccess))
}

// ByName returns the latest record with the given name.
func (m *Manager) ByName(ctx context.Context, name string) (*Record, error) {
	query := m.selectSQL(fmt.Sprintf("WHERE name = %s ORDER BY revision DESC LIMIT 1", m.dialect.Placeholder(1)))
	return m.queryOne(ctx, query, name)
}

// LoadAll returns every record in revision order.
func (m *Manager) LoadAll(ctx context.Context) ([]Record, error) {
	rows, err := m.conn.QueryContext(ctx, m.selectSQL("ORDER BY revision ASC"))
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// Create inserts r and assigns its revision.
func (m *Manager) Create(ctx context.Context, r *Record) error {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	steps, migration, errs, err := encodeRecord(r)
	if err != nil {
		return err
	}

	placeholders := make([]string, 10)
	for i := range placeholders {
		placeholders[i] = m.dialect.Placeholder(i + 1)
	}
	insert := fmt.Sprintf(`INSERT INTO %s (name, datamodel, status, applied, rolled_back, datamodel_steps, database_migration, errors, started_at, finished_at) VALUES (%s)`,
		m.table(), strings.Join(placeholders, ", "))
	args := []any{r.Name, r.Datamodel, string(r.Status), r.Applied, r.RolledBack, steps, migration, errs, r.StartedAt.UnixMilli(), millis(r.FinishedAt)}

	if m.dialect.Name() == dialect.Postgres {
		if err := m.conn.QueryRowContext(ctx, insert+" RETURNING revision", args...).Scan(&r.Revision); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", r.Name, err)
		}
	} else {
		res, err := m.conn.ExecContext(ctx, insert, args...)
		if err != nil {
			return fmt.Errorf("failed to record migration %s: %w", r.Name, err)
		}
		if r.Revision, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read revision of %s: %w", r.Name, err)
		}
	}

	debug.Debug("Recorded migration", "name", r.Name, "revision", r.Revision, "status", r.Status)
	return nil
}

// Update writes the mutable state of the record identified by
// (p.Name, p.Revision).
func (m *Manager) Update(ctx context.Context, p UpdateParams) error {
	name := p.Name
	if p.NewName != "" {
		name = p.NewName
	}
	errs, err := encodeErrors(p.Errors)
	if err != nil {
		return err
	}

	ph := m.dialect.Placeholder
	update := fmt.Sprintf(`UPDATE %s SET name = %s, status = %s, applied = %s, rolled_back = %s, errors = %s, finished_at = %s WHERE name = %s AND revision = %s`,
		m.table(), ph(1), ph(2), ph(3), ph(4), ph(5), ph(6), ph(7), ph(8))
	res, err := m.conn.ExecContext(ctx, update,
		name, string(p.Status), p.Applied, p.RolledBack, errs, millis(p.FinishedAt), p.Name, p.Revision)
	if err != nil {
		return fmt.Errorf("failed to update migration %s: %w", p.Name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Some drivers count changed rows only, so an update that rewrites
		// the stored values reports zero.
		exists, err := m.exists(ctx, p.Name, p.Revision)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s (revision %d)", ErrNotFound, p.Name, p.Revision)
		}
	}
	return nil
}

func (m *Manager) exists(ctx context.Context, name string, revision int64) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE name = %s AND revision = %s`,
		m.table(), m.dialect.Placeholder(1), m.dialect.Placeholder(2))
	var one int
	err := m.conn.QueryRowContext(ctx, query, name, revision).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up migration %s: %w", name, err)
	}
	return true, nil
}

func (m *Manager) queryOne(ctx context.Context, query string, args ...any) (*Record, error) {
	rows, err := m.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanRecord(rows)
}

func (m *Manager) table() string {
	return m.dialect.QualifiedName(m.schemaName, schema.MigrationTable)
}

func (m *Manager) selectSQL(suffix string) string {
	return fmt.Sprintf(`SELECT revision, name, datamodel, status, applied, rolled_back, datamodel_steps, database_migration, errors, started_at, finished_at FROM %s %s`,
		m.table(), suffix)
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var (
		r                      Record
		status                 string
		steps, migration, errs string
		startedAt              int64
		finishedAt             sql.NullInt64
	)
	err := rows.Scan(&r.Revision, &r.Name, &r.Datamodel, &status, &r.Applied, &r.RolledBack,
		&steps, &migration, &errs, &startedAt, &finishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan migration: %w", err)
	}
	r.Status = Status(status)
	r.StartedAt = time.UnixMilli(startedAt)
	if finishedAt.Valid {
		t := time.UnixMilli(finishedAt.Int64)
		r.FinishedAt = &t
	}
	if err := decodeRecord(&r, steps, migration, errs); err != nil {
		return nil, fmt.Errorf("migration %s (revision %d): %w", r.Name, r.Revision, err)
	}
	return &r, nil
}

func millis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

// getMigrationTableSQL returns SQL to create migration history table
func (m *Manager) getMigrationTableSQL() string {
	switch m.dialect.Name() {
	case dialect.Postgres:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	revision SERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	datamodel TEXT NOT NULL,
	status TEXT NOT NULL,
	applied INTEGER NOT NULL,
	rolled_back INTEGER NOT NULL,
	datamodel_steps TEXT NOT NULL,
	database_migration TEXT NOT NULL,
	errors TEXT NOT NULL,
	started_at BIGINT NOT NULL,
	finished_at BIGINT
)`, m.table())
	case dialect.MySQL:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	revision INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	datamodel LONGTEXT NOT NULL,
	status VARCHAR(32) NOT NULL,
	applied INT NOT NULL,
	rolled_back INT NOT NULL,
	datamodel_steps LONGTEXT NOT NULL,
	database_migration LONGTEXT NOT NULL,
	errors LONGTEXT NOT NULL,
	started_at BIGINT NOT NULL,
	finished_at BIGINT NULL
)`, m.table())
	default:
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	revision INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	datamodel TEXT NOT NULL,
	status TEXT NOT NULL,
	applied INTEGER NOT NULL,
	rolled_back INTEGER NOT NULL,
	datamodel_steps TEXT NOT NULL,
	database_migration TEXT NOT NULL,
	errors TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	finished_at INTEGER
)`, m.table())
	}
}
