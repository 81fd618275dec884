package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// Versions applied so far are recorded in schema_migrations. Each migration
// runs in its own transaction together with its bookkeeping row.
// ══════════════════════════════════════════════════════════════════════════════

const migrationsTable = "schema_migrations"

// Migration is one embedded schema step. AppliedAt is set by Status.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// GetMigrations returns the embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_accounts", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_internships", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_applications", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

type Migrator struct {
	conn       *Connection
	migrations []Migration
}

func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{conn: conn, migrations: GetMigrations()}
}

// applied creates the bookkeeping table when needed and returns when each
// recorded version was applied.
func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	if _, err := m.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return nil, fmt.Errorf("create %s: %w", migrationsTable, err)
	}

	rows, err := m.conn.Query(ctx, `SELECT version, applied_at FROM `+migrationsTable)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", migrationsTable, err)
	}
	defer rows.Close()

	out := make(map[int]time.Time)
	for rows.Next() {
		var (
			version int
			at      time.Time
		)
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scan %s: %w", migrationsTable, err)
		}
		out[version] = at
	}
	return out, rows.Err()
}

// step runs sql and the bookkeeping statement in one transaction.
func (m *Migrator) step(ctx context.Context, version int, sql, record string, args ...any) error {
	err := m.conn.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, sql); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, record, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, version, err)
	}
	return nil
}

// Migrate applies every pending migration and returns their versions.
func (m *Migrator) Migrate(ctx context.Context) ([]int, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var done []int
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		err := m.step(ctx, mig.Version, mig.UpSQL,
			`INSERT INTO `+migrationsTable+` (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
		if err != nil {
			return done, err
		}
		done = append(done, mig.Version)
	}
	return done, nil
}

// Rollback reverts the newest applied migration and returns its version, or
// zero when nothing is applied.
func (m *Migrator) Rollback(ctx context.Context) (int, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		mig := m.migrations[i]
		if _, ok := applied[mig.Version]; !ok {
			continue
		}
		err := m.step(ctx, mig.Version, mig.DownSQL,
			`DELETE FROM `+migrationsTable+` WHERE version = $1`, mig.Version)
		if err != nil {
			return 0, err
		}
		return mig.Version, nil
	}
	return 0, nil
}

// Status lists every embedded migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	out := append([]Migration(nil), m.migrations...)
	for i := range out {
		out[i].AppliedAt, out[i].IsApplied = applied[out[i].Version]
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: COMPANIES AND USERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Companies are keyed by their lower-cased, trimmed name
CREATE TABLE IF NOT EXISTS companies (
    key VARCHAR(200) PRIMARY KEY,
    name VARCHAR(200) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Users are a tagged union on role; the profile columns of other roles stay NULL
CREATE TABLE IF NOT EXISTS users (
    id VARCHAR(200) PRIMARY KEY,
    login_id VARCHAR(200) NOT NULL,
    name VARCHAR(200) NOT NULL DEFAULT '',
    email VARCHAR(200) NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    logged_in BOOLEAN NOT NULL DEFAULT FALSE,
    role VARCHAR(20) NOT NULL CHECK (role IN ('student', 'staff', 'representative')),

    year_of_study INTEGER,
    major VARCHAR(100),
    department VARCHAR(200),
    company_key VARCHAR(200) REFERENCES companies(key),
    company_name VARCHAR(200),
    position VARCHAR(200),
    approved BOOLEAN,

    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT users_student_profile CHECK (role <> 'student' OR year_of_study >= 1),
    CONSTRAINT users_representative_profile CHECK (role <> 'representative' OR company_name IS NOT NULL)
);

CREATE UNIQUE INDEX IF NOT EXISTS users_login_id_key ON users (login_id);
CREATE INDEX IF NOT EXISTS idx_users_role ON users (role);
`

const migration001Down = `
DROP TABLE IF EXISTS users;
DROP TABLE IF EXISTS companies;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: INTERNSHIPS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS internships (
    id VARCHAR(64) PRIMARY KEY,
    title VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    level VARCHAR(20) NOT NULL CHECK (level IN ('BASIC', 'INTERMEDIATE', 'ADVANCED')),
    major VARCHAR(100) NOT NULL,
    open_date DATE NOT NULL,
    close_date DATE NOT NULL,
    status VARCHAR(20) NOT NULL CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED', 'FILLED')),
    representative_id VARCHAR(200) NOT NULL REFERENCES users(id),
    company_name VARCHAR(200) NOT NULL,
    max_slots INTEGER NOT NULL CHECK (max_slots >= 1),
    confirmed_slots INTEGER NOT NULL DEFAULT 0 CHECK (confirmed_slots >= 0),
    visible BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT internships_window CHECK (close_date >= open_date),
    CONSTRAINT internships_capacity CHECK (confirmed_slots <= max_slots),
    CONSTRAINT internships_filled CHECK ((status = 'FILLED') = (confirmed_slots = max_slots) OR status IN ('PENDING', 'REJECTED'))
);

CREATE INDEX IF NOT EXISTS idx_internships_status ON internships (status);
CREATE INDEX IF NOT EXISTS idx_internships_representative ON internships (lower(representative_id));
CREATE INDEX IF NOT EXISTS idx_internships_company ON internships (lower(company_name));
CREATE INDEX IF NOT EXISTS idx_internships_title ON internships (title, id);
`

const migration002Down = `
DROP TABLE IF EXISTS internships;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: APPLICATIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS applications (
    id VARCHAR(64) PRIMARY KEY,
    student_id VARCHAR(200) NOT NULL REFERENCES users(id),
    internship_id VARCHAR(64) NOT NULL REFERENCES internships(id) ON DELETE CASCADE,
    status VARCHAR(20) NOT NULL CHECK (status IN ('PENDING', 'SUCCESSFUL', 'UNSUCCESSFUL', 'WITHDRAWN')),
    student_accepted BOOLEAN NOT NULL DEFAULT FALSE,
    withdrawal_requested BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT applications_student_internship_key UNIQUE (student_id, internship_id)
);

-- At most one accepted placement per student, ever
CREATE UNIQUE INDEX IF NOT EXISTS applications_one_accepted_key
    ON applications (student_id) WHERE student_accepted;

CREATE INDEX IF NOT EXISTS idx_applications_internship ON applications (internship_id);
CREATE INDEX IF NOT EXISTS idx_applications_withdrawal
    ON applications (created_at) WHERE withdrawal_requested;
`

const migration003Down = `
DROP TABLE IF EXISTS applications;
`
