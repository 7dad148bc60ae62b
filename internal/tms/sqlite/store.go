// Package sqlite keeps test cases in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"tmssync/internal/config"
	"tmssync/internal/tms"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema versions:
// 1 - test_cases and test_steps
const currentSchemaVersion = 1

func init() {
	tms.Register(tms.Backend{
		Name:        config.BackendSQLite,
		Description: "SQLite catalog at --tms-db (created on first use).",
		New: func(_ context.Context, cfg config.TMS, _ tms.Options) (tms.Client, error) {
			return Open(cfg.Database)
		},
	})
}

// Store is a tms.Client over a SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ tms.Client = (*Store)(nil)

// Open creates or opens the database at path and applies the schema.
//
// The database runs in WAL mode with foreign keys on and a single connection;
// SQLite allows one writer at a time.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// connectionPragmas are applied by the driver to every connection it opens, so they
// survive the pool replacing its connection.
var connectionPragmas = []string{
	"_journal_mode=WAL",
	"_synchronous=NORMAL",
	"_busy_timeout=5000",
	"_foreign_keys=on",
}

func dsn(path string) string {
	return path + "?" + strings.Join(connectionPragmas, "&")
}

func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

func (s *Store) FindByName(ctx context.Context, name string) (*tms.Entity, error) {
	var (
		id   int64
		desc string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, description FROM test_cases WHERE name = ?`, name,
	).Scan(&id, &desc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tms.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", name, err)
	}

	steps, err := s.steps(ctx, id)
	if err != nil {
		return nil, err
	}
	return &tms.Entity{
		ID:   strconv.FormatInt(id, 10),
		Case: tms.Case{Name: name, Description: desc, Steps: steps},
	}, nil
}

func (s *Store) steps(ctx context.Context, caseID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text FROM test_steps WHERE case_id = ? ORDER BY position`, caseID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var steps []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, text)
	}
	return steps, rows.Err()
}

func (s *Store) Create(ctx context.Context, c tms.Case) (*tms.Entity, error) {
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := s.now().UnixMilli()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO test_cases (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			c.Name, c.Description, now, now)
		if err != nil {
			return fmt.Errorf("insert case %q: %w", c.Name, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return insertSteps(ctx, tx, id, c.Steps)
	})
	if err != nil {
		return nil, err
	}
	return &tms.Entity{ID: strconv.FormatInt(id, 10), Case: c}, nil
}

func (s *Store) Update(ctx context.Context, e tms.Entity, c tms.Case) error {
	id, err := strconv.ParseInt(e.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid case id %q", e.ID)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE test_cases SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
			c.Name, c.Description, s.now().UnixMilli(), id)
		if err != nil {
			return fmt.Errorf("update case %s: %w", e.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("update case %s: %w", e.ID, tms.ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM test_steps WHERE case_id = ?`, id); err != nil {
			return fmt.Errorf("clear steps of %s: %w", e.ID, err)
		}
		return insertSteps(ctx, tx, id, c.Steps)
	})
}

func insertSteps(ctx context.Context, tx *sql.Tx, caseID int64, steps []string) error {
	for i, text := range steps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO test_steps (case_id, position, text) VALUES (?, ?, ?)`,
			caseID, i, text); err != nil {
			return fmt.Errorf("insert step %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
