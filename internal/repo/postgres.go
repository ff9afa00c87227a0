package repo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"donationBoard/internal/model"
)

// DB is the part of *sql.DB the Postgres store needs. dbpg.DB.Master satisfies it.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	PingContext(ctx context.Context) error
}

type PostgresStore struct {
	db  DB
	log *zerolog.Logger
}

func NewPostgresStore(db DB, log *zerolog.Logger) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &PostgresStore{db: db, log: log}, nil
}

func (r *PostgresStore) MigrateUp(migrationsDir string) error {
	return r.runMigrations(migrationsDir, "*.up.sql", false)
}

func (r *PostgresStore) MigrateDown(migrationsDir string) error {
	return r.runMigrations(migrationsDir, "*.down.sql", true)
}

func (r *PostgresStore) runMigrations(dir, pattern string, reverse bool) error {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations %s applied from %s", pattern, dir)
	return nil
}

func (r *PostgresStore) Load(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, nome, meta, arrecadado, admin
		FROM events
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	index := make(map[string]int)
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Goal, &e.Raised, &e.Admin); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Donations = []model.Donation{}
		index[e.ID] = len(events)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	drows, err := r.db.QueryContext(ctx, `
		SELECT event_id, valor, tipo
		FROM donations
		ORDER BY event_id, position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get donations: %w", err)
	}
	defer drows.Close()

	for drows.Next() {
		var eventID string
		var d model.Donation
		if err := drows.Scan(&eventID, &d.Amount, &d.Method); err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		i, ok := index[eventID]
		if !ok {
			continue
		}
		events[i].Donations = append(events[i].Donations, d)
	}
	if err := drows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate donations: %w", err)
	}

	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

func (r *PostgresStore) Persist(ctx context.Context, events []model.Event) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM donations`); err != nil {
			return fmt.Errorf("failed to clear donations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
			return fmt.Errorf("failed to clear events: %w", err)
		}
		for _, e := range events {
			if err := insertEvent(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresStore) Create(ctx context.Context, e model.Event) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return insertEvent(ctx, tx, e)
	})
}

func (r *PostgresStore) Update(ctx context.Context, e model.Event) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE events
			SET nome = $1, meta = $2, arrecadado = $3, admin = $4, updated_at = NOW()
			WHERE id = $5
		`, e.Name, e.Goal, e.Raised, e.Admin, e.ID)
		if err != nil {
			return fmt.Errorf("failed to update event: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrEventNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM donations WHERE event_id = $1`, e.ID); err != nil {
			return fmt.Errorf("failed to clear donations of %s: %w", e.ID, err)
		}
		return insertDonations(ctx, tx, e)
	})
}

func (r *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *PostgresStore) Close() error { return nil }

func (r *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, e model.Event) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO events (id, nome, meta, arrecadado, admin)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID, e.Name, e.Goal, e.Raised, e.Admin); err != nil {
		return fmt.Errorf("failed to insert event %s: %w", e.ID, err)
	}
	return insertDonations(ctx, tx, e)
}

func insertDonations(ctx context.Context, tx *sql.Tx, e model.Event) error {
	for i, d := range e.Donations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO donations (event_id, position, valor, tipo)
			VALUES ($1, $2, $3, $4)
		`, e.ID, i, d.Amount, string(d.Method)); err != nil {
			return fmt.Errorf("failed to insert donation of %s: %w", e.ID, err)
		}
	}
	return nil
}
