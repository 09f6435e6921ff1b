package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no profile exists for a user id.
var ErrNotFound = errors.New("profile not found")

// Store persists profiles in SQLite, one row per user.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at dbPath and runs
// migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS profiles (
		user_id         TEXT PRIMARY KEY,
		income_answer   TEXT NOT NULL DEFAULT '',
		saving_answer   TEXT NOT NULL DEFAULT '',
		risk_answer     TEXT NOT NULL DEFAULT '',
		duration_answer TEXT NOT NULL DEFAULT '',
		income          REAL NOT NULL,
		saving          REAL NOT NULL,
		risk_appetite   TEXT NOT NULL,
		duration_years  INTEGER NOT NULL,
		updated_at      INTEGER NOT NULL DEFAULT (unixepoch())
	)`)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the profile for its user id. The derived fields are
// recomputed before writing so the stored row is always consistent with
// the answers.
func (s *Store) Save(ctx context.Context, p *Profile) error {
	p.Derive()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles
			(user_id, income_answer, saving_answer, risk_answer, duration_answer,
			 income, saving, risk_appetite, duration_years, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, unixepoch())
		ON CONFLICT(user_id) DO UPDATE SET
			income_answer   = excluded.income_answer,
			saving_answer   = excluded.saving_answer,
			risk_answer     = excluded.risk_answer,
			duration_answer = excluded.duration_answer,
			income          = excluded.income,
			saving          = excluded.saving,
			risk_appetite   = excluded.risk_appetite,
			duration_years  = excluded.duration_years,
			updated_at      = unixepoch()`,
		p.UserID, p.IncomeAnswer, p.SavingAnswer, p.RiskAnswer, p.DurationAnswer,
		p.Income, p.Saving, p.RiskAppetite, p.DurationYears)
	return err
}

// Get returns the profile for userID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, userID string) (*Profile, error) {
	p := &Profile{}
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, income_answer, saving_answer, risk_answer, duration_answer,
		       income, saving, risk_appetite, duration_years
		FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.IncomeAnswer, &p.SavingAnswer, &p.RiskAnswer, &p.DurationAnswer,
			&p.Income, &p.Saving, &p.RiskAppetite, &p.DurationYears)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes the profile for userID. Deleting a missing profile is not
// an error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = ?`, userID)
	return err
}
