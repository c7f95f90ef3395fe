package medlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/medlog/visits"
)

// Store wraps a SQLite database and implements visits.Repository.
type Store struct {
	db *sql.DB
}

var _ visits.Repository = (*Store)(nil)

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the analytics readers run alongside writes; busy_timeout makes
	// writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS visits (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    visit_date TEXT NOT NULL,
    doctor_name TEXT NOT NULL,
    reason TEXT NOT NULL,
    diagnosis TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL,
    follow_up_date TEXT NOT NULL DEFAULT '',
    medications TEXT NOT NULL DEFAULT '[]',
    test_results TEXT NOT NULL DEFAULT '[]',
    symptoms TEXT NOT NULL DEFAULT '[]',
    attachments TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS visits_user_date ON visits (user_id, visit_date DESC);
`)
	return err
}

const visitColumns = `id, user_id, visit_date, doctor_name, reason, diagnosis, notes, category,
	follow_up_date, medications, test_results, symptoms, attachments, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisit(row rowScanner) (visits.Visit, error) {
	var (
		v                                  visits.Visit
		category, createdAt                string
		meds, tests, symptoms, attachments string
	)
	if err := row.Scan(&v.ID, &v.UserID, &v.Date, &v.DoctorName, &v.Reason, &v.Diagnosis, &v.Notes,
		&category, &v.FollowUpDate, &meds, &tests, &symptoms, &attachments, &createdAt); err != nil {
		return visits.Visit{}, err
	}
	v.Category = visits.Category(category)
	for _, col := range []struct {
		name string
		raw  string
		dst  any
	}{
		{"medications", meds, &v.Medications},
		{"test_results", tests, &v.TestResults},
		{"symptoms", symptoms, &v.Symptoms},
		{"attachments", attachments, &v.Attachments},
	} {
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return visits.Visit{}, fmt.Errorf("decode %s of visit %s: %w", col.name, v.ID, err)
		}
	}
	if v.Medications == nil {
		v.Medications = []string{}
	}
	if v.TestResults == nil {
		v.TestResults = []string{}
	}
	if v.Symptoms == nil {
		v.Symptoms = []visits.Symptom{}
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		v.CreatedAt = t
	}
	return v, nil
}

// ListVisits returns every visit of userID ordered by visit date descending.
func (s *Store) ListVisits(ctx context.Context, userID string) ([]visits.Visit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE user_id = ? ORDER BY visit_date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []visits.Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetVisit returns a single visit owned by userID.
func (s *Store) GetVisit(ctx context.Context, userID, id string) (visits.Visit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE id = ? AND user_id = ?`, id, userID)
	v, err := scanVisit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return visits.Visit{}, visits.ErrNotFound
	}
	return v, err
}

// SaveVisit upserts a visit. An existing row owned by a different user is
// left untouched and ErrNotFound is returned.
func (s *Store) SaveVisit(ctx context.Context, v visits.Visit) error {
	if v.ID == "" || v.UserID == "" {
		return errors.New("save visit: id and user id are required")
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	cols := make([]string, 4)
	for i, src := range []any{v.Medications, v.TestResults, v.Symptoms, v.Attachments} {
		b, err := json.Marshal(src)
		if err != nil {
			return fmt.Errorf("save visit: %w", err)
		}
		if string(b) == "null" {
			b = []byte("[]")
		}
		cols[i] = string(b)
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO visits (`+visitColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    visit_date = excluded.visit_date,
    doctor_name = excluded.doctor_name,
    reason = excluded.reason,
    diagnosis = excluded.diagnosis,
    notes = excluded.notes,
    category = excluded.category,
    follow_up_date = excluded.follow_up_date,
    medications = excluded.medications,
    test_results = excluded.test_results,
    symptoms = excluded.symptoms,
    attachments = excluded.attachments
WHERE visits.user_id = excluded.user_id`,
		v.ID, v.UserID, v.Date, v.DoctorName, v.Reason, v.Diagnosis, v.Notes, string(v.Category),
		v.FollowUpDate, cols[0], cols[1], cols[2], cols[3], v.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return visits.ErrNotFound
	}
	return nil
}

// DeleteVisit removes a visit owned by userID.
func (s *Store) DeleteVisit(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM visits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return visits.ErrNotFound
	}
	return nil
}
