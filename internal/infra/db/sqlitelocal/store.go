package sqlitelocal

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	domain "github.com/bryanwahyu/paperlens/internal/domain/analysis"
)

// SessionRepository is the durable local fallback cache. Ids are generated
// locally; rows are keyed by the anonymous owner unless a cached identity is
// present.
type SessionRepository struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS analysis_sessions (
  id                    TEXT PRIMARY KEY,
  owner_id              TEXT NOT NULL,
  document_name         TEXT NOT NULL,
  created_at            TIMESTAMP NOT NULL,
  summary               TEXT NOT NULL DEFAULT '',
  reasoning             TEXT NOT NULL DEFAULT '',
  assumptions_json      TEXT NOT NULL DEFAULT '[]',
  validation_code       TEXT NOT NULL DEFAULT '',
  simulation_data_json  TEXT NOT NULL DEFAULT '[]',
  reproducibility_score INTEGER NOT NULL DEFAULT 75,
  citation_integrity    TEXT NOT NULL DEFAULT 'Unknown',
  raw_text_url          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sessions_owner_created
  ON analysis_sessions (owner_id, created_at DESC);`

// Open opens (and bootstraps) the local cache file.
func Open(ctx context.Context, path string) (*SessionRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// local cache is accessed from one process only
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SessionRepository{db: db}, nil
}

func (r *SessionRepository) Close() error { return r.db.Close() }

func (r *SessionRepository) List(ctx context.Context, owner string) ([]*domain.Session, error) {
	const q = `
SELECT id, owner_id, document_name, created_at,
       summary, reasoning, assumptions_json, validation_code,
       simulation_data_json, reproducibility_score, citation_integrity, raw_text_url
FROM analysis_sessions
WHERE owner_id=?
ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		var s domain.Session
		var assumptions, data string
		if err := rows.Scan(
			&s.ID, &s.OwnerID, &s.DocumentName, &s.CreatedAt,
			&s.Result.Summary, &s.Result.Reasoning, &assumptions, &s.Result.ValidationCode,
			&data, &s.Result.ReproducibilityScore, &s.Result.CitationIntegrity, &s.RawTextURL,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(assumptions), &s.Result.Assumptions); err != nil {
			s.Result.Assumptions = []string{}
		}
		if err := json.Unmarshal([]byte(data), &s.Result.SimulationData); err != nil {
			s.Result.SimulationData = []domain.Point{}
		}
		s.StoredLocally = true
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Create appends an entry with a locally generated identifier.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	const q = `
INSERT INTO analysis_sessions
(id, owner_id, document_name, created_at,
 summary, reasoning, assumptions_json, validation_code,
 simulation_data_json, reproducibility_score, citation_integrity, raw_text_url)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?);`

	stored := *s
	if stored.ID == "" {
		stored.ID = domain.SessionID(uuid.New().String())
	}
	if stored.OwnerID == "" {
		stored.OwnerID = domain.LocalOwner
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if stored.Result.Assumptions == nil {
		stored.Result.Assumptions = []string{}
	}
	if stored.Result.SimulationData == nil {
		stored.Result.SimulationData = []domain.Point{}
	}
	assumptions, err := json.Marshal(stored.Result.Assumptions)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(stored.Result.SimulationData)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, q,
		stored.ID, stored.OwnerID, stored.DocumentName, stored.CreatedAt,
		stored.Result.Summary, stored.Result.Reasoning, string(assumptions), stored.Result.ValidationCode,
		string(data), stored.Result.ReproducibilityScore, stored.Result.CitationIntegrity, stored.RawTextURL,
	)
	if err != nil {
		return nil, err
	}
	stored.StoredLocally = true
	return &stored, nil
}

func (r *SessionRepository) Delete(ctx context.Context, owner string, id domain.SessionID) error {
	const q = `DELETE FROM analysis_sessions WHERE owner_id=? AND id=?;`
	res, err := r.db.ExecContext(ctx, q, owner, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SessionRepository) ClearAll(ctx context.Context, owner string) error {
	const q = `DELETE FROM analysis_sessions WHERE owner_id=?;`
	_, err := r.db.ExecContext(ctx, q, owner)
	return err
}
