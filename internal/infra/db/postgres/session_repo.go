package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/paperlens/internal/domain/analysis"
)

type SessionRepository struct{ db *sql.DB }

func NewSessionRepository(db *sql.DB) *SessionRepository { return &SessionRepository{db: db} }

// List returns the owner's sessions newest first. The owner filter lives in
// the SQL itself; a caller can never widen it.
func (r *SessionRepository) List(ctx context.Context, owner string) ([]*domain.Session, error) {
	const q = `
SELECT id, owner_id, document_name, created_at,
       summary, reasoning, assumptions_json, validation_code,
       simulation_data_json, reproducibility_score, citation_integrity, raw_text_url
FROM analysis_sessions
WHERE owner_id=$1
ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create stores a session for its owner, assigning the identifier server-side.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	const q = `
INSERT INTO analysis_sessions
(id, owner_id, document_name, created_at,
 summary, reasoning, assumptions_json, validation_code,
 simulation_data_json, reproducibility_score, citation_integrity, raw_text_url)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`

	stored := *s
	if stored.ID == "" {
		stored.ID = domain.SessionID(uuid.New().String())
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	assumptions, data, err := marshalArrays(&stored)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, q,
		stored.ID, stored.OwnerID, stored.DocumentName, stored.CreatedAt,
		stored.Result.Summary, stored.Result.Reasoning, assumptions, stored.Result.ValidationCode,
		data, stored.Result.ReproducibilityScore, stored.Result.CitationIntegrity, stored.RawTextURL,
	)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// Delete removes one session. A row belonging to a different owner is
// indistinguishable from a missing one.
func (r *SessionRepository) Delete(ctx context.Context, owner string, id domain.SessionID) error {
	const q = `DELETE FROM analysis_sessions WHERE owner_id=$1 AND id=$2;`
	res, err := r.db.ExecContext(ctx, q, owner, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClearAll removes every session owned by the caller.
func (r *SessionRepository) ClearAll(ctx context.Context, owner string) error {
	const q = `DELETE FROM analysis_sessions WHERE owner_id=$1;`
	_, err := r.db.ExecContext(ctx, q, owner)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var assumptions, data string
	if err := row.Scan(
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
	return &s, nil
}

func marshalArrays(s *domain.Session) (string, string, error) {
	if s.Result.Assumptions == nil {
		s.Result.Assumptions = []string{}
	}
	if s.Result.SimulationData == nil {
		s.Result.SimulationData = []domain.Point{}
	}
	assumptions, err := json.Marshal(s.Result.Assumptions)
	if err != nil {
		return "", "", err
	}
	data, err := json.Marshal(s.Result.SimulationData)
	if err != nil {
		return "", "", err
	}
	return string(assumptions), string(data), nil
}
