package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/paperlens/internal/domain/analysis"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns the owner's sessions newest first
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
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Create insert session record dengan id dari server
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
		stored.ID, stored.OwnerID, stringOrDash(stored.DocumentName), stored.CreatedAt,
		stored.Result.Summary, stored.Result.Reasoning, string(assumptions), stored.Result.ValidationCode,
		string(data), stored.Result.ReproducibilityScore, stored.Result.CitationIntegrity, stored.RawTextURL,
	)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// Delete by ID + owner
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

// ClearAll removes every session owned by the caller
func (r *SessionRepository) ClearAll(ctx context.Context, owner string) error {
	const q = `DELETE FROM analysis_sessions WHERE owner_id=?;`
	_, err := r.db.ExecContext(ctx, q, owner)
	return err
}
