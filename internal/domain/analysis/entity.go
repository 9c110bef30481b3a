package analysis

import "time"

// SessionID identifier type
type SessionID string

// LocalOwner is the owner key used by the local fallback store when no
// authenticated identity is present.
const LocalOwner = "local"

// Defaults applied by the normalizer when the model omits or mangles a field.
const (
	DefaultReproducibilityScore = 75
	DefaultCitationIntegrity    = "Unknown"
	MaxAssumptions              = 3
)

// Point is one simulation sample as emitted by the model. Order is preserved,
// never re-sorted.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Result is the strict, typed outcome of one critique request. It is produced
// once by the normalizer and never mutated afterwards.
type Result struct {
	Summary              string   `json:"summary"`
	Reasoning            string   `json:"reasoning,omitempty"`
	Assumptions          []string `json:"assumptions"`
	ValidationCode       string   `json:"validation_code,omitempty"`
	SimulationData       []Point  `json:"simulation_data"`
	ReproducibilityScore int      `json:"reproducibility_score"`
	CitationIntegrity    string   `json:"citation_integrity"`
}

// Session is one persisted analysis outcome tied to a source document.
// Immutable once created; destroyed only by explicit delete/clear.
type Session struct {
	ID           SessionID `json:"id"`
	OwnerID      string    `json:"owner_id,omitempty"`
	DocumentName string    `json:"document_name"`
	CreatedAt    time.Time `json:"created_at"`
	Result       Result    `json:"result"`
	RawTextURL   string    `json:"raw_text_url,omitempty"`

	// StoredLocally flags a session that fell back to the local cache after a
	// remote write failure. Transient, not a stored column.
	StoredLocally bool `json:"stored_locally,omitempty"`
}
