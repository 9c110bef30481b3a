package analysis

import "context"

// SessionRepository port (interface untuk persistence). Every operation is
// scoped to the given owner; the implementations enforce the filter in the
// storage layer itself, not in calling code.
type SessionRepository interface {
	// List returns the owner's sessions ordered newest first.
	List(ctx context.Context, owner string) ([]*Session, error)
	// Create stores a session and returns it with its assigned identifier.
	Create(ctx context.Context, s *Session) (*Session, error)
	Delete(ctx context.Context, owner string, id SessionID) error
	ClearAll(ctx context.Context, owner string) error
}

// CompletionRequest carries one prompt to a provider backend.
type CompletionRequest struct {
	SystemPrompt string
	Prompt       string
	Model        string
	Temperature  float32
}

// CompletionClient port: executes one provider call and returns the raw,
// untrusted response text. One implementation per wire protocol.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Critic port: runs one full critique cycle (prompt, provider call,
// normalization) and returns a strict Result or an error from the taxonomy.
type Critic interface {
	Critique(ctx context.Context, documentText string, temperature float32) (*Result, error)
}

// TextExtractor port (external collaborator): given a file, returns extracted
// text or fails. Extraction itself is out of scope here.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// ArtifactStore port (interface untuk penyimpanan artefak): archives the raw
// extracted document text and returns a retrieval URL.
type ArtifactStore interface {
	PutText(ctx context.Context, key, text string) (string, error)
}
