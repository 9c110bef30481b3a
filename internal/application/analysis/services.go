package analysis

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/paperlens/internal/application"
	"github.com/bryanwahyu/paperlens/internal/application/authstate"
	domain "github.com/bryanwahyu/paperlens/internal/domain/analysis"
)

// State of the orchestrator.
type State string

const (
	StateBooting         State = "booting"
	StateUnauthenticated State = "unauthenticated"
	StateReady           State = "ready"
	StateError           State = "error"
)

// CriticFactory builds a critique pipeline for one request.
type CriticFactory func(provider, apiKey, endpoint, model string) (domain.Critic, error)

// Service implements the orchestration use-cases: startup recovery,
// auth-state-driven refresh and request sequencing. Exactly one analysis may
// be in flight at a time; the gate lives here, not in the repository or the
// normalizer.
type Service struct {
	Remote         domain.SessionRepository // nil when no remote backend is configured
	Local          domain.SessionRepository
	Artifacts      domain.ArtifactStore // optional
	NewCritic      CriticFactory
	Clock          application.Clock
	RestoreTimeout time.Duration

	inFlight atomic.Bool

	mu       sync.Mutex
	state    State
	owner    string // authenticated identity, "" when anonymous
	degraded bool   // a remote write failed; stay on the local backend
	history  []*domain.Session
}

// AnalyzeCommand carries one analysis request.
type AnalyzeCommand struct {
	OwnerID      string
	DocumentName string
	DocumentText string
	Temperature  float32
	Provider     string
	Model        string
	APIKey       string
	Endpoint     string
	KeepRawText  bool
}

// State returns the current orchestrator state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a copy of the in-memory ordered session snapshot.
func (s *Service) History() []*domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Session, len(s.history))
	copy(out, s.history)
	return out
}

// Restore runs the boot path: race the remote history fetch against a fixed
// timeout so an unreachable remote never blocks startup, then fall back to
// the local cache.
func (s *Service) Restore(ctx context.Context, cachedOwner string) {
	s.mu.Lock()
	s.state = StateBooting
	s.mu.Unlock()

	if s.Remote != nil && cachedOwner != "" {
		type fetch struct {
			sessions []*domain.Session
			err      error
		}
		ch := make(chan fetch, 1)
		go func() {
			sessions, err := s.Remote.List(ctx, cachedOwner)
			ch <- fetch{sessions, err}
		}()

		select {
		case f := <-ch:
			if f.err != nil {
				// remote read failure: empty view, never local substitution
				log.Printf("restore: remote history fetch failed: %v", f.err)
				s.setSession(cachedOwner, nil, StateReady)
				return
			}
			s.setSession(cachedOwner, f.sessions, StateReady)
			return
		case <-time.After(s.RestoreTimeout):
			log.Printf("restore: remote fetch timed out after %s, using local cache", s.RestoreTimeout)
		}
	}

	sessions, err := s.Local.List(ctx, domain.LocalOwner)
	if err != nil {
		log.Printf("restore: local cache read failed: %v", err)
		s.setSession("", nil, StateError)
		return
	}
	s.setSession("", sessions, StateUnauthenticated)
}

func (s *Service) setSession(owner string, history []*domain.Session, state State) {
	s.mu.Lock()
	s.owner = owner
	s.history = history
	s.state = state
	s.degraded = false
	s.mu.Unlock()
}

// OnAuthChange is subscribed to the auth-state notifier: every identity
// transition triggers a full history refresh, and sign-out clears every
// cached identity-scoped artifact.
func (s *Service) OnAuthChange(ctx context.Context, c authstate.Change) {
	switch c.Event {
	case authstate.SignedOut:
		s.setSession("", nil, StateUnauthenticated)
	case authstate.SignedIn, authstate.Recovered:
		s.mu.Lock()
		s.owner = c.OwnerID
		s.degraded = false
		s.mu.Unlock()
		s.refresh(ctx)
	}
}

// refresh reloads the snapshot from the active backend.
func (s *Service) refresh(ctx context.Context) {
	s.mu.Lock()
	owner := s.owner
	repo, storeOwner := s.activeRepoLocked(owner)
	s.mu.Unlock()

	if repo == nil {
		s.setSession(owner, nil, StateError)
		return
	}
	sessions, err := repo.List(ctx, storeOwner)
	if err != nil {
		// degraded view is empty, not silently local
		log.Printf("history refresh failed: %v", err)
		sessions = nil
	}
	s.mu.Lock()
	s.history = sessions
	s.state = StateReady
	s.mu.Unlock()
}

// activeRepoLocked selects the backend per identity/availability state.
func (s *Service) activeRepoLocked(owner string) (domain.SessionRepository, string) {
	if owner != "" && owner != domain.LocalOwner {
		if s.Remote == nil || s.degraded {
			if s.degraded {
				return s.Local, owner
			}
			return nil, ""
		}
		return s.Remote, owner
	}
	return s.Local, domain.LocalOwner
}

// Analyze runs one submission: critique, persist, update the visible
// history. A second submission while one is pending is rejected here.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*domain.Session, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, domain.ErrAnalysisBusy
	}
	defer s.inFlight.Store(false)

	if cmd.Temperature < 0 || cmd.Temperature > 1 {
		return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("temperature %.2f outside [0,1]", cmd.Temperature)}
	}
	if cmd.DocumentText == "" {
		return nil, &domain.ConfigurationError{Reason: "document text is empty"}
	}

	critic, err := s.NewCritic(cmd.Provider, cmd.APIKey, cmd.Endpoint, cmd.Model)
	if err != nil {
		return nil, err
	}

	// transport → normalization → persistence, strictly in that order
	result, err := critic.Critique(ctx, cmd.DocumentText, cmd.Temperature)
	if err != nil {
		return nil, err
	}

	sess := &domain.Session{
		OwnerID:      cmd.OwnerID,
		DocumentName: cmd.DocumentName,
		CreatedAt:    s.Clock.Now(),
		Result:       *result,
	}
	if cmd.KeepRawText && s.Artifacts != nil {
		key := fmt.Sprintf("%s/%d-%s.txt", ownerOrLocal(cmd.OwnerID), sess.CreatedAt.UnixNano(), cmd.DocumentName)
		if url, err := s.Artifacts.PutText(ctx, key, cmd.DocumentText); err != nil {
			log.Printf("raw text archive failed: %v", err)
		} else {
			sess.RawTextURL = url
		}
	}

	stored, err := s.persist(ctx, sess)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.history = append([]*domain.Session{stored}, s.history...)
	s.mu.Unlock()
	return stored, nil
}

// persist writes to the remote store when available, falling back to a local
// write with a locally generated identifier on remote failure. The fallback
// is visible to the caller via StoredLocally, and the service stays on the
// local backend afterwards so one view never mixes the two stores.
func (s *Service) persist(ctx context.Context, sess *domain.Session) (*domain.Session, error) {
	s.mu.Lock()
	owner := sess.OwnerID
	remote := s.Remote
	degraded := s.degraded
	s.mu.Unlock()

	if remote != nil && owner != "" && owner != domain.LocalOwner && !degraded {
		stored, err := remote.Create(ctx, sess)
		if err == nil {
			return stored, nil
		}
		log.Printf("remote create failed, falling back to local cache: %v", err)
		s.mu.Lock()
		s.degraded = true
		s.mu.Unlock()
	}

	local := *sess
	local.ID = "" // local store generates its own identifier
	stored, err := s.Local.Create(ctx, &local)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// CreateSession stores an externally produced session (an import, or a
// result carried over from another device) through the same fallback path
// as Analyze.
func (s *Service) CreateSession(ctx context.Context, owner string, sess *domain.Session) (*domain.Session, error) {
	sess.OwnerID = owner
	sess.ID = ""
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.Clock.Now()
	}
	stored, err := s.persist(ctx, sess)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if owner == s.owner {
		s.history = append([]*domain.Session{stored}, s.history...)
	}
	s.mu.Unlock()
	return stored, nil
}

// Sessions refreshes and returns the owner's history, newest first.
func (s *Service) Sessions(ctx context.Context, owner string) ([]*domain.Session, error) {
	s.mu.Lock()
	repo, storeOwner := s.activeRepoLocked(owner)
	s.mu.Unlock()

	if repo == nil {
		return nil, &domain.NotConfiguredError{Backend: "remote"}
	}
	sessions, err := repo.List(ctx, storeOwner)
	if err != nil {
		// remote read failure yields an empty set, never local data
		log.Printf("session list failed for owner=%s: %v", owner, err)
		return []*domain.Session{}, nil
	}
	s.mu.Lock()
	if owner == s.owner {
		s.history = sessions
	}
	s.mu.Unlock()
	if sessions == nil {
		sessions = []*domain.Session{}
	}
	return sessions, nil
}

// Delete removes one session: the snapshot is updated immediately, then the
// mutation is mirrored to the active backend.
func (s *Service) Delete(ctx context.Context, owner string, id domain.SessionID) error {
	s.mu.Lock()
	repo, storeOwner := s.activeRepoLocked(owner)
	if repo != nil {
		for i, sess := range s.history {
			if sess.ID == id {
				s.history = append(s.history[:i:i], s.history[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	if repo == nil {
		return &domain.NotConfiguredError{Backend: "remote"}
	}
	return repo.Delete(ctx, storeOwner, id)
}

// ClearAll removes the owner's entire history. The confirm flag must be
// checked by the caller before this point (ErrConfirmRequired).
func (s *Service) ClearAll(ctx context.Context, owner string, confirm bool) error {
	if !confirm {
		return domain.ErrConfirmRequired
	}
	s.mu.Lock()
	repo, storeOwner := s.activeRepoLocked(owner)
	if repo != nil && owner == s.owner {
		s.history = nil
	}
	s.mu.Unlock()

	if repo == nil {
		return &domain.NotConfiguredError{Backend: "remote"}
	}
	return repo.ClearAll(ctx, storeOwner)
}

func ownerOrLocal(owner string) string {
	if owner == "" {
		return domain.LocalOwner
	}
	return owner
}
