package dbsyncclient

import (
	"context"
	"sync"
)

// CredentialSource supplies a fresh bearer token on demand, e.g. by
// re-authenticating against the identity service's token API.
type CredentialSource interface {
	Authenticate(ctx context.Context) (token string, err error)
}

// Session caches one cloud's bearer token and rebuilds it on demand. Two
// long-lived Sessions (master + subcloud) are held per sync thread
// (spec.md §5 "Session caching"); on Unauthorized the affected session is
// discarded and rebuilt exactly once per failing call.
type Session struct {
	mu     sync.Mutex
	source CredentialSource
	token  string
}

// NewSession builds a Session backed by source. The token is fetched
// lazily on first Token() call.
func NewSession(source CredentialSource) *Session {
	return &Session{source: source}
}

// Token returns the cached bearer token, authenticating on first use.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}
	tok, err := s.source.Authenticate(ctx)
	if err != nil {
		return "", err
	}
	s.token = tok
	return s.token, nil
}

// Reinitialize discards the cached token and re-authenticates, per the
// retry-on-401 contract of spec.md §4.4 step 4.
func (s *Session) Reinitialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, err := s.source.Authenticate(ctx)
	if err != nil {
		s.token = ""
		return err
	}
	s.token = tok
	return nil
}

// Invalidate drops the cached token without re-authenticating, used after
// a users.update on "admin" whose password may have changed under us
// (spec.md §4.4 users.update).
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// PairedSessions reinitializes a sync thread's master and subcloud
// sessions together, implementing syncthread.Sessions (spec.md §5:
// "refresh the session used for both master and subcloud clients").
type PairedSessions struct {
	Master   *Session
	Subcloud *Session
}

// Reinitialize re-authenticates both sessions, returning the first error
// encountered after attempting both.
func (p PairedSessions) Reinitialize(ctx context.Context) error {
	errMaster := p.Master.Reinitialize(ctx)
	errSubcloud := p.Subcloud.Reinitialize(ctx)
	if errMaster != nil {
		return errMaster
	}
	return errSubcloud
}
