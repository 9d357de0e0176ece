package auth

import (
	"sync"
	"time"
)

type revocationEntry struct {
	ExpiresAt time.Time
	SessionID string
}

// TokenRevocationStore remembers session tokens that were ended before
// they expired. Entries are dropped once the token would have expired
// anyway.
type TokenRevocationStore struct {
	mu         sync.RWMutex
	entries    map[string]revocationEntry // JTI -> entry
	sessionIDs map[string][]string        // session id -> []JTI
	now        func() time.Time
	done       chan struct{}
}

// NewTokenRevocationStore creates a store and starts a goroutine that
// purges expired entries every interval.
func NewTokenRevocationStore(interval time.Duration) *TokenRevocationStore {
	s := &TokenRevocationStore{
		entries:    make(map[string]revocationEntry),
		sessionIDs: make(map[string][]string),
		now:        time.Now,
		done:       make(chan struct{}),
	}
	if interval > 0 {
		go s.cleanupLoop(interval)
	}
	return s
}

// Revoke marks the token as unusable. A zero expiresAt keeps the entry
// until the process exits.
func (s *TokenRevocationStore) Revoke(claims *Claims) {
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[claims.ID] = revocationEntry{ExpiresAt: exp, SessionID: claims.Subject}
	if claims.Subject != "" {
		s.sessionIDs[claims.Subject] = append(s.sessionIDs[claims.Subject], claims.ID)
	}
}

// IsRevoked checks if a token JTI has been revoked.
func (s *TokenRevocationStore) IsRevoked(jti string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[jti]
	return ok
}

// RevokedForSession returns how many tokens of a session are revoked.
func (s *TokenRevocationStore) RevokedForSession(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessionIDs[sessionID])
}

// Count returns the number of currently revoked tokens.
func (s *TokenRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *TokenRevocationStore) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *TokenRevocationStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *TokenRevocationStore) cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, entry := range s.entries {
		if entry.ExpiresAt.IsZero() || !now.After(entry.ExpiresAt) {
			continue
		}
		delete(s.entries, jti)

		if sid := entry.SessionID; sid != "" {
			jtis := s.sessionIDs[sid]
			for i, id := range jtis {
				if id == jti {
					s.sessionIDs[sid] = append(jtis[:i], jtis[i+1:]...)
					break
				}
			}
			if len(s.sessionIDs[sid]) == 0 {
				delete(s.sessionIDs, sid)
			}
		}
	}
}
