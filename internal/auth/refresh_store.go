package auth

import (
	"crypto/subtle"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// RefreshStore keeps a single live refresh token per user id.
type RefreshStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func NewRefreshStore() *RefreshStore {
	return &RefreshStore{tokens: make(map[string]string)}
}

// Issue generates a new token for the user, replacing any previous one.
func (s *RefreshStore) Issue(userID string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")

	s.mu.Lock()
	s.tokens[userID] = token
	s.mu.Unlock()
	return token
}

func (s *RefreshStore) Valid(userID, token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	current, ok := s.tokens[userID]
	s.mu.Unlock()
	return ok && subtle.ConstantTimeCompare([]byte(current), []byte(token)) == 1
}

// Remove deletes the user's token only if it still equals token, so a stale
// logout cannot drop a token issued after it.
func (s *RefreshStore) Remove(userID, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tokens[userID]
	if !ok || subtle.ConstantTimeCompare([]byte(current), []byte(token)) != 1 {
		return false
	}
	delete(s.tokens, userID)
	return true
}
