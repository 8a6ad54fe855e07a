package engine

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// codeGrant is the state bound to an issued authorization code.
type codeGrant struct {
	clientID    string
	subject     string
	scope       []string
	redirectURI string
	expiresAt   time.Time
}

// codeStore holds pending authorization codes. Codes are single-use:
// redemption removes them.
type codeStore struct {
	mu    sync.Mutex
	codes map[string]codeGrant
}

func newCodeStore() *codeStore {
	return &codeStore{codes: make(map[string]codeGrant)}
}

// put stores grant under a fresh code and returns the code.
func (s *codeStore) put(grant codeGrant) string {
	code := newToken()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = grant
	return code
}

// take redeems a code. A second take of the same code fails, as does an
// expired one.
func (s *codeStore) take(code string, now time.Time) (codeGrant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.codes[code]
	if !ok {
		return codeGrant{}, false
	}
	delete(s.codes, code)
	if now.After(grant.expiresAt) {
		return codeGrant{}, false
	}
	return grant, true
}

// refreshGrant is the state bound to an issued refresh token.
type refreshGrant struct {
	clientID  string
	subject   string
	scope     []string
	expiresAt time.Time
}

// refreshStore holds live refresh tokens. Redemption removes the token;
// the caller issues a replacement (rotation).
type refreshStore struct {
	mu     sync.Mutex
	tokens map[string]refreshGrant
}

func newRefreshStore() *refreshStore {
	return &refreshStore{tokens: make(map[string]refreshGrant)}
}

// put stores grant under a fresh token and returns the token.
func (s *refreshStore) put(grant refreshGrant) string {
	token := newToken()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = grant
	return token
}

// take redeems a refresh token, removing it.
func (s *refreshStore) take(token string, now time.Time) (refreshGrant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.tokens[token]
	if !ok {
		return refreshGrant{}, false
	}
	delete(s.tokens, token)
	if now.After(grant.expiresAt) {
		return refreshGrant{}, false
	}
	return grant, true
}

// newToken creates an opaque random token as a hex string.
func newToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
