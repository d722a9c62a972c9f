package client

import (
	"context"
	"sync"
)

// Session mirrors who is using the client. Login is local by default; a token
// is only held after Authenticate.
type Session struct {
	mu          sync.RWMutex
	name        string
	phoneNumber string
	token       string
}

func NewSession() *Session {
	return &Session{}
}

// IsLoggedIn is true once a name has been set.
func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name != ""
}

// LogIn records the user locally. There is no server round-trip and no logout.
func (s *Session) LogIn(name, phoneNumber string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.phoneNumber = phoneNumber
}

func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *Session) PhoneNumber() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phoneNumber
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticate trades credentials for a token, then loads the account so the
// session name matches the server's record.
func (s *Session) Authenticate(ctx context.Context, api *API, email, password string) error {
	token, err := api.IssueToken(ctx, email, password)
	if err != nil {
		return err
	}

	me, err := api.meWithToken(ctx, token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.name = me.Name
	s.mu.Unlock()

	return nil
}
