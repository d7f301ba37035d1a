// Package session holds the authenticated identity for the running client.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/revuly/revuly-go/internal/domain"
	"github.com/revuly/revuly-go/internal/localstore"
	"github.com/revuly/revuly-go/internal/services"
)

// Defaults applied when Options fields are left empty.
const (
	DefaultTokenCookie = "revuly_token"
	DefaultSnapshotKey = "UserStore"
)

// Options configures a Store.
type Options struct {
	// TokenCookie is the credential key in the cookie store.
	TokenCookie string
	// SnapshotKey is the session snapshot key in durable storage.
	SnapshotKey string
}

// Store is the process-wide session holder. It is constructed explicitly and
// injected into whatever owns the UI tree; there is no package-level
// instance. Every mutation persists a {user} snapshot to durable storage,
// and New rehydrates from it, so the session survives reloads.
//
// Login and Register are pure passthroughs to the user service: they do not
// mutate session state. The calling UI flow owns orchestration and is
// responsible for SetUser plus persisting the credential on success.
type Store struct {
	mu   sync.RWMutex
	user *domain.User

	users       *services.UserService
	creds       *localstore.Store
	local       *localstore.Store
	tokenCookie string
	snapshotKey string
	log         *logrus.Logger
}

type snapshot struct {
	User *domain.User `json:"user"`
}

// New creates a Store and rehydrates any persisted session snapshot.
// creds holds the credential cookie; local is the durable storage analog.
func New(users *services.UserService, creds, local *localstore.Store, opts Options, log *logrus.Logger) *Store {
	if opts.TokenCookie == "" {
		opts.TokenCookie = DefaultTokenCookie
	}
	if opts.SnapshotKey == "" {
		opts.SnapshotKey = DefaultSnapshotKey
	}

	s := &Store{
		users:       users,
		creds:       creds,
		local:       local,
		tokenCookie: opts.TokenCookie,
		snapshotKey: opts.SnapshotKey,
		log:         log,
	}
	s.rehydrate()
	return s
}

// SetUser replaces the current identity and persists the snapshot.
func (s *Store) SetUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.persist()
}

// User returns the current identity, nil when unauthenticated.
func (s *Store) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Login delegates to the user service and returns its result unchanged.
func (s *Store) Login(ctx context.Context, email, password string) (*services.AuthResult, error) {
	return s.users.Login(ctx, email, password)
}

// Register delegates to the user service and returns its result unchanged.
func (s *Store) Register(ctx context.Context, email, password, businessName, businessType string) (*services.AuthResult, error) {
	return s.users.Register(ctx, email, password, businessName, businessType)
}

// Logout synchronously removes the credential and clears the identity.
func (s *Store) Logout() {
	s.creds.Remove(s.tokenCookie)
	s.SetUser(nil)
}

// TokenExpiresAt reports the exp claim of the stored credential without
// verifying the signature. Zero time when there is no token or no usable
// claim; the server remains the authority on validity.
func (s *Store) TokenExpiresAt() time.Time {
	token := s.creds.GetString(s.tokenCookie)
	if token == "" {
		return time.Time{}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		s.log.Warnf("session: parse credential claims: %v", err)
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// persist writes the {user} snapshot. Callers hold s.mu.
func (s *Store) persist() {
	s.local.Set(s.snapshotKey, snapshot{User: s.user})
}

func (s *Store) rehydrate() {
	raw := s.local.GetString(s.snapshotKey)
	if raw == "" {
		return
	}
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.log.Warnf("session: restore snapshot: %v", err)
		return
	}
	s.user = snap.User
}
