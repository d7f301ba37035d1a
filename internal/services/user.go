// Package services contains the typed domain services. Each method maps one
// strongly-typed call onto a single HTTP client invocation with a fixed
// endpoint path; error handling beyond the client's is deliberately absent.
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/revuly/revuly-go/internal/domain"
)

// Doer is the slice of the HTTP client the services need.
type Doer interface {
	Get(ctx context.Context, path string, body any, headers map[string]string) (*domain.Envelope, error)
	Post(ctx context.Context, path string, body any, headers map[string]string) (*domain.Envelope, error)
}

// AuthResult pairs the raw envelope with the decoded auth payload. Auth is
// nil unless the envelope reports success.
type AuthResult struct {
	domain.Envelope
	Auth *domain.AuthData
}

// UserService translates account operations into API calls.
type UserService struct {
	http Doer
}

// NewUserService creates a UserService on top of http.
func NewUserService(http Doer) *UserService {
	return &UserService{http: http}
}

// Login authenticates with email and password.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	env, err := s.http.Post(ctx, "login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	if err != nil {
		return nil, err
	}
	return decodeAuth(env)
}

// Register creates an account together with its business tenant.
func (s *UserService) Register(ctx context.Context, email, password, businessName, businessType string) (*AuthResult, error) {
	env, err := s.http.Post(ctx, "register", map[string]string{
		"email":         email,
		"password":      password,
		"business_name": businessName,
		"business_type": businessType,
	}, nil)
	if err != nil {
		return nil, err
	}
	return decodeAuth(env)
}

func decodeAuth(env *domain.Envelope) (*AuthResult, error) {
	res := &AuthResult{Envelope: *env}
	if !env.Success || len(env.Data) == 0 {
		return res, nil
	}

	var auth domain.AuthData
	if err := json.Unmarshal(env.Data, &auth); err != nil {
		return nil, fmt.Errorf("decode auth payload: %w", err)
	}
	res.Auth = &auth
	return res, nil
}
