package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/diagnosis/roomstay/internal/domain"
	"github.com/diagnosis/roomstay/internal/registry"
)

// AuthService talks to the users service. Neither call sends a token.
type AuthService struct {
	c *Client
}

type LoginResult struct {
	Token string             `json:"token"`
	User  domain.UserProfile `json:"user"`
}

// POST /users/login
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	raw, err := s.c.Public(ctx, registry.Users, "/users/login", http.MethodPost, req)
	if err != nil {
		return nil, err
	}
	if err := LogicalErrorFrom(raw); err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, fmt.Errorf("%w: empty login response", ErrUnexpectedResponse)
	}

	var out LoginResult
	if err := decodeInto(raw, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("%w: login response without token", ErrUnexpectedResponse)
	}
	return &out, nil
}

// POST /users
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.UserProfile, error) {
	raw, err := s.c.Public(ctx, registry.Users, "/users", http.MethodPost, req)
	if err != nil {
		return nil, err
	}
	if err := LogicalErrorFrom(raw); err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, fmt.Errorf("%w: empty register response", ErrUnexpectedResponse)
	}

	// Documented as {user: {...}}; some deployments return the bare profile.
	var wrapped struct {
		User json.RawMessage `json:"user"`
	}
	if err := decodeInto(raw, &wrapped); err != nil {
		return nil, err
	}
	body := raw
	if !isNull(wrapped.User) {
		body = wrapped.User
	}

	var user domain.UserProfile
	if err := decodeInto(body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
