package ports

import (
	"context"
)

// SignupResult echoes the registered identity back to the client.
type SignupResult struct {
	Username string
	Email    string
	// Created is false when an existing identical pair was re-sent a code.
	Created bool
}

// AuthService runs the passwordless signup and token exchange.
type AuthService interface {
	Signup(ctx context.Context, username, email string) (*SignupResult, error)
	GetToken(ctx context.Context, username, confirmationCode string) (string, error)
}
