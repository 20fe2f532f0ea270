package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contacts-service/internal/apperror"
	"contacts-service/internal/model"
	"contacts-service/internal/repository"
)

const bearerPrefix = "Bearer "

// Reasons recorded for rejected credentials. They never reach the client.
const (
	ReasonMissingHeader = "missing_header"
	ReasonInvalidToken  = "invalid_token"
	ReasonUnknownUser   = "unknown_user"
	ReasonStaleToken    = "stale_token"
)

// UserFinder loads users by ID.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Authenticator resolves an Authorization header to the user it belongs to.
type Authenticator struct {
	tokens *TokenManager
	users  UserFinder
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens *TokenManager, users UserFinder) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate verifies the bearer token in header and returns its user.
// The token must verify and also equal the user's currently stored token.
// Every rejection matches apperror.ErrUnauthorized.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*model.User, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, apperror.UnauthorizedBecause(ReasonMissingHeader, nil)
	}
	token := header[len(bearerPrefix):]
	if token == "" {
		return nil, apperror.UnauthorizedBecause(ReasonMissingHeader, nil)
	}

	claims, err := a.tokens.Validate(token)
	if err != nil {
		return nil, apperror.UnauthorizedBecause(ReasonInvalidToken, err)
	}

	user, err := a.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.UnauthorizedBecause(ReasonUnknownUser, err)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", claims.UserID, err)
	}

	if !user.HasToken(token) {
		return nil, apperror.UnauthorizedBecause(ReasonStaleToken, nil)
	}
	return user, nil
}
