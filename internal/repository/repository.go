// Package repository declares the persistence collaborator the services depend on.
// Implementations live in gormrepo (PostgreSQL, SQLite) and mongorepo (MongoDB).
package repository

import (
	"context"
	"errors"

	"contacts-service/internal/model"
)

var (
	// ErrNotFound is returned when no record matches, including malformed IDs.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique field is already taken.
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByVerificationToken(ctx context.Context, token string) (*model.User, error)
	// SetToken overwrites the stored session token; nil logs the user out.
	SetToken(ctx context.Context, id string, token *string) error
	UpdateSubscription(ctx context.Context, id string, sub model.Subscription) (*model.User, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	SetVerificationToken(ctx context.Context, id, token string) error
	MarkVerified(ctx context.Context, id string) error
	// DeleteWithContacts removes the user and every contact they own.
	DeleteWithContacts(ctx context.Context, id string) (*model.User, error)
	Ping(ctx context.Context) error
}

// ContactRepository persists contacts. Every method is scoped to an owner;
// a contact owned by someone else behaves exactly like a missing one.
type ContactRepository interface {
	List(ctx context.Context, ownerID string, filter model.ContactFilter) ([]model.Contact, error)
	Get(ctx context.Context, ownerID, id string) (*model.Contact, error)
	Create(ctx context.Context, contact *model.Contact) error
	Replace(ctx context.Context, ownerID, id string, fields model.Contact) (*model.Contact, error)
	Patch(ctx context.Context, ownerID, id string, patch model.ContactPatch) (*model.Contact, error)
	Delete(ctx context.Context, ownerID, id string) error
}
