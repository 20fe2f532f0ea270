// Package service holds the contact and account operations behind the HTTP
// handlers. Every contact operation is scoped to the authenticated owner.
package service

import (
	"context"
	"errors"
	"fmt"

	"contacts-service/internal/apperror"
	"contacts-service/internal/model"
	"contacts-service/internal/repository"
	"contacts-service/prometheus"
)

// ContactService manages an owner's contacts.
type ContactService struct {
	contacts repository.ContactRepository
}

// NewContactService creates a ContactService.
func NewContactService(contacts repository.ContactRepository) *ContactService {
	return &ContactService{contacts: contacts}
}

// List returns a page of the owner's contacts in insertion order.
func (s *ContactService) List(ctx context.Context, owner *model.User, filter model.ContactFilter) ([]model.Contact, error) {
	items, err := s.contacts.List(ctx, owner.ID, filter)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return items, nil
}

// Get returns one of the owner's contacts. Someone else's contact is reported as missing.
func (s *ContactService) Get(ctx context.Context, owner *model.User, id string) (*model.Contact, error) {
	c, err := s.contacts.Get(ctx, owner.ID, id)
	if err != nil {
		return nil, translate("get contact", err)
	}
	return c, nil
}

// Create stores a new contact for owner. Any owner on fields is ignored.
func (s *ContactService) Create(ctx context.Context, owner *model.User, fields model.Contact) (*model.Contact, error) {
	c := fields
	c.ID = ""
	c.Owner = owner.ID
	if err := s.contacts.Create(ctx, &c); err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	prometheus.RecordContactOperation("create")
	return &c, nil
}

// Replace overwrites every field of the contact.
func (s *ContactService) Replace(ctx context.Context, owner *model.User, id string, fields model.Contact) (*model.Contact, error) {
	c, err := s.contacts.Replace(ctx, owner.ID, id, fields)
	if err != nil {
		return nil, translate("replace contact", err)
	}
	prometheus.RecordContactOperation("replace")
	return c, nil
}

// Patch changes only the fields present in patch.
func (s *ContactService) Patch(ctx context.Context, owner *model.User, id string, patch model.ContactPatch) (*model.Contact, error) {
	if patch.Empty() {
		return nil, apperror.Validation("value", `"value" must have at least 1 key`)
	}
	c, err := s.contacts.Patch(ctx, owner.ID, id, patch)
	if err != nil {
		return nil, translate("patch contact", err)
	}
	prometheus.RecordContactOperation("patch")
	return c, nil
}

// SetFavorite changes only the favorite flag.
func (s *ContactService) SetFavorite(ctx context.Context, owner *model.User, id string, favorite bool) (*model.Contact, error) {
	c, err := s.contacts.Patch(ctx, owner.ID, id, model.ContactPatch{Favorite: &favorite})
	if err != nil {
		return nil, translate("set favorite", err)
	}
	prometheus.RecordContactOperation("favorite")
	return c, nil
}

// Delete removes one of the owner's contacts.
func (s *ContactService) Delete(ctx context.Context, owner *model.User, id string) error {
	if err := s.contacts.Delete(ctx, owner.ID, id); err != nil {
		return translate("delete contact", err)
	}
	prometheus.RecordContactOperation("delete")
	return nil
}

// translate maps repository misses to apperror.ErrNotFound and wraps the rest.
func translate(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
