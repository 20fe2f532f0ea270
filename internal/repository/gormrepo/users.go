package gormrepo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"contacts-service/internal/model"
	"contacts-service/internal/repository"
	"contacts-service/prometheus"
)

// UserRepository stores users in the users table.
type UserRepository struct {
	db *gorm.DB
}

var _ repository.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	defer prometheus.TrackDBOperation("users.create")(time.Now())

	rec := userRecord{
		Email:             user.Email,
		Password:          user.PasswordHash,
		Subscription:      string(user.Subscription),
		Token:             user.Token,
		AvatarURL:         user.AvatarURL,
		Verified:          user.Verified,
		VerificationToken: user.VerificationToken,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err)
	}

	user.ID = formatID(rec.ID)
	user.CreatedAt = rec.CreatedAt
	user.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	defer prometheus.TrackDBOperation("users.find")(time.Now())

	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.first(ctx, "id = ?", uid)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	defer prometheus.TrackDBOperation("users.find")(time.Now())
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) FindByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	defer prometheus.TrackDBOperation("users.find")(time.Now())
	return r.first(ctx, "verification_token = ?", token)
}

func (r *UserRepository) first(ctx context.Context, query string, args ...any) (*model.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).Where(query, args...).First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toModel(), nil
}

func (r *UserRepository) SetToken(ctx context.Context, id string, token *string) error {
	defer prometheus.TrackDBOperation("users.update")(time.Now())
	return r.update(ctx, id, map[string]any{"token": token})
}

func (r *UserRepository) UpdateSubscription(ctx context.Context, id string, sub model.Subscription) (*model.User, error) {
	defer prometheus.TrackDBOperation("users.update")(time.Now())

	if err := r.update(ctx, id, map[string]any{"subscription": string(sub)}); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	defer prometheus.TrackDBOperation("users.update")(time.Now())
	return r.update(ctx, id, map[string]any{"avatar_url": avatarURL})
}

func (r *UserRepository) SetVerificationToken(ctx context.Context, id, token string) error {
	defer prometheus.TrackDBOperation("users.update")(time.Now())
	return r.update(ctx, id, map[string]any{"verification_token": token})
}

func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	defer prometheus.TrackDBOperation("users.update")(time.Now())
	return r.update(ctx, id, map[string]any{
		"verified":           true,
		"verification_token": nil,
	})
}

func (r *UserRepository) update(ctx context.Context, id string, fields map[string]any) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", uid).Updates(fields)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteWithContacts removes the user's contacts and then the user in one transaction.
func (r *UserRepository) DeleteWithContacts(ctx context.Context, id string) (*model.User, error) {
	defer prometheus.TrackDBOperation("users.delete")(time.Now())

	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var deleted *model.User
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec userRecord
		if err := tx.Where("id = ?", uid).First(&rec).Error; err != nil {
			return translate(err)
		}
		if err := tx.Where("owner_id = ?", uid).Delete(&contactRecord{}).Error; err != nil {
			return fmt.Errorf("delete contacts: %w", err)
		}
		result := tx.Where("id = ?", uid).Delete(&userRecord{})
		if result.Error != nil {
			return fmt.Errorf("delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		deleted = rec.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
