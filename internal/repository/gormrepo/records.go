// Package gormrepo implements the repositories on GORM for PostgreSQL and SQLite.
package gormrepo

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"contacts-service/internal/model"
	"contacts-service/internal/repository"
)

type userRecord struct {
	ID                uint    `gorm:"primaryKey"`
	Email             string  `gorm:"type:varchar(255);uniqueIndex;not null"`
	Password          string  `gorm:"type:varchar(255);not null"`
	Subscription      string  `gorm:"type:varchar(20);not null"`
	Token             *string `gorm:"type:text"`
	AvatarURL         string  `gorm:"type:varchar(512)"`
	Verified          bool    `gorm:"not null"`
	VerificationToken *string `gorm:"type:varchar(64);index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (userRecord) TableName() string { return "users" }

type contactRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"type:varchar(255);not null"`
	Email     string `gorm:"type:varchar(255);not null"`
	Phone     string `gorm:"type:varchar(32);not null"`
	Favorite  bool   `gorm:"not null;index"`
	OwnerID   uint   `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (contactRecord) TableName() string { return "contacts" }

// Migrate creates or updates the tables used by the repositories.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&userRecord{}, &contactRecord{})
}

func (r *userRecord) toModel() *model.User {
	return &model.User{
		ID:                formatID(r.ID),
		Email:             r.Email,
		PasswordHash:      r.Password,
		Subscription:      model.Subscription(r.Subscription),
		Token:             r.Token,
		AvatarURL:         r.AvatarURL,
		Verified:          r.Verified,
		VerificationToken: r.VerificationToken,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func (r *contactRecord) toModel() *model.Contact {
	return &model.Contact{
		ID:        formatID(r.ID),
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Favorite:  r.Favorite,
		Owner:     formatID(r.OwnerID),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// parseID converts an external ID. Malformed IDs cannot match any row.
func parseID(id string) (uint, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return 0, repository.ErrNotFound
	}
	return uint(n), nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return repository.ErrDuplicate
	default:
		return err
	}
}

// Drivers without an error translator still report unique violations in the message.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
