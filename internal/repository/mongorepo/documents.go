// Package mongorepo implements the repositories on MongoDB.
package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"contacts-service/internal/model"
	"contacts-service/internal/repository"
)

const (
	usersCollection    = "users"
	contactsCollection = "contacts"
)

type userDocument struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Email             string             `bson:"email"`
	Password          string             `bson:"password"`
	Subscription      string             `bson:"subscription"`
	Token             *string            `bson:"token"`
	AvatarURL         string             `bson:"avatarURL"`
	Verified          bool               `bson:"verify"`
	VerificationToken *string            `bson:"verificationToken"`
	CreatedAt         time.Time          `bson:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"`
}

type contactDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Phone     string             `bson:"phone"`
	Favorite  bool               `bson:"favorite"`
	Owner     primitive.ObjectID `bson:"owner"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *userDocument) toModel() *model.User {
	return &model.User{
		ID:                d.ID.Hex(),
		Email:             d.Email,
		PasswordHash:      d.Password,
		Subscription:      model.Subscription(d.Subscription),
		Token:             d.Token,
		AvatarURL:         d.AvatarURL,
		Verified:          d.Verified,
		VerificationToken: d.VerificationToken,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func (d *contactDocument) toModel() *model.Contact {
	return &model.Contact{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Favorite:  d.Favorite,
		Owner:     d.Owner.Hex(),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// EnsureIndexes creates the unique email index and the lookup indexes.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "verificationToken", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = db.Collection(contactsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "favorite", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create contact indexes: %w", err)
	}
	return nil
}

// parseID converts a hex ObjectID. Anything else cannot match a document.
func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, repository.ErrNotFound
	}
	return oid, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicate
	default:
		return err
	}
}

func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
