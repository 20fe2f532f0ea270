package mongorepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"contacts-service/internal/model"
	"contacts-service/internal/repository"
	"contacts-service/prometheus"
)

// UserRepository stores users in the users collection.
type UserRepository struct {
	client   *mongo.Client
	users    *mongo.Collection
	contacts *mongo.Collection
	now      func() time.Time
}

var _ repository.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		client:   db.Client(),
		users:    db.Collection(usersCollection),
		contacts: db.Collection(contactsCollection),
		now:      time.Now,
	}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	defer prometheus.TrackDBOperation("users.create")(time.Now())

	now := r.now().UTC()
	doc := userDocument{
		ID:                primitive.NewObjectID(),
		Email:             user.Email,
		Password:          user.PasswordHash,
		Subscription:      string(user.Subscription),
		Token:             user.Token,
		AvatarURL:         user.AvatarURL,
		Verified:          user.Verified,
		VerificationToken: user.VerificationToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		return translate(err)
	}

	user.ID = doc.ID.Hex()
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	defer prometheus.TrackDBOperation("users.find")(time.Now())

	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	defer prometheus.TrackDBOperation("users.find")(time.Now())
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	defer prometheus.TrackDBOperation("users.find")(time.Now())
	return r.findOne(ctx, bson.M{"verificationToken": token})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.toModel(), nil
}

func (r *UserRepository) SetToken(ctx context.Context, id string, token *string) error {
	defer prometheus.TrackDBOperation("users.update")(time.Now())
	_, err := r.set(ctx, id, bson.M{"token": token})
	return err
}

func (r *UserRepository) UpdateSubscription(ctx context.Context, id string, sub model.Subscription) (*model.User, error) {
	defer prometheus.TrackDBOperation("users.update")(time.Now())
	return r.set(ctx, id, bson.M{"subscription": string(sub)})
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	defer prometheus.TrackDBOperation("users.update")(time.Now())
	_, err := r.set(ctx, id, bson.M{"avatarURL": avatarURL})
	return err
}

func (r *UserRepository) SetVerificationToken(ctx context.Context, id, token string) error {
	defer prometheus.TrackDBOperation("users.update")(time.Now())
	_, err := r.set(ctx, id, bson.M{"verificationToken": token})
	return err
}

func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	defer prometheus.TrackDBOperation("users.update")(time.Now())
	_, err := r.set(ctx, id, bson.M{"verify": true, "verificationToken": nil})
	return err
}

func (r *UserRepository) set(ctx context.Context, id string, fields bson.M) (*model.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	fields["updatedAt"] = r.now().UTC()

	var doc userDocument
	err = r.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": fields}, afterUpdate()).Decode(&doc)
	if err != nil {
		return nil, translate(err)
	}
	return doc.toModel(), nil
}

// DeleteWithContacts removes the user's contacts first and then the user.
// A failure between the two steps leaves the user in place with fewer contacts,
// so a retry completes the removal.
func (r *UserRepository) DeleteWithContacts(ctx context.Context, id string) (*model.User, error) {
	defer prometheus.TrackDBOperation("users.delete")(time.Now())

	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	user, err := r.findOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, err
	}
	if _, err := r.contacts.DeleteMany(ctx, bson.M{"owner": oid}); err != nil {
		return nil, fmt.Errorf("delete contacts: %w", err)
	}

	var doc userDocument
	if err := r.users.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}
