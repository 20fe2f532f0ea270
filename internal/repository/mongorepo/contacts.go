package mongorepo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"contacts-service/internal/model"
	"contacts-service/internal/repository"
	"contacts-service/prometheus"
)

// ContactRepository stores contacts in the contacts collection. Every filter
// includes the owner.
type ContactRepository struct {
	contacts *mongo.Collection
	now      func() time.Time
}

var _ repository.ContactRepository = (*ContactRepository)(nil)

// NewContactRepository creates a ContactRepository.
func NewContactRepository(db *mongo.Database) *ContactRepository {
	return &ContactRepository{
		contacts: db.Collection(contactsCollection),
		now:      time.Now,
	}
}

func ownedFilter(ownerID, id string) (bson.M, error) {
	owner, err := parseID(ownerID)
	if err != nil {
		return nil, err
	}
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return bson.M{"_id": oid, "owner": owner}, nil
}

func (r *ContactRepository) List(ctx context.Context, ownerID string, filter model.ContactFilter) ([]model.Contact, error) {
	defer prometheus.TrackDBOperation("contacts.list")(time.Now())

	owner, err := parseID(ownerID)
	if err != nil {
		return []model.Contact{}, nil
	}

	query := bson.M{"owner": owner}
	if filter.Favorite != nil {
		query["favorite"] = *filter.Favorite
	}

	// ObjectIDs grow monotonically, so _id order is insertion order.
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit)).SetSkip(int64(filter.Offset()))
	}

	cur, err := r.contacts.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []contactDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]model.Contact, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toModel())
	}
	return out, nil
}

func (r *ContactRepository) Get(ctx context.Context, ownerID, id string) (*model.Contact, error) {
	defer prometheus.TrackDBOperation("contacts.get")(time.Now())

	filter, err := ownedFilter(ownerID, id)
	if err != nil {
		return nil, err
	}

	var doc contactDocument
	if err := r.contacts.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.toModel(), nil
}

func (r *ContactRepository) Create(ctx context.Context, contact *model.Contact) error {
	defer prometheus.TrackDBOperation("contacts.create")(time.Now())

	owner, err := parseID(contact.Owner)
	if err != nil {
		return err
	}

	now := r.now().UTC()
	doc := contactDocument{
		ID:        primitive.NewObjectID(),
		Name:      contact.Name,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Favorite:  contact.Favorite,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.contacts.InsertOne(ctx, doc); err != nil {
		return translate(err)
	}

	contact.ID = doc.ID.Hex()
	contact.CreatedAt = now
	contact.UpdatedAt = now
	return nil
}

func (r *ContactRepository) Replace(ctx context.Context, ownerID, id string, fields model.Contact) (*model.Contact, error) {
	defer prometheus.TrackDBOperation("contacts.update")(time.Now())
	return r.update(ctx, ownerID, id, bson.M{
		"name":     fields.Name,
		"email":    fields.Email,
		"phone":    fields.Phone,
		"favorite": fields.Favorite,
	})
}

func (r *ContactRepository) Patch(ctx context.Context, ownerID, id string, patch model.ContactPatch) (*model.Contact, error) {
	defer prometheus.TrackDBOperation("contacts.update")(time.Now())

	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.Phone != nil {
		set["phone"] = *patch.Phone
	}
	if patch.Favorite != nil {
		set["favorite"] = *patch.Favorite
	}
	return r.update(ctx, ownerID, id, set)
}

func (r *ContactRepository) update(ctx context.Context, ownerID, id string, set bson.M) (*model.Contact, error) {
	filter, err := ownedFilter(ownerID, id)
	if err != nil {
		return nil, err
	}
	set["updatedAt"] = r.now().UTC()

	var doc contactDocument
	err = r.contacts.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, afterUpdate()).Decode(&doc)
	if err != nil {
		return nil, translate(err)
	}
	return doc.toModel(), nil
}

func (r *ContactRepository) Delete(ctx context.Context, ownerID, id string) error {
	defer prometheus.TrackDBOperation("contacts.delete")(time.Now())

	filter, err := ownedFilter(ownerID, id)
	if err != nil {
		return err
	}

	res, err := r.contacts.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
