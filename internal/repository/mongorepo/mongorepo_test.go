package mongorepo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"contacts-service/internal/model"
	"contacts-service/internal/repository"
)

func TestParseID(t *testing.T) {
	_, err := parseID("not-hex")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	oid, err := parseID("65f1c0ffee0000000000beef")
	require.NoError(t, err)
	assert.Equal(t, "65f1c0ffee0000000000beef", oid.Hex())
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(mongo.ErrNoDocuments), repository.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, translate(dup), repository.ErrDuplicate)
}

// newTestDB connects to MONGO_TEST_URI and returns a throwaway database.
func newTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	db := client.Database(fmt.Sprintf("contacts_test_%d", time.Now().UnixNano()))
	require.NoError(t, EnsureIndexes(ctx, db))

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestMongoRepositories(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	contacts := NewContactRepository(db)

	alice := &model.User{Email: "alice@mail.com", PasswordHash: "h", Subscription: model.SubscriptionStarter}
	require.NoError(t, users.Create(ctx, alice))
	bob := &model.User{Email: "bob@mail.com", PasswordHash: "h", Subscription: model.SubscriptionStarter}
	require.NoError(t, users.Create(ctx, bob))

	err := users.Create(ctx, &model.User{Email: "alice@mail.com", PasswordHash: "h", Subscription: model.SubscriptionStarter})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	token := "tok"
	require.NoError(t, users.SetToken(ctx, alice.ID, &token))
	got, err := users.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, got.HasToken("tok"))

	for i := 1; i <= 5; i++ {
		c := &model.Contact{Name: fmt.Sprintf("contact-%d", i), Email: "c@mail.com", Phone: "(123) 456-7890", Favorite: i%2 == 0, Owner: alice.ID}
		require.NoError(t, contacts.Create(ctx, c))
	}

	page, err := contacts.List(ctx, alice.ID, model.ContactFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "contact-3", page[0].Name)
	assert.Equal(t, "contact-4", page[1].Name)

	fav := true
	favorites, err := contacts.List(ctx, alice.ID, model.ContactFilter{Page: 1, Limit: 20, Favorite: &fav})
	require.NoError(t, err)
	assert.Len(t, favorites, 2)

	_, err = contacts.Get(ctx, bob.ID, page[0].ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, contacts.Delete(ctx, bob.ID, page[0].ID), repository.ErrNotFound)

	name := "Renamed"
	patched, err := contacts.Patch(ctx, alice.ID, page[0].ID, model.ContactPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", patched.Name)
	assert.Equal(t, alice.ID, patched.Owner)

	deleted, err := users.DeleteWithContacts(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@mail.com", deleted.Email)

	left, err := contacts.List(ctx, alice.ID, model.ContactFilter{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.NoError(t, users.Ping(ctx))
}
