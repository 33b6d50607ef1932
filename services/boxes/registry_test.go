package boxes

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agusu/ppns-hub/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	db, err := gorm.Open(dsn, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Box{}, &models.Client{}, &models.ClientSecret{}, &models.Notification{}))
	return db
}

func TestCreateBox_CreatesOnFirstCall(t *testing.T) {
	registry := New(newTestDB(t))
	ctx := context.Background()

	result := registry.CreateBox(ctx, "client-1", "my-box")
	require.Equal(t, models.BoxCreated, result.Outcome)
	require.Equal(t, "my-box", result.Box.BoxName)
	require.Equal(t, "client-1", result.Box.BoxCreator.ClientID)
	require.NotEqual(t, "", result.Box.BoxID.String())
}

func TestCreateBox_ReturnsExistingOnCollision(t *testing.T) {
	registry := New(newTestDB(t))
	ctx := context.Background()

	first := registry.CreateBox(ctx, "client-1", "my-box")
	require.Equal(t, models.BoxCreated, first.Outcome)

	second := registry.CreateBox(ctx, "client-1", "my-box")
	require.Equal(t, models.BoxRetrieved, second.Outcome)
	require.Equal(t, first.Box.BoxID, second.Box.BoxID)
}

func TestCreateBox_SameNameDifferentClientDoesNotCollide(t *testing.T) {
	registry := New(newTestDB(t))
	ctx := context.Background()

	a := registry.CreateBox(ctx, "client-a", "shared-name")
	b := registry.CreateBox(ctx, "client-b", "shared-name")

	require.Equal(t, models.BoxCreated, a.Outcome)
	require.Equal(t, models.BoxCreated, b.Outcome)
	require.NotEqual(t, a.Box.BoxID, b.Box.BoxID)
}

func TestUpdateSubscriber_NotFound(t *testing.T) {
	registry := New(newTestDB(t))
	ctx := context.Background()

	err := registry.UpdateSubscriber(ctx, uuid.New(), models.Subscriber{Type: models.SubscriberPush, CallbackURL: "https://x/cb"})
	require.ErrorIs(t, err, ErrBoxNotFound)
}

func TestUpdateSubscriber_ReplacesAtomically(t *testing.T) {
	registry := New(newTestDB(t))
	ctx := context.Background()

	created := registry.CreateBox(ctx, "client-1", "my-box")
	require.NoError(t, registry.UpdateSubscriber(ctx, created.Box.BoxID, models.Subscriber{Type: models.SubscriberPush, CallbackURL: "https://x/cb"}))

	box, err := registry.GetBoxByID(ctx, created.Box.BoxID)
	require.NoError(t, err)
	require.True(t, box.Subscriber.IsPush())
	require.Equal(t, "https://x/cb", box.Subscriber.CallbackURL)
}

func TestAuthorize_MismatchedClientIsUnauthorized(t *testing.T) {
	box := &models.Box{BoxCreator: models.BoxCreator{ClientID: "owner"}}
	require.ErrorIs(t, Authorize(box, "someone-else"), ErrUnauthorized)
	require.NoError(t, Authorize(box, "owner"))
}
