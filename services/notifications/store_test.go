package notifications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agusu/ppns-hub/cryptoutil"
	"github.com/agusu/ppns-hub/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	db, err := gorm.Open(dsn, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Box{}, &models.Notification{}))

	key := make([]byte, 32)
	cipher, err := cryptoutil.NewCipher([][]byte{key})
	require.NoError(t, err)

	return New(db, cipher, zap.NewNop().Sugar(), 50)
}

func makeNotification(boxID uuid.UUID) models.Notification {
	return models.Notification{
		NotificationID:     uuid.New(),
		BoxID:              boxID,
		MessageContentType: models.ContentTypeJSON,
		Status:             models.StatusPending,
		CreatedDateTime:    time.Now().UTC(),
	}
}

func TestSave_RoundTripsEncryptedMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boxID := uuid.New()

	id, saved, err := store.Save(ctx, makeNotification(boxID), []byte(`{"hello":"world"}`))
	require.NoError(t, err)
	require.True(t, saved)
	require.NotEqual(t, uuid.Nil, id)

	rows, err := store.GetByBoxIDAndFilters(ctx, boxID, Filters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, `{"hello":"world"}`, rows[0].Message)
}

func TestSave_DuplicateIsSuppressedNotErrored(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boxID := uuid.New()

	n := makeNotification(boxID)
	_, saved, err := store.Save(ctx, n, []byte("first"))
	require.NoError(t, err)
	require.True(t, saved)

	_, saved, err = store.Save(ctx, n, []byte("second"))
	require.NoError(t, err)
	require.False(t, saved)
}

func TestGetByBoxIDAndFilters_FiltersByStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boxID := uuid.New()

	pending := makeNotification(boxID)
	_, _, err := store.Save(ctx, pending, []byte("pending"))
	require.NoError(t, err)

	acked := makeNotification(boxID)
	acked.Status = models.StatusAcknowledged
	_, _, err = store.Save(ctx, acked, []byte("acked"))
	require.NoError(t, err)

	status := models.StatusPending
	rows, err := store.GetByBoxIDAndFilters(ctx, boxID, Filters{Status: &status})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "pending", rows[0].Message)
}

func TestAcknowledge_OnlyUpdatesPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boxID := uuid.New()

	n := makeNotification(boxID)
	id, _, err := store.Save(ctx, n, []byte("payload"))
	require.NoError(t, err)

	failed := makeNotification(boxID)
	failed.Status = models.StatusFailed
	failedID, _, err := store.Save(ctx, failed, []byte("failed"))
	require.NoError(t, err)

	require.True(t, store.Acknowledge(ctx, boxID, []uuid.UUID{id, failedID}))

	status := models.StatusAcknowledged
	rows, err := store.GetByBoxIDAndFilters(ctx, boxID, Filters{Status: &status})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, id, rows[0].NotificationID)

	failedStatus := models.StatusFailed
	rows, err = store.GetByBoxIDAndFilters(ctx, boxID, Filters{Status: &failedStatus})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestUpdateStatus_ChangesRowStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boxID := uuid.New()

	n := makeNotification(boxID)
	id, saved, err := store.Save(ctx, n, []byte("payload"))
	require.NoError(t, err)
	require.True(t, saved)

	updated, err := store.UpdateStatus(ctx, id, models.StatusAcknowledged)
	require.NoError(t, err)
	require.Equal(t, models.StatusAcknowledged, updated.Status)
	require.NotNil(t, updated.PushedDateTime)

	var reloaded models.Notification
	require.NoError(t, store.db.Where("notification_id = ?", id).First(&reloaded).Error)
	require.Equal(t, models.StatusAcknowledged, reloaded.Status)
	require.NotNil(t, reloaded.PushedDateTime)
}

func TestUpdateStatus_UnknownNotificationErrors(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpdateStatus(context.Background(), uuid.New(), models.StatusFailed)
	require.Error(t, err)
}

func TestStreamRetryable_OnlyYieldsPushSubscribedPendingBoxes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pushBox := models.Box{
		BoxID:      uuid.New(),
		BoxName:    "push-box",
		BoxCreator: models.BoxCreator{ClientID: "c1"},
		Subscriber: models.Subscriber{Type: models.SubscriberPush, CallbackURL: "https://x/cb"},
	}
	pullBox := models.Box{
		BoxID:      uuid.New(),
		BoxName:    "pull-box",
		BoxCreator: models.BoxCreator{ClientID: "c1"},
	}
	require.NoError(t, store.db.Create(&pushBox).Error)
	require.NoError(t, store.db.Create(&pullBox).Error)

	pushable := makeNotification(pushBox.BoxID)
	_, _, err := store.Save(ctx, pushable, []byte("push-me"))
	require.NoError(t, err)

	pullOnly := makeNotification(pullBox.BoxID)
	_, _, err = store.Save(ctx, pullOnly, []byte("pull-me"))
	require.NoError(t, err)

	out, errs := store.StreamRetryable(ctx)
	var got []RetryablePair
	for pair := range out {
		got = append(got, pair)
	}
	require.NoError(t, <-errs)

	require.Len(t, got, 1)
	require.Equal(t, pushBox.BoxID, got[0].Box.BoxID)
	require.Equal(t, "push-me", got[0].Message)
}

func TestStreamRetryable_SkipsFutureRetryAfter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	box := models.Box{
		BoxID:      uuid.New(),
		BoxName:    "push-box",
		BoxCreator: models.BoxCreator{ClientID: "c1"},
		Subscriber: models.Subscriber{Type: models.SubscriberPush, CallbackURL: "https://x/cb"},
	}
	require.NoError(t, store.db.Create(&box).Error)

	n := makeNotification(box.BoxID)
	id, _, err := store.Save(ctx, n, []byte("later"))
	require.NoError(t, err)

	future := time.Now().Add(time.Hour)
	_, err = store.UpdateRetryAfter(ctx, id, future)
	require.NoError(t, err)

	out, errs := store.StreamRetryable(ctx)
	var got []RetryablePair
	for pair := range out {
		got = append(got, pair)
	}
	require.NoError(t, <-errs)
	require.Empty(t, got)
}
