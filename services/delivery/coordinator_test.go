package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agusu/ppns-hub/models"
	"github.com/agusu/ppns-hub/services/push"
)

type fakeBoxLookup struct {
	box *models.Box
	err error
}

func (f *fakeBoxLookup) GetBoxByID(ctx context.Context, boxID uuid.UUID) (*models.Box, error) {
	return f.box, f.err
}

type fakeSaver struct {
	saved       bool
	saveErr     error
	lastStatus  models.NotificationStatus
	updateCalls int
	lastSavedID uuid.UUID
}

func (f *fakeSaver) Save(ctx context.Context, n models.Notification, plaintext []byte) (uuid.UUID, bool, error) {
	f.lastSavedID = n.NotificationID
	if f.saveErr != nil {
		return uuid.Nil, false, f.saveErr
	}
	return n.NotificationID, f.saved, nil
}

func (f *fakeSaver) UpdateStatus(ctx context.Context, notificationID uuid.UUID, status models.NotificationStatus) (models.Notification, error) {
	f.updateCalls++
	f.lastStatus = status
	return models.Notification{NotificationID: notificationID, Status: status}, nil
}

type fakePusher struct {
	result push.Result
	called bool
}

func (f *fakePusher) Push(ctx context.Context, box models.Box, notification models.Notification, message string) push.Result {
	f.called = true
	return f.result
}

func pushBox() *models.Box {
	return &models.Box{
		BoxID:      uuid.New(),
		Subscriber: models.Subscriber{Type: models.SubscriberPush, CallbackURL: "https://x/cb"},
	}
}

func pullBox() *models.Box {
	return &models.Box{BoxID: uuid.New()}
}

func TestSaveAndMaybePush_BoxNotFound(t *testing.T) {
	coordinator := New(&fakeBoxLookup{box: nil}, &fakeSaver{}, &fakePusher{}, zap.NewNop().Sugar(), time.Second)

	result := coordinator.SaveAndMaybePush(context.Background(), uuid.New(), uuid.Nil, models.ContentTypeJSON, []byte("{}"))
	require.Equal(t, models.DeliveryBoxNotFound, result.Outcome)
}

func TestSaveAndMaybePush_BoxLookupStorageErrorIsNotBoxNotFound(t *testing.T) {
	coordinator := New(&fakeBoxLookup{err: errors.New("db unavailable")}, &fakeSaver{}, &fakePusher{}, zap.NewNop().Sugar(), time.Second)

	result := coordinator.SaveAndMaybePush(context.Background(), uuid.New(), uuid.Nil, models.ContentTypeJSON, []byte("{}"))
	require.Equal(t, models.DeliveryStorageFailure, result.Outcome)
}

func TestSaveAndMaybePush_SaveStorageErrorIsStorageFailure(t *testing.T) {
	saver := &fakeSaver{saveErr: errors.New("db unavailable")}
	coordinator := New(&fakeBoxLookup{box: pushBox()}, saver, &fakePusher{}, zap.NewNop().Sugar(), time.Second)

	result := coordinator.SaveAndMaybePush(context.Background(), uuid.New(), uuid.Nil, models.ContentTypeJSON, []byte("{}"))
	require.Equal(t, models.DeliveryStorageFailure, result.Outcome)
}

func TestSaveAndMaybePush_DuplicateIsSuppressed(t *testing.T) {
	coordinator := New(&fakeBoxLookup{box: pushBox()}, &fakeSaver{saved: false}, &fakePusher{}, zap.NewNop().Sugar(), time.Second)

	result := coordinator.SaveAndMaybePush(context.Background(), uuid.New(), uuid.New(), models.ContentTypeJSON, []byte("{}"))
	require.Equal(t, models.DeliveryDuplicateSuppressed, result.Outcome)
}

func TestSaveAndMaybePush_PullOnlyBoxSkipsPush(t *testing.T) {
	pusher := &fakePusher{}
	coordinator := New(&fakeBoxLookup{box: pullBox()}, &fakeSaver{saved: true}, pusher, zap.NewNop().Sugar(), time.Second)

	result := coordinator.SaveAndMaybePush(context.Background(), uuid.New(), uuid.Nil, models.ContentTypeJSON, []byte("{}"))
	require.Equal(t, models.DeliverySuccess, result.Outcome)
	require.False(t, pusher.called)
}

func TestSaveAndMaybePush_PushSuccessAcknowledgesImmediately(t *testing.T) {
	saver := &fakeSaver{saved: true}
	pusher := &fakePusher{result: push.Result{Successful: true}}
	coordinator := New(&fakeBoxLookup{box: pushBox()}, saver, pusher, zap.NewNop().Sugar(), time.Second)

	result := coordinator.SaveAndMaybePush(context.Background(), uuid.New(), uuid.Nil, models.ContentTypeJSON, []byte("{}"))
	require.Equal(t, models.DeliverySuccess, result.Outcome)
	require.True(t, pusher.called)
	require.Equal(t, 1, saver.updateCalls)
	require.Equal(t, models.StatusAcknowledged, saver.lastStatus)
}

func TestSaveAndMaybePush_PushFailureLeavesPendingForSweeper(t *testing.T) {
	saver := &fakeSaver{saved: true}
	pusher := &fakePusher{result: push.Result{Successful: false, Reason: "gateway unreachable"}}
	coordinator := New(&fakeBoxLookup{box: pushBox()}, saver, pusher, zap.NewNop().Sugar(), time.Second)

	result := coordinator.SaveAndMaybePush(context.Background(), uuid.New(), uuid.Nil, models.ContentTypeJSON, []byte("{}"))
	require.Equal(t, models.DeliverySuccess, result.Outcome)
	require.Equal(t, 0, saver.updateCalls)
}

func TestSaveAndMaybePush_ExplicitNotificationIDIsPreserved(t *testing.T) {
	saver := &fakeSaver{saved: true}
	coordinator := New(&fakeBoxLookup{box: pullBox()}, saver, &fakePusher{}, zap.NewNop().Sugar(), time.Second)

	explicit := uuid.New()
	coordinator.SaveAndMaybePush(context.Background(), uuid.New(), explicit, models.ContentTypeJSON, []byte("{}"))
	require.Equal(t, explicit, saver.lastSavedID)
}
