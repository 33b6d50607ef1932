// Package delivery implements the DeliveryCoordinator component: the single
// entry point that orchestrates ingest -> persist -> (maybe) push ->
// status-update for one inbound notification.
package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agusu/ppns-hub/metrics"
	"github.com/agusu/ppns-hub/models"
	"github.com/agusu/ppns-hub/services/push"
)

// BoxLookup is the slice of BoxRegistry the coordinator needs.
type BoxLookup interface {
	GetBoxByID(ctx context.Context, boxID uuid.UUID) (*models.Box, error)
}

// NotificationSaver is the slice of NotificationStore the coordinator needs.
type NotificationSaver interface {
	Save(ctx context.Context, n models.Notification, plaintext []byte) (uuid.UUID, bool, error)
	UpdateStatus(ctx context.Context, notificationID uuid.UUID, status models.NotificationStatus) (models.Notification, error)
}

// Pusher is the slice of PushDispatcher the coordinator needs.
type Pusher interface {
	Push(ctx context.Context, box models.Box, notification models.Notification, message string) push.Result
}

// Coordinator is the DeliveryCoordinator component.
type Coordinator struct {
	boxes       BoxLookup
	store       NotificationSaver
	dispatcher  Pusher
	log         *zap.SugaredLogger
	pushTimeout time.Duration
}

func New(boxes BoxLookup, store NotificationSaver, dispatcher Pusher, log *zap.SugaredLogger, pushTimeout time.Duration) *Coordinator {
	return &Coordinator{boxes: boxes, store: store, dispatcher: dispatcher, log: log, pushTimeout: pushTimeout}
}

// SaveAndMaybePush is the DeliveryCoordinator's single entry point.
//
// notificationID may be uuid.Nil, in which case a fresh id is generated —
// callers that need explicit-id idempotence pass their own id.
func (c *Coordinator) SaveAndMaybePush(ctx context.Context, boxID uuid.UUID, notificationID uuid.UUID, contentType models.ContentType, payload []byte) models.DeliveryResult {
	box, err := c.boxes.GetBoxByID(ctx, boxID)
	if err != nil {
		return models.DeliveryResult{Outcome: models.DeliveryStorageFailure, Reason: err.Error()}
	}
	if box == nil {
		return models.DeliveryResult{Outcome: models.DeliveryBoxNotFound, Reason: "BoxId: " + boxID.String() + " not found"}
	}

	if notificationID == uuid.Nil {
		notificationID = uuid.New()
	}

	notification := models.Notification{
		NotificationID:     notificationID,
		BoxID:              boxID,
		MessageContentType: contentType,
		Status:             models.StatusPending,
		CreatedDateTime:    time.Now().UTC(),
	}

	_, saved, err := c.store.Save(ctx, notification, payload)
	if err != nil {
		return models.DeliveryResult{Outcome: models.DeliveryStorageFailure, Reason: err.Error()}
	}
	if !saved {
		return models.DeliveryResult{Outcome: models.DeliveryDuplicateSuppressed}
	}

	metrics.NotificationsIngested.Inc()

	if !box.Subscriber.IsPush() {
		return models.DeliveryResult{Outcome: models.DeliverySuccess}
	}

	// Best-effort: push failure must not fail the publish. Bound the
	// attempt so a slow gateway cannot hold the inbound request open
	// indefinitely; the sweeper will retry it regardless.
	pushCtx, cancel := context.WithTimeout(ctx, c.pushTimeout)
	defer cancel()

	result := c.dispatcher.Push(pushCtx, *box, notification, string(payload))
	if result.Successful {
		if _, err := c.store.UpdateStatus(ctx, notificationID, models.StatusAcknowledged); err != nil {
			c.log.Errorw("delivery: failed to record acknowledgement after successful push",
				"notificationId", notificationID, "error", err)
		}
	} else {
		c.log.Infow("delivery: ingest-time push failed, leaving PENDING for sweeper",
			"notificationId", notificationID, "boxId", boxID, "reason", result.Reason)
	}

	return models.DeliveryResult{Outcome: models.DeliverySuccess}
}
