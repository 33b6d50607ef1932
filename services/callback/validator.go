// Package callback implements the CallbackValidator component: verifying a
// candidate callback URL via the gateway before persisting it, and emitting
// an audit event on change.
package callback

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agusu/ppns-hub/events"
	"github.com/agusu/ppns-hub/gateway"
	"github.com/agusu/ppns-hub/metrics"
	"github.com/agusu/ppns-hub/models"
	"github.com/agusu/ppns-hub/services/boxes"
)

// BoxLookupUpdater is the slice of BoxRegistry the validator needs.
type BoxLookupUpdater interface {
	GetBoxByID(ctx context.Context, boxID uuid.UUID) (*models.Box, error)
	UpdateSubscriber(ctx context.Context, boxID uuid.UUID, subscriber models.Subscriber) error
}

// Validator is the CallbackValidator component.
type Validator struct {
	boxes   BoxLookupUpdater
	gateway gateway.Client
	sink    events.Sink
	log     *zap.SugaredLogger
}

func New(boxRegistry BoxLookupUpdater, gw gateway.Client, sink events.Sink, log *zap.SugaredLogger) *Validator {
	return &Validator{boxes: boxRegistry, gateway: gw, sink: sink, log: log}
}

// ValidateCallbackURL validates a candidate callback URL through the
// gateway, persists it, and emits an audit event when it changes.
func (v *Validator) ValidateCallbackURL(ctx context.Context, boxID uuid.UUID, req models.UpdateCallbackURLRequest) models.CallbackResult {
	box, err := v.boxes.GetBoxByID(ctx, boxID)
	if err != nil {
		return models.CallbackResult{Outcome: models.CallbackUnableToUpdate, Reason: err.Error()}
	}
	if box == nil {
		return models.CallbackResult{Outcome: models.CallbackBoxNotFound}
	}
	if err := boxes.Authorize(box, req.ClientID); err != nil {
		return models.CallbackResult{Outcome: models.CallbackUnauthorized, Reason: err.Error()}
	}

	oldURL := box.Subscriber.CallbackURL

	if req.CallbackURL == "" {
		// Clearing the callback URL bypasses validation entirely.
		if err := v.boxes.UpdateSubscriber(ctx, boxID, models.Subscriber{Type: models.SubscriberPull, Since: time.Now().UTC()}); err != nil {
			return models.CallbackResult{Outcome: models.CallbackUnableToUpdate, Reason: err.Error()}
		}
		metrics.CallbackValidations.WithLabelValues("cleared").Inc()
		v.emitIfChanged(ctx, box, oldURL, "")
		return models.CallbackResult{Outcome: models.CallbackUpdated}
	}

	validation, err := v.gateway.ValidateCallback(ctx, req.CallbackURL)
	if err != nil {
		metrics.CallbackValidations.WithLabelValues("error").Inc()
		return models.CallbackResult{Outcome: models.CallbackValidationFailed, Reason: err.Error()}
	}
	if !validation.Successful {
		reason := validation.ErrorMessage
		if reason == "" {
			reason = "Unknown Error"
		}
		metrics.CallbackValidations.WithLabelValues("rejected").Inc()
		return models.CallbackResult{Outcome: models.CallbackValidationFailed, Reason: reason}
	}

	if err := v.boxes.UpdateSubscriber(ctx, boxID, models.Subscriber{
		Type:        models.SubscriberPush,
		CallbackURL: req.CallbackURL,
		Since:       time.Now().UTC(),
	}); err != nil {
		return models.CallbackResult{Outcome: models.CallbackUnableToUpdate, Reason: err.Error()}
	}

	metrics.CallbackValidations.WithLabelValues("accepted").Inc()
	v.emitIfChanged(ctx, box, oldURL, req.CallbackURL)
	return models.CallbackResult{Outcome: models.CallbackUpdated}
}

// emitIfChanged emits the audit event when the URL actually changed. Audit
// emission failure must never fail the update: it is logged and swallowed
// here, after UpdateSubscriber has already committed.
func (v *Validator) emitIfChanged(ctx context.Context, box *models.Box, oldURL, newURL string) {
	if oldURL == newURL {
		return
	}
	event := models.CallbackURIUpdatedEvent{
		EventID:        uuid.New(),
		ApplicationID:  box.ApplicationID,
		EventDateTime:  time.Now().UTC(),
		OldCallbackURL: oldURL,
		NewCallbackURL: newURL,
		BoxID:          box.BoxID,
		BoxName:        box.BoxName,
		Actor:          models.Actor{ID: "", ActorType: "UNKNOWN"},
		EventType:      models.EventTypeCallbackURIUpdated,
	}
	if err := v.sink.Emit(ctx, event); err != nil {
		v.log.Warnw("callback: audit emit failed, continuing", "boxId", box.BoxID, "error", err)
	}
}
