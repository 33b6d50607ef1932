// Package push implements the PushDispatcher component: turning a
// (Box, Notification) into a single signed outbound HTTP POST via the
// gateway, and classifying the outcome.
package push

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // spec-mandated: X-Hub-Signature is HMAC-SHA1.
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agusu/ppns-hub/gateway"
	"github.com/agusu/ppns-hub/metrics"
	"github.com/agusu/ppns-hub/models"
)

// SignatureHeader is the forwarded header name carrying the HMAC.
const SignatureHeader = "X-Hub-Signature"

// SecretResolver resolves a client's active signing secret, creating the
// client if it does not exist yet — the ClientRegistry's contract.
type SecretResolver interface {
	FindOrCreateClient(ctx context.Context, clientID string) (models.Client, error)
	GetClientSecrets(ctx context.Context, clientID string) ([]string, bool, error)
}

// Result is the outcome PushDispatcher.Push returns. No error escapes this
// component: transport, parse, and timeout failures are all folded into
// Result.
type Result struct {
	Successful bool
	Reason     string
}

// Dispatcher is the PushDispatcher component.
type Dispatcher struct {
	secrets SecretResolver
	gateway gateway.Client
	log     *zap.SugaredLogger
}

func New(secrets SecretResolver, gw gateway.Client, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{secrets: secrets, gateway: gw, log: log}
}

// Push builds the envelope, signs it, calls the gateway, and classifies the
// result. box must have a valid push subscriber; callers check that first
// (DeliveryCoordinator and RetrySweeper both already filter on it).
func (d *Dispatcher) Push(ctx context.Context, box models.Box, notification models.Notification, message string) Result {
	start := time.Now()
	defer func() {
		metrics.PushDuration.Observe(time.Since(start).Seconds())
	}()

	if _, err := d.secrets.FindOrCreateClient(ctx, box.BoxCreator.ClientID); err != nil {
		return d.fail(fmt.Sprintf("resolving client: %v", err))
	}
	secrets, ok, err := d.secrets.GetClientSecrets(ctx, box.BoxCreator.ClientID)
	if err != nil {
		return d.fail(fmt.Sprintf("loading secrets: %v", err))
	}
	if !ok || len(secrets) == 0 {
		return d.fail("client has no active signing secret")
	}
	activeSecret := secrets[0]

	envelope := models.Envelope{
		NotificationID:     notification.NotificationID,
		BoxID:              notification.BoxID,
		MessageContentType: notification.MessageContentType,
		Message:            message,
		Status:             notification.Status,
		CreatedDateTime:    notification.CreatedDateTime,
	}
	envelopeBytes, err := json.Marshal(envelope)
	if err != nil {
		return d.fail(fmt.Sprintf("encoding envelope: %v", err))
	}

	signature := Sign(activeSecret, envelopeBytes)

	outbound := gateway.OutboundNotification{
		DestinationURL: box.Subscriber.CallbackURL,
		ForwardedHeaders: []gateway.Header{
			{Key: SignatureHeader, Value: signature},
		},
		Payload: envelopeBytes,
	}

	result, err := d.gateway.Notify(ctx, outbound)
	if err != nil {
		return d.fail(err.Error())
	}
	if !result.Successful {
		return d.fail("PPNS Gateway was unable to successfully deliver notification")
	}

	metrics.PushesAttempted.WithLabelValues("success").Inc()
	return Result{Successful: true}
}

func (d *Dispatcher) fail(reason string) Result {
	metrics.PushesAttempted.WithLabelValues("failed").Inc()
	d.log.Warnw("push: delivery failed", "reason", reason)
	return Result{Successful: false, Reason: reason}
}

// Sign computes the lowercase-hex HMAC-SHA1 of payload under secret — the
// algorithm the X-Hub-Signature header carries.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
