// Package events is the client for the external application-events sink
// that CallbackValidator notifies when a box's callback URL changes.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/agusu/ppns-hub/models"
)

// Sink emits audit events. Emit failures must never fail the caller's
// operation — that policy lives in the caller (CallbackValidator), not
// here; Sink just reports the error honestly.
type Sink interface {
	Emit(ctx context.Context, event models.CallbackURIUpdatedEvent) error
}

// HTTPSink posts events to {apiPlatformEventsUrl}/application-events/ppnsCallbackUriUpdated.
type HTTPSink struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPSink(baseURL string, timeout time.Duration) *HTTPSink {
	return &HTTPSink{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSink) Emit(ctx context.Context, event models.CallbackURIUpdatedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: encoding event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/application-events/ppnsCallbackUriUpdated", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("events: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("events: posting event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("events: sink returned status %d", resp.StatusCode)
	}
	return nil
}
