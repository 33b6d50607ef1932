// Package boxes implements the BoxRegistry component: CRUD on boxes,
// subscriber binding, and uniqueness of (clientId, boxName).
package boxes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agusu/ppns-hub/models"
)

var (
	// ErrBoxNotFound is returned when an operation references a box that
	// does not exist.
	ErrBoxNotFound = errors.New("boxes: box not found")
	// ErrUnauthorized is returned when the caller's clientId does not
	// match the box's creator.
	ErrUnauthorized = errors.New("boxes: clientId does not match boxCreator")
)

// Registry is the BoxRegistry component.
type Registry struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// CreateBox creates a box owned by clientID, or returns the existing box for
// (clientID, boxName) without creating a duplicate row.
func (r *Registry) CreateBox(ctx context.Context, clientID, boxName string) models.BoxCreationResult {
	if boxName == "" {
		return models.BoxCreationResult{Outcome: models.BoxCreationFailed, Reason: "boxName must not be empty"}
	}

	existing, err := r.GetBoxByNameAndClientID(ctx, boxName, clientID)
	if err != nil {
		return models.BoxCreationResult{Outcome: models.BoxCreationFailed, Reason: err.Error()}
	}
	if existing != nil {
		return models.BoxCreationResult{Outcome: models.BoxRetrieved, Box: *existing}
	}

	box := models.Box{
		BoxID:      uuid.New(),
		BoxName:    boxName,
		BoxCreator: models.BoxCreator{ClientID: clientID},
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&box).Error; err != nil {
		// A concurrent CreateBox for the same (clientId, boxName) may have
		// won the race between our lookup and this insert; treat the
		// resulting unique-index violation as "already existed".
		if existing, lookupErr := r.GetBoxByNameAndClientID(ctx, boxName, clientID); lookupErr == nil && existing != nil {
			return models.BoxCreationResult{Outcome: models.BoxRetrieved, Box: *existing}
		}
		return models.BoxCreationResult{Outcome: models.BoxCreationFailed, Reason: err.Error()}
	}
	return models.BoxCreationResult{Outcome: models.BoxCreated, Box: box}
}

// GetBoxByNameAndClientID returns nil, nil when no such box exists.
func (r *Registry) GetBoxByNameAndClientID(ctx context.Context, boxName, clientID string) (*models.Box, error) {
	var box models.Box
	err := r.db.WithContext(ctx).
		Where("box_name = ? AND box_creator_client_id = ?", boxName, clientID).
		First(&box).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("boxes: lookup by name: %w", err)
	}
	return &box, nil
}

// GetBoxByID returns nil, nil when no such box exists.
func (r *Registry) GetBoxByID(ctx context.Context, boxID uuid.UUID) (*models.Box, error) {
	var box models.Box
	err := r.db.WithContext(ctx).First(&box, "box_id = ?", boxID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("boxes: lookup by id: %w", err)
	}
	return &box, nil
}

// UpdateSubscriber atomically replaces boxID's subscriber. Every caller must
// have already checked ownership (Authorize); this method enforces existence
// only.
func (r *Registry) UpdateSubscriber(ctx context.Context, boxID uuid.UUID, subscriber models.Subscriber) error {
	res := r.db.WithContext(ctx).Model(&models.Box{}).
		Where("box_id = ?", boxID).
		Updates(map[string]any{
			"subscriber_type":  subscriber.Type,
			"callback_url":     subscriber.CallbackURL,
			"subscriber_since": subscriber.Since,
		})
	if res.Error != nil {
		return fmt.Errorf("boxes: updating subscriber: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrBoxNotFound
	}
	return nil
}

// Authorize enforces the BoxRegistry-wide authorization contract: the
// caller's clientId must equal the box's creator.
func Authorize(box *models.Box, callerClientID string) error {
	if box == nil {
		return ErrBoxNotFound
	}
	if box.BoxCreator.ClientID != callerClientID {
		return ErrUnauthorized
	}
	return nil
}
