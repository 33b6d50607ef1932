package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriberType tags the two shapes a Box's consumer binding can take.
type SubscriberType string

const (
	SubscriberPush SubscriberType = "PUSH"
	SubscriberPull SubscriberType = "PULL"
)

// Subscriber is the tagged variant Push{url,since} | Pull{since} from the
// design notes, flattened into columns because gorm has no native sum type.
// A zero-value Subscriber (Type == "") means "no subscriber bound yet".
type Subscriber struct {
	Type        SubscriberType `gorm:"column:subscriber_type;size:8"`
	CallbackURL string         `gorm:"column:callback_url"`
	Since       time.Time      `gorm:"column:subscriber_since"`
}

// IsPush reports whether this is a valid push subscriber: type PUSH with a
// non-empty callback URL. An empty-URL push subscriber is not valid — the
// box behaves as pull-only in that case.
func (s Subscriber) IsPush() bool {
	return s.Type == SubscriberPush && s.CallbackURL != ""
}

// BoxCreator identifies the owning client of a Box.
type BoxCreator struct {
	ClientID string `gorm:"column:box_creator_client_id;uniqueIndex:idx_box_client_name,priority:1;not null"`
}

// Box is a named mailbox owned by a client; the unit of subscription and the
// destination of publishes. boxName is unique per clientId, enforced by the
// idx_box_client_name composite unique index spanning BoxCreator.ClientID
// and BoxName.
type Box struct {
	BoxID         uuid.UUID `gorm:"column:box_id;type:varchar(36);primaryKey"`
	BoxName       string    `gorm:"column:box_name;uniqueIndex:idx_box_client_name,priority:2;not null"`
	ApplicationID string    `gorm:"column:application_id"`
	BoxCreator
	Subscriber
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName is explicit because "Box" pluralises awkwardly across dialects.
func (Box) TableName() string { return "boxes" }
