package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationStatus is the notification lifecycle state. PENDING is the
// only non-terminal state; ACKNOWLEDGED and FAILED are absorbing.
type NotificationStatus string

const (
	StatusPending      NotificationStatus = "PENDING"
	StatusAcknowledged NotificationStatus = "ACKNOWLEDGED"
	StatusFailed       NotificationStatus = "FAILED"
)

// ContentType is the accepted shape of an inbound message body.
type ContentType string

const (
	ContentTypeJSON ContentType = "application/json"
	ContentTypeXML  ContentType = "application/xml"
)

// Notification is a single published message routed through a Box.
//
// EncryptedMessage holds the chacha20poly1305 ciphertext (nonce-prefixed)
// produced by cryptoutil.Cipher.Seal. The plaintext never touches this
// struct once persisted; NotificationStore decrypts on read and encrypts on
// write, so nothing outside the store ever sees ciphertext.
type Notification struct {
	NotificationID     uuid.UUID          `gorm:"column:notification_id;type:varchar(36);primaryKey;uniqueIndex:idx_notif_box_status,priority:1"`
	BoxID              uuid.UUID          `gorm:"column:box_id;type:varchar(36);index:idx_box_created,priority:1;uniqueIndex:idx_notif_box_status,priority:2;not null"`
	MessageContentType ContentType        `gorm:"column:message_content_type;size:32;not null"`
	EncryptedMessage   []byte             `gorm:"column:encrypted_message;type:blob;not null"`
	Status             NotificationStatus `gorm:"column:status;size:16;index;uniqueIndex:idx_notif_box_status,priority:3;not null"`
	CreatedDateTime    time.Time          `gorm:"column:created_date_time;index:idx_box_created,priority:2;not null"`
	RetryAfterDateTime *time.Time         `gorm:"column:retry_after_date_time;index"`
	ReadDateTime       *time.Time         `gorm:"column:read_date_time"`
	PushedDateTime     *time.Time         `gorm:"column:pushed_date_time"`
}

func (Notification) TableName() string { return "notifications" }

// Envelope is the JSON serialization pushed to the callback and signed with
// HMAC. Field order matches struct declaration order, which is what makes
// the signature reproducible: encoding/json always emits struct fields in
// declaration order.
type Envelope struct {
	NotificationID     uuid.UUID          `json:"notificationId"`
	BoxID              uuid.UUID          `json:"boxId"`
	MessageContentType ContentType        `json:"messageContentType"`
	Message            string             `json:"message"`
	Status             NotificationStatus `json:"status"`
	CreatedDateTime    time.Time          `json:"createdDateTime"`
}
