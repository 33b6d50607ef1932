package models

import "time"

// ClientSecret is an opaque, URL-safe signing secret handed out to a Client.
// The first secret a Client owns is active; the rest are honoured only for
// signature verification during a rotation window.
type ClientSecret struct {
	ID        uint   `gorm:"primaryKey"`
	ClientID  string `gorm:"column:client_id;index;not null"`
	Secret    string `gorm:"column:secret;not null"`
	Position  int    `gorm:"column:position;not null"` // 0 = active
	CreatedAt time.Time
}

// Client is an external identity that owns boxes and signs pushed envelopes.
// A Client is created lazily on first reference and is never deleted.
type Client struct {
	ClientID  string `gorm:"column:client_id;type:varchar(191);primaryKey"`
	CreatedAt time.Time
}

func (Client) TableName() string { return "clients" }

func (ClientSecret) TableName() string { return "client_secrets" }
