// Package clients implements the ClientRegistry component: lazy creation of
// API clients and generation/lookup of their signing secrets.
package clients

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/agusu/ppns-hub/models"
)

// Registry is the ClientRegistry component.
type Registry struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// FindOrCreateClient is idempotent: if the client is absent, it generates a
// fresh random secret of at least 128 bits, URL-safe, and persists the
// client before returning it.
func (r *Registry) FindOrCreateClient(ctx context.Context, clientID string) (models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&client, "client_id = ?", clientID).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		secret, err := generateSecret()
		if err != nil {
			return err
		}

		client = models.Client{ClientID: clientID}
		if err := tx.Create(&client).Error; err != nil {
			return err
		}
		clientSecret := models.ClientSecret{
			ClientID:  clientID,
			Secret:    secret,
			Position:  0,
			CreatedAt: time.Now().UTC(),
		}
		return tx.Create(&clientSecret).Error
	})
	if err != nil {
		return models.Client{}, fmt.Errorf("clients: find-or-create %s: %w", clientID, err)
	}
	return client, nil
}

// GetClientSecrets returns the ordered secrets for a client, active first.
// The bool is false when the client has never been seen.
func (r *Registry) GetClientSecrets(ctx context.Context, clientID string) ([]string, bool, error) {
	var rows []models.ClientSecret
	if err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, false, fmt.Errorf("clients: loading secrets for %s: %w", clientID, err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	secrets := make([]string, len(rows))
	for i, row := range rows {
		secrets[i] = row.Secret
	}
	return secrets, true, nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 16) // 128 bits
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("clients: generating secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
