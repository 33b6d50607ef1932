package clients

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agusu/ppns-hub/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	db, err := gorm.Open(dsn, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Client{}, &models.ClientSecret{}))
	return db
}

func TestFindOrCreateClient_CreatesSecretOnFirstCall(t *testing.T) {
	registry := New(newTestDB(t))
	ctx := context.Background()

	client, err := registry.FindOrCreateClient(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, "client-1", client.ClientID)

	secrets, found, err := registry.GetClientSecrets(ctx, "client-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, secrets, 1)
	require.NotEmpty(t, secrets[0])
}

func TestFindOrCreateClient_IsIdempotent(t *testing.T) {
	registry := New(newTestDB(t))
	ctx := context.Background()

	_, err := registry.FindOrCreateClient(ctx, "client-1")
	require.NoError(t, err)
	secretsBefore, _, err := registry.GetClientSecrets(ctx, "client-1")
	require.NoError(t, err)

	_, err = registry.FindOrCreateClient(ctx, "client-1")
	require.NoError(t, err)
	secretsAfter, _, err := registry.GetClientSecrets(ctx, "client-1")
	require.NoError(t, err)

	require.Equal(t, secretsBefore, secretsAfter)
}

func TestGetClientSecrets_UnknownClient(t *testing.T) {
	registry := New(newTestDB(t))
	ctx := context.Background()

	secrets, found, err := registry.GetClientSecrets(ctx, "nobody")
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, secrets)
}
