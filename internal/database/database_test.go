package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/campus-forum/backend/internal/config"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage/memstore"
)

func TestOpenSQLite(t *testing.T) {
	cfg := &config.Config{
		Env:         "test",
		StoreDriver: config.DriverSQLite,
		DatabaseURL: "sqlite://" + filepath.Join(t.TempDir(), "forum.db"),
	}
	store, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	health := Health(context.Background(), store)
	assert.Equal(t, "up", health["status"])
	assert.Contains(t, health, "open_connections")
}

func TestOpenMemory(t *testing.T) {
	store, err := Open(context.Background(), &config.Config{Env: "test", StoreDriver: config.DriverMemory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	assert.IsType(t, &memstore.Store{}, store)
	assert.Equal(t, "up", Health(context.Background(), store)["status"])
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreDriver: "oracle"})
	assert.Error(t, err)
}

func TestOpenGormRejectsUnknownScheme(t *testing.T) {
	_, err := OpenGorm("mysql://localhost/forum", true)
	assert.Error(t, err)
}

type downStore struct {
	storage.Store
}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthReportsDown(t *testing.T) {
	health := Health(context.Background(), downStore{Store: memstore.New()})
	assert.Equal(t, "down", health["status"])
	assert.Contains(t, health["error"], "connection refused")

	health = Health(context.Background(), memstore.New())
	assert.Equal(t, "up", health["status"])
	assert.NotContains(t, health, "open_connections")
}
