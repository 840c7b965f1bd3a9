package application

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passvault/internal/domain/model"
)

func TestGetVaultService_SingletonPerConfig(t *testing.T) {
	t.Cleanup(func() { _ = ResetVaultServices() })

	dir := t.TempDir()
	cfgA := VaultConfig{DBPath: filepath.Join(dir, "a.db")}
	cfgB := VaultConfig{DBPath: filepath.Join(dir, "b.db")}

	svcA1, err := GetVaultService(cfgA, nil)
	require.NoError(t, err)
	svcA2, err := GetVaultService(cfgA, nil)
	require.NoError(t, err)
	svcB, err := GetVaultService(cfgB, nil)
	require.NoError(t, err)

	assert.Same(t, svcA1, svcA2, "equal configs share one instance")
	assert.NotSame(t, svcA1, svcB, "distinct configs get distinct instances")
}

func TestGetVaultService_LazyOpenPersists(t *testing.T) {
	t.Cleanup(func() { _ = ResetVaultServices() })

	cfg := VaultConfig{DBPath: filepath.Join(t.TempDir(), "vault.db")}
	svc, err := GetVaultService(cfg, nil)
	require.NoError(t, err)

	rec, err := svc.Create(context.Background(), model.RecordInput{
		Service:  "Gmail",
		Username: "alice",
		Password: "secret",
	})
	require.NoError(t, err)

	// A reset closes the database; the next GetVaultService reopens the same
	// file and must see the persisted record.
	require.NoError(t, ResetVaultServices())

	svc2, err := GetVaultService(cfg, nil)
	require.NoError(t, err)
	assert.NotSame(t, svc, svc2)

	found, err := svc2.FindByID(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Gmail", found.Service)
}

func TestGetVaultService_BadPathFails(t *testing.T) {
	t.Cleanup(func() { _ = ResetVaultServices() })

	_, err := GetVaultService(VaultConfig{DBPath: filepath.Join(t.TempDir(), "missing", "nested", "vault.db")}, nil)
	assert.Error(t, err)
}
