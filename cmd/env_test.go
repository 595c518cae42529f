package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oregrid/facility-cli/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Store: config.StoreConfig{
			FacilityDir: filepath.Join(dir, "facilities"),
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(dir, "relationships.db"),
		},
		Registry: config.RegistryConfig{
			Mode:         "snapshot",
			SnapshotPath: filepath.Join(dir, "registry.yaml"),
		},
	}
}

func TestOpenFacilityStore(t *testing.T) {
	c := testConfig(t)
	fs, err := openFacilityStore(c)
	require.NoError(t, err)
	assert.NotNil(t, fs)
	_, statErr := os.Stat(c.Store.FacilityDir)
	assert.NoError(t, statErr)
}

func TestOpenRelationshipStoreSQLite(t *testing.T) {
	rels, err := openRelationshipStore(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer rels.Close()
	assert.NotNil(t, rels)
}

func TestOpenRelationshipStoreUnknownDriver(t *testing.T) {
	c := testConfig(t)
	c.Store.Driver = "mysql"
	_, err := openRelationshipStore(context.Background(), c)
	assert.Error(t, err)
}

func TestOpenRegistrySnapshot(t *testing.T) {
	c := testConfig(t)
	require.NoError(t, os.WriteFile(c.Registry.SnapshotPath, []byte(
		"companies:\n  - company_id: c-bhp\n    registered_name: BHP Group Ltd\n    country_code: AU\n"), 0o644))

	reg, err := openRegistry(c)
	require.NoError(t, err)

	cands, err := reg.Query(context.Background(), "BHP Group", "AU")
	require.NoError(t, err)
	assert.Len(t, cands, 1)
}

func TestOpenRegistrySnapshotMissingFile(t *testing.T) {
	_, err := openRegistry(testConfig(t))
	assert.Error(t, err)
}

func TestOpenRegistryHTTP(t *testing.T) {
	c := testConfig(t)
	c.Registry.Mode = "http"
	c.Registry.BaseURL = "http://localhost:9999"

	reg, err := openRegistry(c)
	require.NoError(t, err)
	assert.NotNil(t, reg)
}

func TestOpenRegistryUnknownMode(t *testing.T) {
	c := testConfig(t)
	c.Registry.Mode = "ldap"
	_, err := openRegistry(c)
	assert.Error(t, err)
}
