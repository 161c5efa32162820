package state

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(zerolog.Nop(), t.TempDir())
}

func writeLegacyLayout(t *testing.T, s *Store, keyname string) {
	t.Helper()
	require.NoError(t, os.WriteFile(s.LocationsJSONPath(keyname), []byte(`["nodeA","nodeB"]`), 0600))
	require.NoError(t, os.WriteFile(s.LocationsYAMLPath(keyname), []byte("zone: us-east1\n"), 0600))
}

func TestZone_MigratesLegacyLayout(t *testing.T) {
	s := newTestStore(t)
	writeLegacyLayout(t, s, "boo")

	zone, err := s.Zone("boo")
	require.NoError(t, err)
	assert.Equal(t, "us-east1", zone)

	// The on-disk document is now the unified shape.
	data, err := os.ReadFile(s.LocationsJSONPath("boo"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, map[string]any{
		"node_info":           []any{"nodeA", "nodeB"},
		"infrastructure_info": map[string]any{"zone": "us-east1"},
	}, doc)

	assert.NoFileExists(t, s.LocationsYAMLPath("boo"))
}

func TestInfrastructureOption_MigratesOnlyOnce(t *testing.T) {
	s := newTestStore(t)
	writeLegacyLayout(t, s, "boo")

	_, err := s.Zone("boo")
	require.NoError(t, err)
	assert.NoFileExists(t, s.LocationsYAMLPath("boo"))

	migrated, err := os.ReadFile(s.LocationsJSONPath("boo"))
	require.NoError(t, err)

	zone, err := s.Zone("boo")
	require.NoError(t, err)
	assert.Equal(t, "us-east1", zone)

	after, err := os.ReadFile(s.LocationsJSONPath("boo"))
	require.NoError(t, err)
	assert.Equal(t, migrated, after)
}

func TestInfrastructureOption_UnifiedDocumentNotRewritten(t *testing.T) {
	s := newTestStore(t)
	// Spacing that a re-serialization would not reproduce.
	original := []byte(`{ "node_info": ["nodeA"],  "infrastructure_info": {"zone": "us-east1"} }`)
	require.NoError(t, os.WriteFile(s.LocationsJSONPath("boo"), original, 0600))

	value, err := s.InfrastructureOption("boo", "project")
	require.NoError(t, err)
	assert.Equal(t, "", value)

	after, err := os.ReadFile(s.LocationsJSONPath("boo"))
	require.NoError(t, err)
	assert.Equal(t, original, after)
}

func TestInfrastructureOption_AbsentFieldIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.LocationsJSONPath("boo"),
		[]byte(`{"node_info": [], "infrastructure_info": {"zone": "us-east1"}}`), 0600))

	value, err := s.InfrastructureOption("boo", "azure_tenant_id")
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestInfrastructureOption_MissingLocationsFile(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Zone("gone")
	require.Error(t, err)

	var notFound *ConfigNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "gone", notFound.Keyname)
	assert.Contains(t, err.Error(), "gone")
}

func TestNamedGetters(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.LocationsJSONPath("boo"), []byte(`{
		"node_info": [],
		"infrastructure_info": {
			"group": "deploykit-group",
			"project": "my-project",
			"zone": "us-east1",
			"azure_subscription_id": "sub-1",
			"azure_app_id": "app-1",
			"azure_app_secret_key": "secret-1",
			"azure_tenant_id": "tenant-1",
			"azure_resource_group": "rg-1",
			"azure_storage_account": "sa-1"
		}
	}`), 0600))

	getters := map[string]func(string) (string, error){
		"deploykit-group": s.Group,
		"my-project":      s.Project,
		"us-east1":        s.Zone,
		"sub-1":           s.AzureSubscriptionID,
		"app-1":           s.AzureAppID,
		"secret-1":        s.AzureAppSecretKey,
		"tenant-1":        s.AzureTenantID,
		"rg-1":            s.AzureResourceGroup,
		"sa-1":            s.AzureStorageAccount,
	}
	for want, getter := range getters {
		got, err := getter("boo")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestUpgrade_MissingYAMLFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.LocationsJSONPath("boo"), []byte(`["nodeA"]`), 0600))

	err := s.Upgrade("boo")
	require.Error(t, err)

	var migErr *MigrationError
	require.ErrorAs(t, err, &migErr)
	assert.Equal(t, "boo", migErr.Keyname)
	assert.True(t, os.IsNotExist(migErr.Err))
}

func TestUpgrade_MissingJSONFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.LocationsYAMLPath("boo"), []byte("zone: us-east1\n"), 0600))

	err := s.Upgrade("boo")
	require.Error(t, err)

	var migErr *MigrationError
	require.ErrorAs(t, err, &migErr)
}

func TestInfrastructureOption_CorruptLocationsFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.LocationsJSONPath("boo"), []byte(`not json at all`), 0600))

	_, err := s.Zone("boo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse locations file")
}
