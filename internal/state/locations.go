package state

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edvin/deploykit/internal/metrics"
)

// locationsDocument is the unified on-disk record for a deployment: the node
// roles placed by provisioning plus the infrastructure metadata the deployment
// was started with. NodeInfo is kept opaque; this package only carries it
// through the migration.
type locationsDocument struct {
	NodeInfo           json.RawMessage   `json:"node_info"`
	InfrastructureInfo map[string]string `json:"infrastructure_info"`
}

// Group returns the security group created for this deployment.
func (s *Store) Group(keyname string) (string, error) {
	return s.InfrastructureOption(keyname, "group")
}

// Project returns the GCE project ID used for this deployment.
func (s *Store) Project(keyname string) (string, error) {
	return s.InfrastructureOption(keyname, "project")
}

// Zone returns the zone this deployment's instances run in.
func (s *Store) Zone(keyname string) (string, error) {
	return s.InfrastructureOption(keyname, "zone")
}

// AzureSubscriptionID returns the Azure subscription ID for this deployment.
func (s *Store) AzureSubscriptionID(keyname string) (string, error) {
	return s.InfrastructureOption(keyname, "azure_subscription_id")
}

// AzureAppID returns the Azure application ID for this deployment.
func (s *Store) AzureAppID(keyname string) (string, error) {
	return s.InfrastructureOption(keyname, "azure_app_id")
}

// AzureAppSecretKey returns the Azure application secret for this deployment.
func (s *Store) AzureAppSecretKey(keyname string) (string, error) {
	return s.InfrastructureOption(keyname, "azure_app_secret_key")
}

// AzureTenantID returns the Azure tenant ID for this deployment.
func (s *Store) AzureTenantID(keyname string) (string, error) {
	return s.InfrastructureOption(keyname, "azure_tenant_id")
}

// AzureResourceGroup returns the Azure resource group for this deployment.
func (s *Store) AzureResourceGroup(keyname string) (string, error) {
	return s.InfrastructureOption(keyname, "azure_resource_group")
}

// AzureStorageAccount returns the Azure storage account for this deployment.
func (s *Store) AzureStorageAccount(keyname string) (string, error) {
	return s.InfrastructureOption(keyname, "azure_storage_account")
}

// InfrastructureOption returns one infrastructure_info field from the
// deployment's locations document, migrating the legacy two-file layout to
// the unified document first when necessary. A field that is not set for
// this deployment's cloud returns "" without error.
func (s *Store) InfrastructureOption(keyname, tag string) (string, error) {
	doc, err := s.loadLocations(keyname)
	if err != nil {
		return "", err
	}
	return doc.InfrastructureInfo[tag], nil
}

// loadLocations reads and decodes the locations document. The legacy layout
// is detected structurally: its JSON file holds a bare node-role list instead
// of the unified mapping. Detection runs on every load so a never-migrated
// deployment pays the migration cost exactly once, on first access.
func (s *Store) loadLocations(keyname string) (*locationsDocument, error) {
	path := s.LocationsJSONPath(keyname)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigNotFoundError{Keyname: keyname, Err: err}
	}

	var doc locationsDocument
	if err := json.Unmarshal(data, &doc); err == nil {
		return &doc, nil
	}

	var legacyRoles []json.RawMessage
	if err := json.Unmarshal(data, &legacyRoles); err != nil {
		return nil, fmt.Errorf("parse locations file for keyname %q: %w", keyname, err)
	}

	if err := s.Upgrade(keyname); err != nil {
		return nil, err
	}

	// Re-read so this call already sees the unified shape.
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, &ConfigNotFoundError{Keyname: keyname, Err: err}
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &MigrationError{Keyname: keyname, Err: err}
	}
	return &doc, nil
}

// Upgrade folds the legacy two-file layout (JSON node-role list plus YAML
// infrastructure mapping) into the unified locations document. The legacy
// YAML file is removed only after the unified document has been written; a
// failed removal is logged and otherwise ignored since the JSON file is
// authoritative from that point on.
func (s *Store) Upgrade(keyname string) error {
	jsonPath := s.LocationsJSONPath(keyname)
	yamlPath := s.LocationsYAMLPath(keyname)

	roleData, err := os.ReadFile(jsonPath)
	if err != nil {
		return &MigrationError{Keyname: keyname, Err: err}
	}
	var nodeInfo json.RawMessage
	if err := json.Unmarshal(roleData, &nodeInfo); err != nil {
		return &MigrationError{Keyname: keyname, Err: err}
	}

	infraData, err := os.ReadFile(yamlPath)
	if err != nil {
		return &MigrationError{Keyname: keyname, Err: err}
	}
	var infraInfo map[string]string
	if err := yaml.Unmarshal(infraData, &infraInfo); err != nil {
		return &MigrationError{Keyname: keyname, Err: err}
	}

	unified, err := json.Marshal(locationsDocument{
		NodeInfo:           nodeInfo,
		InfrastructureInfo: infraInfo,
	})
	if err != nil {
		return &MigrationError{Keyname: keyname, Err: err}
	}
	if err := os.WriteFile(jsonPath, unified, 0600); err != nil {
		return &MigrationError{Keyname: keyname, Err: err}
	}

	metrics.LocationsMigrations.Inc()
	s.logger.Info().Str("keyname", keyname).Msg("migrated legacy locations files to unified document")

	if err := os.Remove(yamlPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn().Err(err).Str("keyname", keyname).Msg("could not remove legacy locations YAML file")
	}
	return nil
}
