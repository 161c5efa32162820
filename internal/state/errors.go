package state

import "fmt"

// ConfigNotFoundError reports that the locations file for a deployment could
// not be opened, usually because no deployment is running under that keyname.
type ConfigNotFoundError struct {
	Keyname string
	Err     error
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("couldn't read from locations file, deployment may not be running with keyname %q", e.Keyname)
}

func (e *ConfigNotFoundError) Unwrap() error { return e.Err }

// MigrationError reports a failed legacy-to-unified locations migration.
// The deployment directory may be corrupted or partially migrated.
type MigrationError struct {
	Keyname string
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("couldn't upgrade locations file for keyname %q: %v", e.Keyname, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }
