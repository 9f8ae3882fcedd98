package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// configTemplate is the commented sample configuration written by
// InitConfig/InitConfigToPath.
const configTemplate = `# sessionfsd Configuration File
#
# All values here may be overridden by an environment variable using the
# SESSIONFSD_<SECTION>_<KEY> naming convention, e.g. SESSIONFSD_LOGGING_LEVEL.

logging:
  level: INFO
  format: text
  output: stdout

# Session manager core: the path gate's root and the snapshot/commit
# copy chunk size.
session:
  root: %s
  chunk_size: 512
  snapshot_dir: /var/tmp

# HTTP control surface: health probes, session introspection, and
# OPEN/CLOSE/SHUTDOWN.
api:
  enabled: true
  address: ":8080"
  read_timeout: 10s
  write_timeout: 10s
  idle_timeout: 60s

metrics:
  enabled: false
  port: 9090

shutdown_timeout: 30s
`

// InitConfig creates a sample configuration file at the default location.
// Returns the path the file was written to.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a sample configuration file at path. Fails if a
// file already exists there unless force is set.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultRoot := filepath.Join(string(filepath.Separator), "var", "lib", "sessionfsd")
	content := fmt.Sprintf(configTemplate, defaultRoot)

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
