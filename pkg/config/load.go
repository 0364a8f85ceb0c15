package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"crawl-core/pkg/utils"
)

// AppName names the per-user config directory
const AppName = "crawl-core"

// DefaultPath returns the per-user config file location.
// On Linux: ~/.config/crawl-core/config.yaml
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// ResolvePath returns explicit when set, otherwise DefaultPath if that file
// exists, otherwise "" (meaning built-in defaults).
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(DefaultPath()); err == nil {
		return DefaultPath()
	}
	return ""
}

// Load reads a YAML config file. An empty path yields an empty config.
// Defaults are not applied; call Validate for that.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config '%s': file does not exist", path)
		}
		return nil, fmt.Errorf("read config '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config '%s': %w", utils.ErrParsing, path, err)
	}
	return &cfg, nil
}
