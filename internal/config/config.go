package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dkoosis/simrun/pkg/simtool"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory and the
// user config directory.
const FileName = ".simrun.yaml"

// FileConfig represents .simrun.yaml. Zero values mean "not set".
type FileConfig struct {
	RepoRoot      string         `yaml:"repo_root"`
	Jobs          int            `yaml:"jobs"`
	TimeoutClocks int            `yaml:"timeout_clocks"`
	LogLevel      string         `yaml:"log_level"`
	Theme         string         `yaml:"theme"`
	Format        string         `yaml:"format"`
	History       string         `yaml:"history"`
	Strict        bool           `yaml:"strict"`
	Tool          simtool.Config `yaml:"tool"`
}

// LoadFile reads the config file at path, or looks one up when path is empty.
// A missing lookup result is not an error; an explicit path that cannot be
// read is. The returned string is the path actually loaded, if any.
func LoadFile(path string) (*FileConfig, string, error) {
	explicit := path != ""
	if !explicit {
		path = getConfigPath()
		if path == "" {
			slog.Debug("no config file found, using defaults")
			return &FileConfig{}, "", nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return &FileConfig{}, "", nil
		}
		return nil, "", fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, "", fmt.Errorf("parsing config file %s: %w", path, err)
	}
	slog.Debug("loaded config file", "path", path)
	return &fc, path, nil
}

// getConfigPath checks the local directory first, then the user config dir.
func getConfigPath() string {
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}

	configHome, err := os.UserConfigDir()
	if err != nil || configHome == "" || configHome == "/" {
		return ""
	}
	xdgPath := filepath.Join(configHome, "simrun", FileName)
	if _, err := os.Stat(xdgPath); err == nil {
		return xdgPath
	}
	return ""
}
