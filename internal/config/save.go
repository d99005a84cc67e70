package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const savedHeader = "# roomview configuration (defaults < file < flags)\n"

// Write encodes the config as YAML.
func (c *Config) Write(w io.Writer) error {
	if _, err := io.WriteString(w, savedHeader); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

// SaveTo writes the config to path. The file is written next to its
// destination and renamed, so a failed write leaves any old file intact.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := c.Write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Dump writes the config to path, or to stdout when path is "-".
func (c *Config) Dump(path string, stdout io.Writer) error {
	if path == "-" {
		return c.Write(stdout)
	}
	return c.SaveTo(path)
}
