package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/listx/internal/config"
	"github.com/oakwood-commons/listx/pkg/settings"
)

// resolveConfigPath returns the explicit configFile if set, otherwise the XDG path
// ($XDG_CONFIG_HOME/listx/config.yaml) or ~/.config/listx/config.yaml if present.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	xdg := os.Getenv("XDG_CONFIG_HOME")
	candidate := ""
	if xdg != "" {
		candidate = filepath.Join(xdg, settings.CliBinaryName, "config.yaml")
	} else if home, err := os.UserHomeDir(); err == nil {
		candidate = filepath.Join(home, ".config", settings.CliBinaryName, "config.yaml")
	}
	if candidate != "" {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate
		}
	}
	return ""
}

// loadConfig merges the resolved user file over the embedded defaults.
func loadConfig(explicit string) (config.Config, string, error) {
	path := resolveConfigPath(explicit)
	cfg, err := config.Load(path)
	return cfg, path, err
}

// writeMergedConfig prints the merged configuration as YAML with a header
// naming where it came from.
func writeMergedConfig(w io.Writer, cfg config.Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	source := "embedded defaults"
	if path != "" {
		source = "embedded defaults merged with " + path
	}
	fmt.Fprintf(w, "# %s configuration (%s)\n", settings.CliBinaryName, source)
	out := string(data)
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err = io.WriteString(w, out)
	return err
}
