package configpaths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "rawpad"

// Base names searched for flag configuration, in priority order.
var candidateBases = []string{"rawpad", "config", "run"}

// DefaultConfigDir returns the platform-specific configuration directory for rawpad.
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if appdata := os.Getenv("AppData"); appdata != "" {
			return filepath.Join(appdata, appName), nil
		}
		return "", errors.New("AppData not set")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".config", appName), nil
		}
		return "", errors.New("HOME not set")
	}
}

// ViiperKeyFile is where a local VIIPER server keeps its generated API
// password.
func ViiperKeyFile() (string, error) {
	var dir string
	switch runtime.GOOS {
	case "windows":
		appdata := os.Getenv("AppData")
		if appdata == "" {
			return "", errors.New("AppData not set")
		}
		dir = filepath.Join(appdata, "VIIPER")
	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home := os.Getenv("HOME")
			if home == "" {
				return "", errors.New("HOME not set")
			}
			base = filepath.Join(home, ".config")
		}
		dir = filepath.Join(base, "viiper")
	}
	return filepath.Join(dir, "viiper.key.txt"), nil
}

// DefaultProfilePath is where the mapping profile lives unless overridden.
func DefaultProfilePath() (string, error) {
	return DefaultNamedConfigPath("profile", "json")
}

// DefaultNamedConfigPath returns the default config file path for the given format and base name (e.g., "profile").
func DefaultNamedConfigPath(baseName, format string) (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, baseName+"."+Extension(format)), nil
}

// Extension maps a format name to its file extension; unknown formats are json.
func Extension(format string) string {
	switch format {
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	}
	return "json"
}

// FormatOf guesses a document format from a file path's extension.
func FormatOf(path string) string {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	}
	return "json"
}

// EnsureDir ensures the directory for a given file path exists.
func EnsureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return os.MkdirAll(dir, 0o755)
}

// ConfigCandidatePaths builds candidate paths for config files per format.
// If userPath is provided, it is prioritized and routed to the matching loader by extension.
func ConfigCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	add := func(slice *[]string, p string) { *slice = append(*slice, p) }
	addAll := func(dir string) {
		for _, base := range candidateBases {
			add(&jsonPaths, filepath.Join(dir, base+".json"))
			add(&yamlPaths, filepath.Join(dir, base+".yaml"))
			add(&yamlPaths, filepath.Join(dir, base+".yml"))
			add(&tomlPaths, filepath.Join(dir, base+".toml"))
		}
	}

	if userPath != "" {
		switch FormatOf(userPath) {
		case "yaml":
			add(&yamlPaths, userPath)
		case "toml":
			add(&tomlPaths, userPath)
		default:
			add(&jsonPaths, userPath)
		}
	}

	// Working directory candidates
	if wd, err := os.Getwd(); err == nil {
		addAll(wd)
	}

	// Config home
	if dir, err := DefaultConfigDir(); err == nil {
		addAll(dir)
	}

	// System-wide (unix)
	if runtime.GOOS != "windows" {
		addAll(filepath.Join("/etc", appName))
	}

	return
}
