package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	appName = "imgspec"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the directory for runtime files (sockets, PIDs).
//
//	Linux:   $XDG_RUNTIME_DIR/imgspec or ~/.cache/imgspec/run
//	macOS:   ~/Library/Caches/imgspec/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, appName)
	}
	return filepath.Join(xdg.CacheHome, appName, "run")
}

// Default path to the Unix domain socket for CLI-to-daemon communication.
//
//	Linux:   $XDG_RUNTIME_DIR/imgspec/imgspec.sock
//	macOS:   ~/Library/Caches/imgspec/run/imgspec.sock
func Socket() string {
	return filepath.Join(Runtime(), appName+".sock")
}

// Default path to the PID file.
//
//	Linux:   $XDG_RUNTIME_DIR/imgspec/imgspec.pid
//	macOS:   ~/Library/Caches/imgspec/run/imgspec.pid
func PIDFile() string {
	return filepath.Join(Runtime(), appName+".pid")
}

// Path to the YAML configuration file holding flag defaults.
//
//	Linux:   $XDG_CONFIG_HOME/imgspec/config.yaml
//	macOS:   ~/Library/Application Support/imgspec/config.yaml
func ConfigFile() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}
