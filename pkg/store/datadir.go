package store

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/mitchellh/go-homedir"
)

// AppName names the data directory.
const AppName = "wellspring"

// dirEnv is the per-OS order of environment variables naming a base data
// directory. The first one set wins.
var dirEnv = map[string][]string{
	"windows": {"LOCALAPPDATA", "APPDATA"},
	"darwin":  nil,
}

// DefaultDataDir returns where goals live when no directory is configured:
//
//   - macOS:   ~/Library/Application Support/wellspring
//   - Windows: %LOCALAPPDATA%\wellspring, then %APPDATA%\wellspring
//   - others:  $XDG_DATA_HOME/wellspring, then ~/.local/share/wellspring
//
// If the home directory can't be found, a relative ".wellspring" is used.
func DefaultDataDir() string {
	home, err := homedir.Dir()
	if err != nil {
		home = ""
	}
	return dataDirFor(runtime.GOOS, home, os.Getenv)
}

func dataDirFor(goos, home string, getenv func(string) string) string {
	vars, known := dirEnv[goos]
	if !known {
		vars = []string{"XDG_DATA_HOME"}
	}
	for _, v := range vars {
		if base := getenv(v); base != "" {
			return filepath.Join(base, AppName)
		}
	}

	if home == "" {
		return "." + AppName
	}
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppName)
	case "windows":
		return filepath.Join(home, AppName)
	default:
		return filepath.Join(home, ".local", "share", AppName)
	}
}
