package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataDirFor(t *testing.T) {
	home := filepath.Join("/home", "pat")

	tests := []struct {
		name string
		goos string
		home string
		env  map[string]string
		want string
	}{
		{
			name: "macos",
			goos: "darwin",
			home: home,
			env:  map[string]string{"XDG_DATA_HOME": "/ignored"},
			want: filepath.Join(home, "Library", "Application Support", "wellspring"),
		},
		{
			name: "linux default",
			goos: "linux",
			home: home,
			want: filepath.Join(home, ".local", "share", "wellspring"),
		},
		{
			name: "linux xdg",
			goos: "linux",
			home: home,
			env:  map[string]string{"XDG_DATA_HOME": "/custom/data"},
			want: filepath.Join("/custom/data", "wellspring"),
		},
		{
			name: "freebsd uses xdg rules",
			goos: "freebsd",
			home: home,
			want: filepath.Join(home, ".local", "share", "wellspring"),
		},
		{
			name: "windows local appdata",
			goos: "windows",
			home: home,
			env:  map[string]string{"LOCALAPPDATA": `C:\Local`, "APPDATA": `C:\Roaming`},
			want: filepath.Join(`C:\Local`, "wellspring"),
		},
		{
			name: "windows roaming appdata",
			goos: "windows",
			home: home,
			env:  map[string]string{"APPDATA": `C:\Roaming`},
			want: filepath.Join(`C:\Roaming`, "wellspring"),
		},
		{
			name: "windows no env",
			goos: "windows",
			home: home,
			want: filepath.Join(home, "wellspring"),
		},
		{
			name: "no home",
			goos: "linux",
			want: ".wellspring",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			assert.Equal(t, tt.want, dataDirFor(tt.goos, tt.home, getenv))
		})
	}
}

func TestDefaultDataDirEndsInAppName(t *testing.T) {
	assert.Contains(t, filepath.Base(DefaultDataDir()), "wellspring")
}
