package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	dir := t.TempDir()
	v := New()
	v.Set(KeyDir, dir)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, BackendFiles, cfg.Backend)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Empty(t, cfg.File)
	assert.Equal(t, filepath.Join(dir, "wellspring.db"), cfg.DBPath())
}

func TestConfigFileInDataDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("backend: sqlite\nlog_level: debug\n"), 0644))

	v := New()
	v.Set(KeyDir, dir)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), cfg.File)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("backend: sqlite\n"), 0644))
	t.Setenv("WELLSPRING_DIR", dir)
	t.Setenv("WELLSPRING_BACKEND", "files")
	t.Setenv("WELLSPRING_METRICS_ADDR", ":9100")

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, BackendFiles, cfg.Backend)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
}

func TestFlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WELLSPRING_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dir", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--dir", dir, "--log-level", "debug"}))

	v := New()
	require.NoError(t, BindFlags(v, flags))
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestInvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("backend: [\n"), 0644))

	v := New()
	v.Set(KeyDir, dir)
	_, err := Load(v)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "ok", cfg: Config{Backend: BackendSQLite, LogLevel: "debug", LogFormat: "json"}},
		{name: "bad backend", cfg: Config{Backend: "postgres", LogLevel: "info", LogFormat: "text"}, wantErr: true},
		{name: "bad level", cfg: Config{Backend: BackendFiles, LogLevel: "loud", LogFormat: "text"}, wantErr: true},
		{name: "bad format", cfg: Config{Backend: BackendFiles, LogLevel: "info", LogFormat: "xml"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	cfg := Config{LogLevel: "debug", LogFormat: "json"}
	log := cfg.Logger()
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}
