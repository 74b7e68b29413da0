package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every layer at nothing: no args, no .env file.
func isolate(t *testing.T, args ...string) {
	t.Helper()
	origArgs, origEnv := os.Args, dotEnvFile
	t.Cleanup(func() {
		os.Args = origArgs
		dotEnvFile = origEnv
	})
	os.Args = append([]string{"testbin"}, args...)
	dotEnvFile = filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "file", c.StoreBackend)
	assert.Equal(t, "appsettings.json", c.StorePath)
	assert.Equal(t, 15*time.Minute, c.RegistrationTTL)
	assert.Equal(t, 50, c.DefaultDailyUnits)
	assert.Equal(t, 5, c.HistoryLimit)
	assert.Equal(t, 30*time.Minute, c.SessionTTL)
	assert.Equal(t, []string{"*"}, c.CORSOrigins)
	assert.Empty(t, c.MasterKey)
	assert.Empty(t, c.EncKey)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	isolate(t)

	c := LoadConfig()
	require.NotNil(t, c, "LoadConfig must not return nil")

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, *c)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := writeTempJSON(t, dir, "cfg.json", map[string]any{
		"http_addr":     ":7000",
		"store_backend": "memory",
		"log_level":     "debug",
	})
	isolate(t, "-c", path, "-a", ":9000")
	t.Setenv("LOREMGATE_STORE_BACKEND", "postgres")

	c := LoadConfig()

	assert.Equal(t, ":9000", c.HTTPAddr, "flags beat json")
	assert.Equal(t, "postgres", c.StoreBackend, "env beats json")
	assert.Equal(t, "debug", c.LogLevel, "json beats defaults")
}
