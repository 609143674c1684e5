package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "riskscore")

	c1, err := ReadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, c1.Server.Port)
	assert.Equal(t, DriverSQLite, c1.Storage.Driver)
	assert.Equal(t, filepath.Join(dir, "data.db"), c1.Storage.DSN)
	assert.True(t, c1.Scoring.Audit)

	c1.Server.Port = 9090
	c1.LogLevel = "debug"
	c1.Scoring.Audit = false
	require.NoError(t, Save(dir, c1))

	c2, err := ReadOrCreate(dir)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestSave_Invalid(t *testing.T) {
	assert.Error(t, Save("", &Config{}))
	assert.Error(t, Save(t.TempDir(), nil))
}

func TestReadOrCreate_EmptyDir(t *testing.T) {
	_, err := ReadOrCreate("")
	assert.Error(t, err)
}

func TestRead_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0600))

	c, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, c.Server.Port)
	assert.Equal(t, DefaultHost, c.Server.Host)
	assert.Equal(t, filepath.Join(dir, "model.json"), c.Artifacts.Model)
	assert.Equal(t, "0.0.0.0:9000", c.Server.Addr())
}

func TestRead_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Read(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [\n"), 0600))
	_, err = Read(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("storage:\n  driver: mysql\n"), 0600))
	_, err = Read(invalid)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "default", mutate: func(*Config) {}, ok: true},
		{name: "postgres", mutate: func(c *Config) { c.Storage.Driver = DriverPostgres }, ok: true},
		{name: "port zero", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "port high", mutate: func(c *Config) { c.Server.Port = 70000 }},
		{name: "driver", mutate: func(c *Config) { c.Storage.Driver = "mysql" }},
		{name: "dsn", mutate: func(c *Config) { c.Storage.DSN = "" }},
		{name: "log format", mutate: func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default(t.TempDir())
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	var nilConfig *Config
	assert.Error(t, nilConfig.Validate())
}

func TestGetOrCreateHomeDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir, created, err := GetOrCreateHomeDir("riskscore")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, ".riskscore", filepath.Base(dir))

	_, created, err = GetOrCreateHomeDir(".riskscore")
	require.NoError(t, err)
	assert.False(t, created)

	_, _, err = GetOrCreateHomeDir("")
	assert.Error(t, err)
}
