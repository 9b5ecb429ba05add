package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsOnly(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"), "")
	// Explicit config file that does not exist is an error.
	require.Error(t, err)
	assert.Nil(t, cfg)

	cfg, err = Load("", "")
	require.NoError(t, err)
	assert.Equal(t, "system", cfg.AdminUser)
	assert.Equal(t, "localhost:1521/free", cfg.AdminDSN)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "oracle.json")
	content := `{"user": "admin", "password": "pw123", "dsn": "oradb:1521/xepdb1"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "admin", cfg.AdminUser)
	assert.Equal(t, "pw123", cfg.AdminPassword)
	assert.Equal(t, "oradb:1521/xepdb1", cfg.AdminDSN)
}

func TestLoadConfigFilePartial(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "oracle.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"password": "pw"}`), 0600))

	cfg, err := Load(path, "")
	require.NoError(t, err)

	// Unset file keys fall back to defaults.
	assert.Equal(t, "system", cfg.AdminUser)
	assert.Equal(t, "pw", cfg.AdminPassword)
}

func TestLoadConfigFileInvalidJSON(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "oracle.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0600))

	_, err := Load(path, "")
	require.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "oracle.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"user": "filesys", "dsn": "filedb:1521/a"}`), 0600))

	t.Setenv(EnvAdminUser, "envsys")
	t.Setenv(EnvDropTables, "yes")
	t.Setenv(EnvSchemaOnly, "0")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "envsys", cfg.AdminUser)
	assert.Equal(t, "filedb:1521/a", cfg.AdminDSN)
	assert.True(t, cfg.DropTables)
	assert.False(t, cfg.SchemaOnly)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)

	envPath := filepath.Join(t.TempDir(), "migration.env")
	content := "ORACLE_ADMIN_PASSWORD=fromenvfile\nORACLE_NEW_USERNAME=appdb\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0600))

	// gotenv loads into the process environment; restore after the test.
	t.Setenv(EnvAdminPassword, "")
	t.Setenv(EnvNewUsername, "")
	os.Unsetenv(EnvAdminPassword)
	os.Unsetenv(EnvNewUsername)

	cfg, err := Load("", envPath)
	require.NoError(t, err)

	assert.Equal(t, "fromenvfile", cfg.AdminPassword)
	assert.Equal(t, "appdb", cfg.NewUsername)
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"1", true},
		{" true ", true},
		{"false", false},
		{"no", false},
		{"0", false},
		{"garbage", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseBool(tt.input))
		})
	}
}

// clearEnv unsets every ORACLE_* variable the loader reads so tests do not
// inherit state from the invoking shell. t.Setenv registers restoration.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvAdminUser, EnvAdminPassword, EnvAdminDSN,
		EnvNewUsername, EnvNewPassword, EnvSQLiteDB, EnvOutputFile,
		EnvDropTables, EnvForceRecreate, EnvSchemaOnly, EnvUseAdminUser,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}
