// Package config provides configuration structures and loading for sqlora.
package config

import "path/filepath"

// Environment variable names recognized by the loader.
const (
	EnvAdminUser     = "ORACLE_ADMIN_USER"
	EnvAdminPassword = "ORACLE_ADMIN_PASSWORD"
	EnvAdminDSN      = "ORACLE_ADMIN_DSN"
	EnvNewUsername   = "ORACLE_NEW_USERNAME"
	EnvNewPassword   = "ORACLE_NEW_PASSWORD"
	EnvSQLiteDB      = "ORACLE_SQLITE_DB"
	EnvOutputFile    = "ORACLE_OUTPUT_FILE"
	EnvDropTables    = "ORACLE_DROP_TABLES"
	EnvForceRecreate = "ORACLE_FORCE_RECREATE"
	EnvSchemaOnly    = "ORACLE_SCHEMA_ONLY"
	EnvUseAdminUser  = "ORACLE_USE_ADMIN_USER"
)

// Config is the resolved migration configuration. It is built once by Load
// plus ApplyOverrides and treated as read-only by every pipeline component.
type Config struct {
	// Admin connection to the Oracle instance.
	AdminUser     string `mapstructure:"user"`
	AdminPassword string `mapstructure:"password"`
	AdminDSN      string `mapstructure:"dsn"` // host:port/service

	// Target schema. When UseAdminUser is set, no user is provisioned and
	// objects are created in the admin schema.
	NewUsername  string `mapstructure:"new_username"`
	NewPassword  string `mapstructure:"new_password"`
	UseAdminUser bool   `mapstructure:"use_admin_user"`

	// Source selection. SourcePath for single-file runs, SourceDir+Pattern
	// for batch runs.
	SourcePath string `mapstructure:"sqlite_db"`
	SourceDir  string `mapstructure:"source_dir"`
	Pattern    string `mapstructure:"pattern"`

	// Mode flags.
	SchemaOnly bool `mapstructure:"schema_only"`
	OnlyFKKeys bool `mapstructure:"only_fk_keys"`

	// Destructive operations. ForceRecreate drops and recreates the target
	// user; it never runs unless ConfirmDestructive is also set.
	DropTables         bool `mapstructure:"drop_tables"`
	ForceRecreate      bool `mapstructure:"force_recreate"`
	ConfirmDestructive bool `mapstructure:"confirm"`

	SkipValidation  bool `mapstructure:"skip_validation"`
	ContinueOnError bool `mapstructure:"continue_on_error"`

	BatchSize int `mapstructure:"batch_size"`
	Workers   int `mapstructure:"workers"`

	// OutputSQLFile receives the generated DDL/DML script; OutputURIFile
	// receives one connection URI per migrated database.
	OutputSQLFile string `mapstructure:"output_file"`
	OutputURIFile string `mapstructure:"uri_file"`

	// Type mapping options.
	UseVarchar bool `mapstructure:"use_varchar"`
	SampleText bool `mapstructure:"sample_text"`

	Progress bool `mapstructure:"progress"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or text
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		AdminUser: "system",
		AdminDSN:  "localhost:1521/free",
		Pattern:   "*.sqlite,*.db",
		BatchSize: 500,
		Workers:   1,
		Progress:  true,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// DefaultConfigFile returns the default JSON config file path (~/.sqlora.json).
func DefaultConfigFile(home string) string {
	return filepath.Join(home, ".sqlora.json")
}
