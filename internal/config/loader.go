package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Load resolves configuration with the documented precedence:
// CLI flags (applied later via ApplyOverrides) > environment variables
// (including those loaded from envFile) > JSON config file > defaults.
//
// configFile may be empty, in which case ~/.sqlora.json is tried; a missing
// file is not an error. envFile may be empty, in which case ./.env is tried.
func Load(configFile, envFile string) (*Config, error) {
	loadEnvFile(envFile)

	cfg := DefaultConfig()

	if err := mergeConfigFile(cfg, configFile); err != nil {
		return nil, err
	}

	applyEnv(cfg)

	return cfg, nil
}

// loadEnvFile loads variables from a .env file into the process environment.
// Existing variables are not overwritten, so the OS environment wins over the file.
func loadEnvFile(envFile string) {
	if envFile != "" {
		_ = gotenv.Load(envFile)
		return
	}
	if _, err := os.Stat(".env"); err == nil {
		_ = gotenv.Load(".env")
	}
}

// mergeConfigFile merges admin credentials from a JSON config file.
// The file carries the admin connection only: {"user", "password", "dsn"}.
func mergeConfigFile(cfg *Config, configFile string) error {
	explicit := configFile != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		configFile = DefaultConfigFile(home)
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		if !explicit {
			// Default location is optional.
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	if u := v.GetString("user"); u != "" {
		cfg.AdminUser = u
	}
	if p := v.GetString("password"); p != "" {
		cfg.AdminPassword = p
	}
	if d := v.GetString("dsn"); d != "" {
		cfg.AdminDSN = d
	}
	return nil
}

// applyEnv overlays ORACLE_* environment variables onto the configuration.
func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(dst *bool, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = parseBool(v)
		}
	}

	setString(&cfg.AdminUser, EnvAdminUser)
	setString(&cfg.AdminPassword, EnvAdminPassword)
	setString(&cfg.AdminDSN, EnvAdminDSN)
	setString(&cfg.NewUsername, EnvNewUsername)
	setString(&cfg.NewPassword, EnvNewPassword)
	setString(&cfg.SourcePath, EnvSQLiteDB)
	setString(&cfg.OutputSQLFile, EnvOutputFile)
	setBool(&cfg.DropTables, EnvDropTables)
	setBool(&cfg.ForceRecreate, EnvForceRecreate)
	setBool(&cfg.SchemaOnly, EnvSchemaOnly)
	setBool(&cfg.UseAdminUser, EnvUseAdminUser)
}

// parseBool accepts the truthy spellings the environment variables allow.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true
	default:
		return false
	}
}

// Overrides carries CLI flag values. Only fields whose Set flag is true are
// applied, so unset flags never mask environment or file values.
type Overrides struct {
	AdminUser          string
	AdminPassword      string
	AdminDSN           string
	NewUsername        string
	NewPassword        string
	SourcePath         string
	SourceDir          string
	Pattern            string
	SchemaOnly         *bool
	OnlyFKKeys         *bool
	DropTables         *bool
	ForceRecreate      *bool
	ConfirmDestructive *bool
	UseAdminUser       *bool
	SkipValidation     *bool
	ContinueOnError    *bool
	BatchSize          int
	Workers            int
	OutputSQLFile      string
	OutputURIFile      string
	UseVarchar         *bool
	SampleText         *bool
	Progress           *bool
	LogLevel           string
	LogFormat          string
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// String and int overrides apply when non-zero; bool overrides apply when non-nil.
func (c *Config) ApplyOverrides(o *Overrides) {
	if o == nil {
		return
	}
	if o.AdminUser != "" {
		c.AdminUser = o.AdminUser
	}
	if o.AdminPassword != "" {
		c.AdminPassword = o.AdminPassword
	}
	if o.AdminDSN != "" {
		c.AdminDSN = o.AdminDSN
	}
	if o.NewUsername != "" {
		c.NewUsername = o.NewUsername
	}
	if o.NewPassword != "" {
		c.NewPassword = o.NewPassword
	}
	if o.SourcePath != "" {
		c.SourcePath = o.SourcePath
	}
	if o.SourceDir != "" {
		c.SourceDir = o.SourceDir
	}
	if o.Pattern != "" {
		c.Pattern = o.Pattern
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Workers > 0 {
		c.Workers = o.Workers
	}
	if o.OutputSQLFile != "" {
		c.OutputSQLFile = o.OutputSQLFile
	}
	if o.OutputURIFile != "" {
		c.OutputURIFile = o.OutputURIFile
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Logging.Format = o.LogFormat
	}

	applyBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	applyBool(&c.SchemaOnly, o.SchemaOnly)
	applyBool(&c.OnlyFKKeys, o.OnlyFKKeys)
	applyBool(&c.DropTables, o.DropTables)
	applyBool(&c.ForceRecreate, o.ForceRecreate)
	applyBool(&c.ConfirmDestructive, o.ConfirmDestructive)
	applyBool(&c.UseAdminUser, o.UseAdminUser)
	applyBool(&c.SkipValidation, o.SkipValidation)
	applyBool(&c.ContinueOnError, o.ContinueOnError)
	applyBool(&c.UseVarchar, o.UseVarchar)
	applyBool(&c.SampleText, o.SampleText)
	applyBool(&c.Progress, o.Progress)
}
