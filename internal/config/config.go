// Package config provides Viper-based configuration loading for the brawl bot.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DiscordConfig holds Discord gateway and API settings.
type DiscordConfig struct {
	// Token is the bot token used to authenticate with Discord.
	Token string `mapstructure:"token"`
	// RetryAttempts is the number of times a failed API call is retried.
	RetryAttempts int `mapstructure:"retry_attempts"`
	// RetryDelay is the pause between retry attempts.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// CombatConfig holds encounter engine timing settings.
type CombatConfig struct {
	// TickInterval is how often each live encounter engine wakes up.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// Countdown is the pause between a party filling and the first round.
	Countdown time.Duration `mapstructure:"countdown"`
	// TurnTimeout is how long a member has to act before being skipped.
	TurnTimeout time.Duration `mapstructure:"turn_timeout"`
	// AutoScrapBelow names the rarity below which loot is scrapped
	// automatically. Empty disables auto-scrapping.
	AutoScrapBelow string `mapstructure:"auto_scrap_below"`
}

// ContentConfig holds game content locations.
type ContentConfig struct {
	// Dir is the directory holding enemy, skill, status, and gear YAML.
	Dir string `mapstructure:"dir"`
	// ScriptDir is the directory holding enemy Lua hook scripts.
	ScriptDir string `mapstructure:"script_dir"`
}

// FlavorConfig holds generated flavor text settings.
type FlavorConfig struct {
	// Enabled turns model-generated flavor lines on. When false the
	// static fallback table is used exclusively.
	Enabled bool `mapstructure:"enabled"`
	// Model is the model identifier used for flavor generation.
	Model string `mapstructure:"model"`
	// Timeout bounds a single flavor generation call.
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Database DatabaseConfig `mapstructure:"database"`
	Combat   CombatConfig   `mapstructure:"combat"`
	Content  ContentConfig  `mapstructure:"content"`
	Flavor   FlavorConfig   `mapstructure:"flavor"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateDiscord(c.Discord); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateCombat(c.Combat); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDiscord(d DiscordConfig) error {
	var errs []string
	if d.RetryAttempts < 1 {
		errs = append(errs, fmt.Sprintf("discord.retry_attempts must be >= 1, got %d", d.RetryAttempts))
	}
	if d.RetryDelay < 0 {
		errs = append(errs, "discord.retry_delay must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.TickInterval < 0 {
		errs = append(errs, "combat.tick_interval must not be negative")
	}
	if c.Countdown < 0 {
		errs = append(errs, "combat.countdown must not be negative")
	}
	if c.TurnTimeout < 0 {
		errs = append(errs, "combat.turn_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	if c.Dir == "" {
		return errors.New("content.dir must not be empty")
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with BRAWL_ prefix
	v.SetEnvPrefix("BRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("discord.retry_attempts", 5)
	v.SetDefault("discord.retry_delay", "5s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "brawl")
	v.SetDefault("database.password", "brawl")
	v.SetDefault("database.name", "brawl")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("combat.tick_interval", "500ms")
	v.SetDefault("combat.countdown", "10s")
	v.SetDefault("combat.turn_timeout", "2m")
	v.SetDefault("combat.auto_scrap_below", "uncommon")

	v.SetDefault("content.dir", "content")
	v.SetDefault("content.script_dir", "content/scripts")

	v.SetDefault("flavor.enabled", false)
	v.SetDefault("flavor.model", "claude-haiku-4-5")
	v.SetDefault("flavor.timeout", "3s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
