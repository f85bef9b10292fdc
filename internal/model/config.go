package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// BroadcastConfig holds the task creation and deletion rules.
type BroadcastConfig struct {
	// DeletionWindow is how long after creation a sender may delete a task.
	DeletionWindow time.Duration `mapstructure:"deletion_window" yaml:"deletion_window"`

	BodyMin int `mapstructure:"body_min" yaml:"body_min"`
	BodyMax int `mapstructure:"body_max" yaml:"body_max"`
}

// RetentionConfig drives the archival sweeper.
type RetentionConfig struct {
	NormalDays    int           `mapstructure:"normal_days" yaml:"normal_days"`
	DeletedDays   int           `mapstructure:"deleted_days" yaml:"deleted_days"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// IMAPConfig configures the mailbox push transport.
type IMAPConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`

	// Username is also the keyring key suffix for the password.
	Username string `mapstructure:"username" yaml:"username"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`

	// MailboxPrefix is prepended to the recipient id to form the folder name.
	MailboxPrefix string `mapstructure:"mailbox_prefix" yaml:"mailbox_prefix"`
	From          string `mapstructure:"from" yaml:"from"`
}

// PushConfig selects and tunes the notification transport.
type PushConfig struct {
	// Transport is one of "log", "inapp", "webhook", "imap".
	Transport   string        `mapstructure:"transport" yaml:"transport"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	WebhookURL  string        `mapstructure:"webhook_url" yaml:"webhook_url"`
	IMAP        IMAPConfig    `mapstructure:"imap" yaml:"imap"`
}

// AuditConfig selects the audit sink and redaction list.
type AuditConfig struct {
	// Sink is "sqlite" (the task database) or "jsonl".
	Sink         string   `mapstructure:"sink" yaml:"sink"`
	JSONLPath    string   `mapstructure:"jsonl_path" yaml:"jsonl_path"`
	RedactFields []string `mapstructure:"redact_fields" yaml:"redact_fields"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// TelemetryConfig toggles OpenTelemetry exporters.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Stdout  bool `mapstructure:"stdout" yaml:"stdout"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Broadcast BroadcastConfig `mapstructure:"broadcast" yaml:"broadcast"`
	Retention RetentionConfig `mapstructure:"retention" yaml:"retention"`
	Push      PushConfig      `mapstructure:"push" yaml:"push"`
	Audit     AuditConfig     `mapstructure:"audit" yaml:"audit"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskcast/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskcast", "config.yaml")
}

// defaultDatabasePath places the database next to the default config.
func defaultDatabasePath() string {
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "taskcast.db")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{Path: defaultDatabasePath()},
		Broadcast: BroadcastConfig{
			DeletionWindow: time.Hour,
			BodyMin:        10,
			BodyMax:        2000,
		},
		Retention: RetentionConfig{
			NormalDays:    90,
			DeletedDays:   365,
			SweepInterval: 24 * time.Hour,
		},
		Push: PushConfig{
			Transport:   "inapp",
			Concurrency: 8,
			Timeout:     10 * time.Second,
			IMAP: IMAPConfig{
				Port:          "993",
				TLS:           true,
				MailboxPrefix: "Tasks/",
			},
		},
		Audit: AuditConfig{
			Sink:         "sqlite",
			RedactFields: []string{"password", "token", "secret", "api_key", "email", "phone"},
		},
		HTTP:      HTTPConfig{Addr: "127.0.0.1:8080"},
		Log:       LogConfig{Level: "info", Format: "text"},
		Telemetry: TelemetryConfig{},
	}
}

// setDefaults mirrors DefaultAppConfig into viper so partially written
// files resolve missing keys.
func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("broadcast.deletion_window", d.Broadcast.DeletionWindow)
	v.SetDefault("broadcast.body_min", d.Broadcast.BodyMin)
	v.SetDefault("broadcast.body_max", d.Broadcast.BodyMax)
	v.SetDefault("retention.normal_days", d.Retention.NormalDays)
	v.SetDefault("retention.deleted_days", d.Retention.DeletedDays)
	v.SetDefault("retention.sweep_interval", d.Retention.SweepInterval)
	v.SetDefault("push.transport", d.Push.Transport)
	v.SetDefault("push.concurrency", d.Push.Concurrency)
	v.SetDefault("push.timeout", d.Push.Timeout)
	v.SetDefault("push.imap.port", d.Push.IMAP.Port)
	v.SetDefault("push.imap.tls", d.Push.IMAP.TLS)
	v.SetDefault("push.imap.mailbox_prefix", d.Push.IMAP.MailboxPrefix)
	v.SetDefault("audit.sink", d.Audit.Sink)
	v.SetDefault("audit.redact_fields", d.Audit.RedactFields)
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with TASKCAST_ override file values
// (e.g. TASKCAST_DATABASE_PATH). A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TASKCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects configurations that would break the broadcast rules.
func (c *AppConfig) Validate() error {
	if c.Broadcast.BodyMin < 1 || c.Broadcast.BodyMax < c.Broadcast.BodyMin {
		return fmt.Errorf("broadcast body bounds [%d, %d] are invalid",
			c.Broadcast.BodyMin, c.Broadcast.BodyMax)
	}
	if c.Broadcast.DeletionWindow <= 0 {
		return fmt.Errorf("broadcast.deletion_window must be positive")
	}
	if c.Retention.NormalDays <= 0 || c.Retention.DeletedDays <= 0 {
		return fmt.Errorf("retention days must be positive")
	}
	switch c.Push.Transport {
	case "log", "inapp", "webhook", "imap":
	default:
		return fmt.Errorf("unknown push transport %q", c.Push.Transport)
	}
	switch c.Audit.Sink {
	case "sqlite", "jsonl":
	default:
		return fmt.Errorf("unknown audit sink %q", c.Audit.Sink)
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("broadcast", cfg.Broadcast)
	v.Set("retention", cfg.Retention)
	v.Set("push", cfg.Push)
	v.Set("audit", cfg.Audit)
	v.Set("http", cfg.HTTP)
	v.Set("log", cfg.Log)
	v.Set("telemetry", cfg.Telemetry)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
