package config

import "time"

// User is a login accepted by the broker
type User struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// Config contains all application settings
type Config struct {
	BindPort int    `mapstructure:"PORT" yaml:"port"`
	BindHost string `mapstructure:"HOST" yaml:"host"`

	LogLevel  string `mapstructure:"LOG_LEVEL" yaml:"log_level"`
	LogFormat string `mapstructure:"LOG_FORMAT" yaml:"log_format"`

	StorageEnabled   bool          `mapstructure:"STORAGE_ENABLED" yaml:"storage_enabled"`
	StorageDriver    string        `mapstructure:"STORAGE_DRIVER" yaml:"storage_driver"`
	DataDir          string        `mapstructure:"DATA_DIR" yaml:"data_dir"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL" yaml:"database_url"`
	AutoSaveInterval time.Duration `mapstructure:"AUTO_SAVE_INTERVAL" yaml:"auto_save_interval"`

	HistoryWindow time.Duration `mapstructure:"HISTORY_WINDOW" yaml:"history_window"`
	OutboxSize    int           `mapstructure:"OUTBOX_SIZE" yaml:"outbox_size"`
	NATSServerURL string        `mapstructure:"NATS_URL" yaml:"nats_url"`

	Users []User `mapstructure:"USERS" yaml:"users"`

	// Version
	BuildVersion string `yaml:"-"`
	BuildHash    string `yaml:"-"`
	BuildTime    string `yaml:"-"`
}

// UserPasswords returns the configured users as a name to password map.
func (c *Config) UserPasswords() map[string]string {
	out := make(map[string]string, len(c.Users))
	for _, u := range c.Users {
		out[u.Username] = u.Password
	}
	return out
}
