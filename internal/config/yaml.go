package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file name searched in . and $HOME/.keydesk.
const DefaultFileName = "keydesk.yaml"

const redacted = "********"

// FileConfig is the on-disk layout of keydesk.yaml. Durations are written
// as strings such as "30s" and parsed back by viper.
type FileConfig struct {
	Server struct {
		Host            string   `yaml:"host"`
		Port            int      `yaml:"port"`
		PublicURL       string   `yaml:"public_url"`
		CORSOrigins     []string `yaml:"cors_origins"`
		ShutdownTimeout string   `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Database struct {
		Driver          string `yaml:"driver"`
		DSN             string `yaml:"dsn"`
		MaxOpenConns    int    `yaml:"max_open_conns"`
		MaxIdleConns    int    `yaml:"max_idle_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	} `yaml:"database"`
	Auth struct {
		AdminUser     string `yaml:"admin_user"`
		AdminPass     string `yaml:"admin_pass"`
		AdminSecret   string `yaml:"admin_secret"`
		SessionSecret string `yaml:"session_secret"`
		SessionTTL    string `yaml:"session_ttl"`
		CookieSecure  bool   `yaml:"cookie_secure"`
	} `yaml:"auth"`
	RateLimit struct {
		LoginPerMinute  int `yaml:"login_per_minute"`
		AddKeyPerMinute int `yaml:"add_key_per_minute"`
	} `yaml:"rate_limit"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`
}

// ToFile converts c to its file layout. With redact set, non-empty secrets
// are masked.
func (c *Config) ToFile(redact bool) *FileConfig {
	var f FileConfig
	f.Server.Host = c.Server.Host
	f.Server.Port = c.Server.Port
	f.Server.PublicURL = c.Server.PublicURL
	f.Server.CORSOrigins = c.Server.CORSOrigins
	f.Server.ShutdownTimeout = c.Server.ShutdownTimeout.String()

	f.Database.Driver = c.Database.Driver
	f.Database.DSN = c.Database.DSN
	f.Database.MaxOpenConns = c.Database.MaxOpenConns
	f.Database.MaxIdleConns = c.Database.MaxIdleConns
	f.Database.ConnMaxLifetime = c.Database.ConnMaxLifetime.String()

	f.Auth.AdminUser = c.Auth.AdminUser
	f.Auth.AdminPass = c.Auth.AdminPass
	f.Auth.AdminSecret = c.Auth.AdminSecret
	f.Auth.SessionSecret = c.Auth.SessionSecret
	f.Auth.SessionTTL = c.Auth.SessionTTL.String()
	f.Auth.CookieSecure = c.Auth.CookieSecure

	f.RateLimit.LoginPerMinute = c.RateLimit.LoginPerMinute
	f.RateLimit.AddKeyPerMinute = c.RateLimit.AddKeyPerMinute

	f.Log.Level = c.Log.Level
	f.Log.Format = c.Log.Format
	f.Log.File = c.Log.File

	if redact {
		for _, s := range []*string{&f.Auth.AdminPass, &f.Auth.AdminSecret, &f.Auth.SessionSecret} {
			if *s != "" {
				*s = redacted
			}
		}
	}
	return &f
}

// MarshalYAML renders c as YAML, masking secrets when redact is set.
func (c *Config) MarshalYAML(redact bool) ([]byte, error) {
	data, err := yaml.Marshal(c.ToFile(redact))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default configuration to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
	}

	data, err := Default().MarshalYAML(false)
	if err != nil {
		return err
	}
	header := []byte("# keydesk configuration\n# Every key can be overridden with KEYDESK_<SECTION>_<KEY>, e.g. KEYDESK_AUTH_ADMIN_SECRET.\n\n")
	// 0600: the file holds secrets.
	if err := os.WriteFile(path, append(header, data...), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
