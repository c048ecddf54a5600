// Package config loads sfbridge configuration from a YAML file and the
// environment. Environment variables win over file values; credentials are
// expected to come from the environment in any real deployment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Salesforce holds the credentials for the OAuth username/password flow.
type Salesforce struct {
	LoginURL      string `mapstructure:"login_url"`
	ClientID      string `mapstructure:"client_id"`
	ClientSecret  string `mapstructure:"client_secret"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	SecurityToken string `mapstructure:"security_token"`
}

// Notion holds the integration token and the parent page for new databases.
type Notion struct {
	Token        string `mapstructure:"token"`
	ParentPageID string `mapstructure:"parent_page_id"`
}

// Checkpoint selects and configures the checkpoint backend.
type Checkpoint struct {
	Backend string `mapstructure:"backend"` // "sqlite" or "mongo"
	Path    string `mapstructure:"path"`    // sqlite database file
	URI     string `mapstructure:"uri"`     // mongo connection string
}

// Config is the full process configuration.
type Config struct {
	Salesforce  Salesforce `mapstructure:"salesforce"`
	Notion      Notion     `mapstructure:"notion"`
	Checkpoint  Checkpoint `mapstructure:"checkpoint"`
	Objects     []string   `mapstructure:"objects"`
	CatalogPath string     `mapstructure:"catalog_path"`
	LogFile     string     `mapstructure:"log_file"`
}

// Load reads configuration from the given file (or sfbridge.yaml in the
// working directory when file is empty), environment variables prefixed
// with SFBRIDGE_, and built-in defaults. A missing config file is fine as
// long as the environment supplies the required values.
func Load(file string) (Config, error) {
	v := viper.New()

	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("checkpoint.backend", "sqlite")
	v.SetDefault("checkpoint.path", ".sfbridge/checkpoints.db")
	v.SetDefault("objects", []string{"Contact"})
	v.SetDefault("catalog_path", "databases.json")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("sfbridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SFBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The credential names the original deployment used still work.
	_ = v.BindEnv("salesforce.username", "SFBRIDGE_SALESFORCE_USERNAME", "SALESFORCE_USERNAME")
	_ = v.BindEnv("salesforce.password", "SFBRIDGE_SALESFORCE_PASSWORD", "SALESFORCE_PASSWORD")
	_ = v.BindEnv("salesforce.security_token", "SFBRIDGE_SALESFORCE_SECURITY_TOKEN", "SALESFORCE_SECURITY_TOKEN")
	_ = v.BindEnv("salesforce.client_id", "SFBRIDGE_SALESFORCE_CLIENT_ID", "SALESFORCE_CLIENT_ID")
	_ = v.BindEnv("salesforce.client_secret", "SFBRIDGE_SALESFORCE_CLIENT_SECRET", "SALESFORCE_CLIENT_SECRET")
	_ = v.BindEnv("salesforce.login_url", "SFBRIDGE_SALESFORCE_LOGIN_URL", "SALESFORCE_CONNECTION_URL")
	_ = v.BindEnv("notion.token", "SFBRIDGE_NOTION_TOKEN", "NOTION_TOKEN")
	_ = v.BindEnv("notion.parent_page_id", "SFBRIDGE_NOTION_PARENT_PAGE_ID", "NOTION_PARENT_PAGE_ID")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks that everything a sync run needs is present.
func (c Config) Validate() error {
	var missing []string
	if c.Salesforce.Username == "" {
		missing = append(missing, "salesforce.username")
	}
	if c.Salesforce.Password == "" {
		missing = append(missing, "salesforce.password")
	}
	if c.Salesforce.ClientID == "" {
		missing = append(missing, "salesforce.client_id")
	}
	if c.Salesforce.ClientSecret == "" {
		missing = append(missing, "salesforce.client_secret")
	}
	if c.Notion.Token == "" {
		missing = append(missing, "notion.token")
	}
	if c.Notion.ParentPageID == "" {
		missing = append(missing, "notion.parent_page_id")
	}
	if len(c.Objects) == 0 {
		missing = append(missing, "objects")
	}
	switch c.Checkpoint.Backend {
	case "sqlite":
		if c.Checkpoint.Path == "" {
			missing = append(missing, "checkpoint.path")
		}
	case "mongo":
		if c.Checkpoint.URI == "" {
			missing = append(missing, "checkpoint.uri")
		}
	default:
		return fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
