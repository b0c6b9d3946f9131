// Package config loads the daemon's environment configuration. The proxy
// core owns no environment variables; everything here belongs to the
// embedding process.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Env         string `mapstructure:"GM_ENV"`
	Port        int    `mapstructure:"GM_PORT"`
	BindHost    string `mapstructure:"GM_BIND_HOST"`
	Secret      string `mapstructure:"GM_SECRET"`
	Upstream    string `mapstructure:"GM_UPSTREAM_URL"`
	MetricsAddr string `mapstructure:"GM_METRICS_ADDR"`

	Security SecurityConfig `mapstructure:",squash"`
	Override OverrideConfig `mapstructure:",squash"`

	// Set when GM_SECRET was empty and a secret was generated.
	SecretGenerated bool

	staticResults map[string]json.RawMessage
}

type SecurityConfig struct {
	CORSAllowedOrigins []string `mapstructure:"GM_CORS_ALLOWED_ORIGINS"`
}

type OverrideConfig struct {
	// Methods answered with the user-rejected error instead of being
	// forwarded. Defaults to the sensitive wallet methods, since the
	// daemon has no interactive approver.
	RejectMethods []string `mapstructure:"GM_REJECT_METHODS"`

	// JSON object mapping method names to literal results, e.g.
	// {"eth_chainId":"0x1"}.
	StaticResults string `mapstructure:"GM_STATIC_RESULTS"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("GM_ENV", "dev")
	viper.SetDefault("GM_PORT", 3000)
	viper.SetDefault("GM_BIND_HOST", "0.0.0.0")
	viper.SetDefault("GM_SECRET", "")
	viper.SetDefault("GM_UPSTREAM_URL", "http://127.0.0.1:8545")
	viper.SetDefault("GM_METRICS_ADDR", "")
	viper.SetDefault("GM_CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("GM_REJECT_METHODS", "eth_sendTransaction,personal_sign,eth_signTypedData_v4,eth_accounts")
	viper.SetDefault("GM_STATIC_RESULTS", "")

	// Handle array parsing for comma-separated values
	if origins := viper.GetString("GM_CORS_ALLOWED_ORIGINS"); origins != "" {
		viper.Set("GM_CORS_ALLOWED_ORIGINS", strings.Split(origins, ","))
	}
	if methods := viper.GetString("GM_REJECT_METHODS"); methods != "" {
		viper.Set("GM_REJECT_METHODS", strings.Split(methods, ","))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Secret == "" {
		cfg.Secret = uuid.NewString()
		cfg.SecretGenerated = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("GM_PORT %d out of range", c.Port)
	}

	u, err := url.Parse(c.Upstream)
	if err != nil {
		return fmt.Errorf("GM_UPSTREAM_URL is not a valid URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("GM_UPSTREAM_URL %q must be an absolute URL", c.Upstream)
	}

	if strings.Contains(c.Secret, "/") {
		return fmt.Errorf("GM_SECRET must be a single path segment")
	}

	c.staticResults = make(map[string]json.RawMessage)
	if s := strings.TrimSpace(c.Override.StaticResults); s != "" {
		if err := json.Unmarshal([]byte(s), &c.staticResults); err != nil {
			return fmt.Errorf("GM_STATIC_RESULTS is not a JSON object: %w", err)
		}
	}

	return nil
}

// StaticResults returns the parsed GM_STATIC_RESULTS map.
func (c *Config) StaticResults() map[string]json.RawMessage {
	return c.staticResults
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
