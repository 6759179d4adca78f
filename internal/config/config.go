// Package config loads FleetMap configuration with Viper and exposes it to
// plugins through the plugin.Config interface.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/fleetmap/pkg/plugin"
	"github.com/spf13/viper"
)

// Compile-time interface guard.
var _ plugin.Config = (*ViperConfig)(nil)

// EnvPrefix is the prefix for environment overrides: FM_SERVER_PORT=9090.
const EnvPrefix = "FM"

// Load reads configuration from the given file (or the default search path
// when empty), environment variables and built-in defaults.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("fleetmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/fleetmap")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}

// SetDefaults registers every default the server and its plugins rely on.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 50)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.write_rate_limit", 0.5)
	v.SetDefault("server.write_rate_burst", 5)
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("database.path", "./data/fleetmap.db")
	v.SetDefault("auth.ws_secret", "")
	v.SetDefault("auth.ws_token_ttl", "12h")

	v.SetDefault("plugins.inventory.enabled", true)
	v.SetDefault("plugins.inventory.interval", "4500ms")
	v.SetDefault("plugins.inventory.cycle_timeout", "30s")
	v.SetDefault("plugins.inventory.agent_stale_after", "0s")
	v.SetDefault("plugins.inventory.snapshot_store", "sqlite")
	v.SetDefault("plugins.inventory.bolt_path", "./data/snapshots.bolt")

	v.SetDefault("plugins.mqtt.enabled", true)
	v.SetDefault("plugins.mqtt.broker_url", "")
	v.SetDefault("plugins.mqtt.client_id", "fleetmap")
	v.SetDefault("plugins.mqtt.topic_prefix", "fleetmap")
	v.SetDefault("plugins.mqtt.qos", 1)
	v.SetDefault("plugins.mqtt.retain", true)
	v.SetDefault("plugins.mqtt.timeout", "10s")
	v.SetDefault("plugins.mqtt.publish_attempts", 3)
	v.SetDefault("plugins.mqtt.retry_delay", "500ms")
	v.SetDefault("plugins.mqtt.queue_size", 64)

	v.SetDefault("plugins.nats.enabled", true)
	v.SetDefault("plugins.nats.url", "")
	v.SetDefault("plugins.nats.subject_prefix", "fleetmap")
	v.SetDefault("plugins.nats.timeout", "5s")
}

// ViperConfig wraps a Viper instance to implement plugin.Config.
type ViperConfig struct {
	v *viper.Viper
}

// New creates a Config backed by the given Viper instance.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

func (c *ViperConfig) Unmarshal(target any) error {
	return c.v.Unmarshal(target)
}

func (c *ViperConfig) Get(key string) any {
	return c.v.Get(key)
}

func (c *ViperConfig) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *ViperConfig) GetInt(key string) int {
	return c.v.GetInt(key)
}

func (c *ViperConfig) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func (c *ViperConfig) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}

func (c *ViperConfig) IsSet(key string) bool {
	return c.v.IsSet(key)
}

func (c *ViperConfig) Sub(key string) plugin.Config {
	sub := c.v.Sub(key)
	if sub == nil {
		return New(nil)
	}
	return New(sub)
}

// Viper returns the underlying Viper instance for top-level keys such as
// server.port.
func (c *ViperConfig) Viper() *viper.Viper {
	return c.v
}
