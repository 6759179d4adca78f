package mqtt

import "time"

// Config holds MQTT publisher configuration.
type Config struct {
	BrokerURL       string        `mapstructure:"broker_url"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"` //nolint:gosec // G101: config field name, not a credential
	ClientID        string        `mapstructure:"client_id"`
	TopicPrefix     string        `mapstructure:"topic_prefix"`
	QoS             byte          `mapstructure:"qos"`
	Retain          bool          `mapstructure:"retain"` // Retained so late subscribers get the live dashboard
	Timeout         time.Duration `mapstructure:"timeout"`
	PublishAttempts int           `mapstructure:"publish_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	QueueSize       int           `mapstructure:"queue_size"`
}

// DefaultConfig returns sensible defaults for the MQTT publisher.
func DefaultConfig() Config {
	return Config{
		BrokerURL:       "", // disabled by default
		ClientID:        "fleetmap",
		TopicPrefix:     "fleetmap",
		QoS:             1,
		Retain:          true,
		Timeout:         10 * time.Second,
		PublishAttempts: 3,
		RetryDelay:      500 * time.Millisecond,
		QueueSize:       64,
	}
}
