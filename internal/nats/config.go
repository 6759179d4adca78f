package nats

import "time"

// Config holds NATS publisher configuration.
type Config struct {
	URL           string        `mapstructure:"url"`
	Name          string        `mapstructure:"name"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"` //nolint:gosec // G101: config field name, not a credential
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns defaults for the NATS publisher. An empty URL
// disables it.
func DefaultConfig() Config {
	return Config{
		Name:          "fleetmap",
		SubjectPrefix: "fleetmap",
		Timeout:       5 * time.Second,
	}
}
