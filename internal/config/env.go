package config

import "strings"

// Environment variables read by ApplyEnv.
const (
	EnvAddr         = "FOCUS_ADDR"
	EnvDataDir      = "FOCUS_DATA_DIR"
	EnvLogLevel     = "FOCUS_LOG_LEVEL"
	EnvPreset       = "FOCUS_PRESET"
	EnvKafkaBrokers = "FOCUS_KAFKA_BROKERS"
	EnvWebhookURL   = "FOCUS_WEBHOOK_URL"
)

// ApplyEnv overrides settings from the environment. Setting
// FOCUS_KAFKA_BROKERS also enables Kafka.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := getenv(EnvDataDir); v != "" {
		c.Storage.DataDir = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvPreset); v != "" {
		c.Tracking.Preset = v
	}
	if v := getenv(EnvKafkaBrokers); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = len(c.Kafka.Brokers) > 0
	}
	if v := getenv(EnvWebhookURL); v != "" {
		c.Notify.WebhookURL = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
