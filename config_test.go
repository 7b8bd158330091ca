package a2dp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

// TestConfigValidateBounds tests each bound with one out-of-range
// value.
func TestConfigValidateBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty device name", func(c *Config) { c.DeviceName = "" }},
		{"bitpool too low", func(c *Config) { c.DefaultBitpool = 1 }},
		{"bitpool too high", func(c *Config) { c.DefaultBitpool = 251 }},
		{"buffer too short", func(c *Config) { c.AudioBufferMS = 10 }},
		{"buffer too long", func(c *Config) { c.AudioBufferMS = 1000 }},
		{"no config attempts", func(c *Config) { c.MaxConfigAttempts = 0 }},
		{"zero timeout", func(c *Config) { c.SignalingTimeout = 0 }},
		{"no channels", func(c *Config) { c.Format.Channels = 0 }},
		{"unsupported sample rate", func(c *Config) { c.Format.SampleRate = 22050 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
