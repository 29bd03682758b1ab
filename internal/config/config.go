// Package config loads the session parameters: sample rate, channel count,
// frame size, codec bitrate, jitter buffer tuning, and key-derivation
// parameters. Defaults first, then an optional file overlay, never a hard
// error: a missing or malformed config file falls back to defaults so a
// fresh endpoint always starts.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable named in the external interfaces section.
type Config struct {
	SampleRate   int `yaml:"sample_rate"`
	Channels     int `yaml:"channels"`
	FrameSamples int `yaml:"frame_samples"`
	Bitrate      int `yaml:"bitrate"`

	JitterMaxSize        int     `yaml:"jitter_max_size"`
	JitterMinSize        int     `yaml:"jitter_min_size"`
	JitterMaxDelay       float64 `yaml:"jitter_max_delay"`
	JitterTargetDelay    float64 `yaml:"jitter_target_delay"`
	JitterAdaptationRate float64 `yaml:"jitter_adaptation_rate"`
	JitterAdaptive       bool    `yaml:"jitter_adaptive"`

	KDFIterations int `yaml:"kdf_iterations"`
	KeyLength     int `yaml:"key_length"`

	MediaAddr     string `yaml:"media_addr"`
	SignalingAddr string `yaml:"signaling_addr"`
}

// Default returns a Config populated with the standard session defaults:
// 16 kHz mono, 20 ms frames, 16 kbps.
func Default() Config {
	return Config{
		SampleRate:   16000,
		Channels:     1,
		FrameSamples: 320,
		Bitrate:      16000,

		JitterMaxSize:        50,
		JitterMinSize:        10,
		JitterMaxDelay:       0.5,
		JitterTargetDelay:    0.1,
		JitterAdaptationRate: 0.1,
		JitterAdaptive:       true,

		KDFIterations: 100000,
		KeyLength:     32,

		MediaAddr:     "0.0.0.0:7000",
		SignalingAddr: "0.0.0.0:7001",
	}
}

// Load reads a YAML config file at path and overlays it on Default(). A
// missing file, or one that fails to parse, yields the defaults unchanged.
func Load(path string) Config {
	cfg := Default()
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	return cfg
}
