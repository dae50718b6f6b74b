package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePlatform(); err != nil {
		return err
	}
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Enrichment.MaxPlatformCalls > 16 {
		return errors.New("enrichment.max_platform_calls must be 16 or fewer")
	}
	return nil
}

func (c *Config) validatePlatform() error {
	if c.Platform.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/reelmark/config.toml"
		}
		return fmt.Errorf("platform.api_key is required. Edit %s (create with 'reelmark config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateSpeech() error {
	// Speech is optional; only cross-check limits when it is enabled.
	if !c.SpeechEnabled() {
		return nil
	}
	// Chunk files must stay safely under the provider's 25 MB cap. The
	// bitrate/duration pair bounds size by construction.
	sizeMB := float64(c.Speech.AudioBitrate) * float64(c.Speech.ChunkSeconds) / 8 / 1024
	if sizeMB > 20 {
		return fmt.Errorf("speech.chunk_seconds × speech.audio_bitrate_kbps yields ~%.1f MB chunks; must stay under 20 MB", sizeMB)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
