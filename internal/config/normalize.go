package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEnrichment()
	c.normalizePlatform()
	c.normalizeSpeech()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEnrichment() {
	languages := make([]string, 0, len(c.Enrichment.Languages))
	for _, lang := range c.Enrichment.Languages {
		if trimmed := strings.ToLower(strings.TrimSpace(lang)); trimmed != "" {
			languages = append(languages, trimmed)
		}
	}
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	c.Enrichment.Languages = languages
	if c.Enrichment.MaxPlatformCalls <= 0 {
		c.Enrichment.MaxPlatformCalls = defaultMaxPlatformCalls
	}
}

func (c *Config) normalizePlatform() {
	c.Platform.BaseURL = strings.TrimRight(strings.TrimSpace(c.Platform.BaseURL), "/")
	if c.Platform.BaseURL == "" {
		c.Platform.BaseURL = defaultPlatformBaseURL
	}
	c.Platform.APIKey = strings.TrimSpace(c.Platform.APIKey)
	if c.Platform.APIKey == "" {
		c.Platform.APIKey = strings.TrimSpace(os.Getenv("PLATFORM_API_KEY"))
	}
	if c.Platform.RequestTimeout <= 0 {
		c.Platform.RequestTimeout = defaultPlatformTimeout
	}
}

func (c *Config) normalizeSpeech() {
	c.Speech.BaseURL = strings.TrimRight(strings.TrimSpace(c.Speech.BaseURL), "/")
	if c.Speech.BaseURL == "" {
		c.Speech.BaseURL = defaultSpeechBaseURL
	}
	c.Speech.APIKey = strings.TrimSpace(c.Speech.APIKey)
	if c.Speech.APIKey == "" {
		c.Speech.APIKey = strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	}
	if c.Speech.Model == "" {
		c.Speech.Model = defaultSpeechModel
	}
	if c.Speech.RequestTimeout <= 0 {
		c.Speech.RequestTimeout = defaultSpeechTimeout
	}
	if c.Speech.ChunkSeconds <= 0 {
		c.Speech.ChunkSeconds = defaultSpeechChunkSeconds
	}
	if c.Speech.AudioBitrate <= 0 {
		c.Speech.AudioBitrate = defaultSpeechAudioBitrate
	}
	if c.Speech.MaxConcurrent <= 0 {
		c.Speech.MaxConcurrent = defaultSpeechMaxConcurrent
	}
	if c.Speech.SubmissionDelay < 0 {
		c.Speech.SubmissionDelay = defaultSpeechSubmissionDelay
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollInterval <= 0 {
		c.Workflow.PollInterval = defaultPollInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
