package config

const (
	defaultDataDir = "~/.local/share/reelmark"
	defaultWorkDir = "~/.local/share/reelmark/work"
	defaultLogDir  = "~/.local/share/reelmark/logs"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultPlatformBaseURL = "https://api.clipview.example/v1"
	defaultPlatformTimeout = 30

	defaultSpeechBaseURL         = "https://api.speech.example/v1"
	defaultSpeechModel           = "general-1"
	defaultSpeechTimeout         = 120
	defaultSpeechChunkSeconds    = 600
	defaultSpeechAudioBitrate    = 64
	defaultSpeechMaxConcurrent   = 3
	defaultSpeechSubmissionDelay = 3

	defaultMaxPlatformCalls = 3
	defaultPollInterval     = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Enrichment: Enrichment{
			Enabled:          true,
			AutoTrigger:      true,
			Languages:        []string{"en"},
			MaxPlatformCalls: defaultMaxPlatformCalls,
		},
		Platform: Platform{
			BaseURL:        defaultPlatformBaseURL,
			RequestTimeout: defaultPlatformTimeout,
		},
		Speech: Speech{
			BaseURL:         defaultSpeechBaseURL,
			Model:           defaultSpeechModel,
			RequestTimeout:  defaultSpeechTimeout,
			ChunkSeconds:    defaultSpeechChunkSeconds,
			AudioBitrate:    defaultSpeechAudioBitrate,
			MaxConcurrent:   defaultSpeechMaxConcurrent,
			SubmissionDelay: defaultSpeechSubmissionDelay,
		},
		Workflow: Workflow{
			PollInterval: defaultPollInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
