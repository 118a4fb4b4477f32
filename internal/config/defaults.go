package config

const (
	defaultStagingDir         = "~/.local/share/newsreel/staging"
	defaultOutputDir          = "~/.local/share/newsreel/output"
	defaultLogDir             = "~/.local/share/newsreel/logs"
	defaultStoreDir           = "~/.local/share/newsreel"
	defaultSourceDir          = "~/newsreel/sources"
	defaultLogFormat          = "auto"
	defaultLogLevel           = "info"
	defaultLLMBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel           = "google/gemini-3-flash-preview"
	defaultLLMReferer         = "https://github.com/newsreel/newsreel"
	defaultLLMTitle           = "Newsreel Script Writer"
	defaultLLMTimeoutSeconds  = 60
	defaultTTSBaseURL         = "https://api.elevenlabs.io/v1"
	defaultTTSModelID         = "eleven_multilingual_v2"
	defaultTTSTimeoutSeconds  = 120
	defaultWordsPerSecond     = 2.5
	defaultMinSilenceSeconds  = 3.0
	defaultRenderWidth        = 1080
	defaultRenderHeight       = 1920
	defaultRenderFPS          = 30
	defaultTransitionSeconds  = 0.5
	defaultZoomMax            = 1.15
	defaultWorkerCount        = 2
	defaultStageMaxAttempts   = 3
	defaultBackoffBaseSeconds = 2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			StoreDir:   defaultStoreDir,
			SourceDir:  defaultSourceDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			ModelID:        defaultTTSModelID,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Narration: Narration{
			WordsPerSecond:    defaultWordsPerSecond,
			MinSilenceSeconds: defaultMinSilenceSeconds,
		},
		Render: Render{
			Width:             defaultRenderWidth,
			Height:            defaultRenderHeight,
			FPS:               defaultRenderFPS,
			TransitionSeconds: defaultTransitionSeconds,
			ZoomMax:           defaultZoomMax,
		},
		Workflow: Workflow{
			WorkerCount:        defaultWorkerCount,
			StageMaxAttempts:   defaultStageMaxAttempts,
			BackoffBaseSeconds: defaultBackoffBaseSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
