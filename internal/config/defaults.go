package config

const (
	defaultConfigPath            = "~/.config/lectern/config.toml"
	defaultStateDir              = "~/.local/share/lectern"
	defaultLogDir                = "~/.local/share/lectern/logs"
	defaultStorageBackend        = "sqlite"
	defaultTranscriptKey         = "transcriptData"
	defaultRedisAddr             = "127.0.0.1:6379"
	defaultRedisPrefix           = "lectern:"
	defaultAgentBind             = "127.0.0.1:7488"
	defaultAgentCallTimeout      = 30
	defaultAgentLongPollSeconds  = 20
	defaultAgentStaleSeconds     = 90
	defaultPlatformBaseURL       = "https://www.udemy.com/api-2.0"
	defaultPlatformPageSize      = 200
	defaultPlatformTimeout       = 30
	defaultPlatformUserAgent     = "Lectern/dev"
	defaultMaxErrors             = 5
	defaultWatchdogSeconds       = 180
	defaultFetchDelayMillis      = 500
	defaultStallCheckInterval    = 60
	defaultStallChecks           = 3
	defaultNotifyRequestTimeout  = 10
	defaultOutputFormat          = "markdown"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultSocketName            = "lectern.sock"
	defaultPlatformCookieEnv     = "LECTERN_PLATFORM_COOKIE"
	defaultPlatformTokenEnv      = "LECTERN_PLATFORM_TOKEN"
	defaultAgentTokenEnv         = "LECTERN_AGENT_TOKEN"
	defaultRedisPasswordEnv      = "LECTERN_REDIS_PASSWORD"
	defaultNotificationsTopicEnv = "LECTERN_NTFY_TOPIC"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Storage: Storage{
			Backend:       defaultStorageBackend,
			TranscriptKey: defaultTranscriptKey,
			RedisAddr:     defaultRedisAddr,
			RedisPrefix:   defaultRedisPrefix,
		},
		Agent: Agent{
			Bind:            defaultAgentBind,
			CallTimeout:     defaultAgentCallTimeout,
			LongPollSeconds: defaultAgentLongPollSeconds,
			StaleSeconds:    defaultAgentStaleSeconds,
		},
		Platform: Platform{
			Enabled:        true,
			BaseURL:        defaultPlatformBaseURL,
			PageSize:       defaultPlatformPageSize,
			CaptionLocales: []string{"en_US", "en_GB", "en"},
			RequestTimeout: defaultPlatformTimeout,
			UserAgent:      defaultPlatformUserAgent,
		},
		Recording: Recording{
			MaxErrors:          defaultMaxErrors,
			WatchdogSeconds:    defaultWatchdogSeconds,
			FetchDelayMillis:   defaultFetchDelayMillis,
			StallCheckInterval: defaultStallCheckInterval,
			StallChecks:        defaultStallChecks,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completed:      true,
			Stopped:        true,
			Errors:         true,
		},
		Output: Output{
			Format: defaultOutputFormat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
