package config

const (
	defaultDataDir                = "~/.local/share/molequeue"
	defaultLogDir                 = "~/.local/share/molequeue/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultOnConflict             = "ask"
	defaultConflictTimeoutSeconds = 30
	defaultDispatchBuffer         = 64
	defaultNotifyRequestTimeout   = 10
	defaultQueueName              = "local"
)

// OnConflict policy values accepted by server.on_conflict.
const (
	OnConflictExit    = "exit"
	OnConflictReplace = "replace"
	OnConflictAsk     = "ask"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			OnConflict:             defaultOnConflict,
			ConflictTimeoutSeconds: defaultConflictTimeoutSeconds,
			DispatchBuffer:         defaultDispatchBuffer,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Queues: []QueueDef{
			{Name: defaultQueueName, Description: "Local execution queue"},
		},
	}
}
