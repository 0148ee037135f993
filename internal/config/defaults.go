package config

const (
	defaultDataDir              = "~/.local/share/cardgraph"
	defaultSignalDir            = "~/.local/share/cardgraph/signals"
	defaultLogDir               = "~/.local/share/cardgraph/logs"
	defaultToolsDir             = "~/.local/share/cardgraph/tools"
	defaultManagerScript        = "transcription_manager.py"
	defaultPythonBinary         = "python3"
	defaultAPIBind              = "127.0.0.1:7519"
	defaultTickIntervalSeconds  = 60
	defaultCleanupIntervalMins  = 15
	defaultDeleteSignalWaitMsec = 500
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			SignalDir: defaultSignalDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Workers: Workers{
			ToolsDir:      defaultToolsDir,
			ManagerScript: defaultManagerScript,
			PythonBinary:  defaultPythonBinary,
		},
		Scheduler: Scheduler{
			TickIntervalSeconds:  defaultTickIntervalSeconds,
			CleanupIntervalMins:  defaultCleanupIntervalMins,
			DeleteSignalWaitMsec: defaultDeleteSignalWaitMsec,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
