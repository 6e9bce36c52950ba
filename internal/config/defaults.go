package config

// Default returns the baseline configuration used before a config file is
// applied.
func Default() Config {
	return Config{
		Paths: Paths{
			ConfigDir:  "~/.config/bindery",
			LibraryDir: "~/Books",
			LogDir:     "~/.local/share/bindery/logs",
		},
		Fulfillment: Fulfillment{
			UserAgent:            "bindery/0.1.0",
			RequestTimeout:       30,
			DownloadTimeout:      300,
			KeepUnknownDownloads: true,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Fulfillment:    true,
			Errors:         true,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
