package config

// DefaultAdminUserID is the administrator used when none is configured.
const DefaultAdminUserID int64 = 7885357096

// Defaults returns the configuration a file is decoded on top of, so
// omitted keys keep these values.
func Defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{
			AdminUserID: DefaultAdminUserID,
			PollTimeout: "10s",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			File:    LoggingFile{Path: "./churchbot.log"},
			Admin:   LoggingAdmin{MinLevel: "error", RatePerSec: 1},
		},
		Storage: StorageConfig{
			Driver:      "sqlite",
			Path:        "./data/churchbot.db",
			BusyTimeout: "5s",
		},
		Router: RouterConfig{
			QueueSize: 64,
			Timeout:   "30s",
		},
		Broadcast: BroadcastConfig{
			Workers:     8,
			RatePerSec:  25,
			SendTimeout: "30s",
			History:     50,
		},
		Notifier: NotifierConfig{
			Enabled:     true,
			RatePerSec:  1,
			RetryMax:    3,
			DedupWindow: "10m",
		},
		Scheduler: SchedulerConfig{
			Enabled:    true,
			JobTimeout: "10m",
			LookAhead:  "24h",
			Jobs: JobsConfig{
				MorningVerse:   DailyJobConfig{Enabled: true, At: "07:00"},
				EveningCheckin: DailyJobConfig{Enabled: true, At: "19:00"},
				EventReminder:  IntervalJobConfig{Enabled: true, Every: "60s"},
				Uplift:         IntervalJobConfig{Enabled: true, Every: "300s"},
			},
		},
		Ops: OpsConfig{Addr: "127.0.0.1:6060"},
	}
}
