// Package config loads churchbot's configuration from a JSON or YAML file,
// overlays environment variables, validates it and watches the file for
// changes.
package config

// Config is the whole runtime configuration. Durations are Go duration
// strings ("500ms", "30s", "24h").
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Content   ContentConfig   `json:"content"`
	Router    RouterConfig    `json:"router"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Notifier  NotifierConfig  `json:"notifier"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Ops       OpsConfig       `json:"ops"`
}

type TelegramConfig struct {
	Token       string `json:"token" validate:"required"`
	AdminUserID int64  `json:"admin_user_id" split_words:"true" validate:"gte=0"`
	PollTimeout string `json:"poll_timeout" split_words:"true" validate:"omitempty,duration"`
}

type LoggingConfig struct {
	Level   string       `json:"level" validate:"oneof=debug info warn error"`
	Console bool         `json:"console"`
	File    LoggingFile  `json:"file"`
	Admin   LoggingAdmin `json:"admin"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingAdmin forwards records at or above MinLevel to the admin chat.
type LoggingAdmin struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level" split_words:"true" validate:"omitempty,oneof=debug info warn error"`
	RatePerSec int    `json:"rate_per_sec" split_words:"true" validate:"gte=0"`
}

// StorageConfig selects the persistence backend.
//
//	storage: { driver: sqlite, path: ./data/churchbot.db }
//	storage: { driver: postgres, dsn: postgres://bot@localhost/church }
type StorageConfig struct {
	Driver      string `json:"driver" validate:"oneof=sqlite postgres memory"`
	Path        string `json:"path" validate:"required_if=Driver sqlite"`
	DSN         string `json:"dsn,omitempty" validate:"required_if=Driver postgres"`
	BusyTimeout string `json:"busy_timeout,omitempty" split_words:"true" validate:"omitempty,duration"`
}

// ContentConfig points at the lesson catalog and the media files. An empty
// catalog path uses the built-in catalog; an empty media path disables it.
type ContentConfig struct {
	CatalogPath  string `json:"catalog_path,omitempty" split_words:"true"`
	WelcomeVideo string `json:"welcome_video,omitempty" split_words:"true"`
	UpliftVideo  string `json:"uplift_video,omitempty" split_words:"true"`
	ServiceVideo string `json:"service_video,omitempty" split_words:"true"`
}

type RouterConfig struct {
	// Workers of 0 uses the CPU count.
	Workers   int    `json:"workers" validate:"gte=0,lte=256"`
	QueueSize int    `json:"queue_size" split_words:"true" validate:"gte=0"`
	Timeout   string `json:"timeout" validate:"omitempty,duration"`
}

type BroadcastConfig struct {
	Workers     int    `json:"workers" validate:"gte=0,lte=256"`
	RatePerSec  int    `json:"rate_per_sec" split_words:"true" validate:"gte=0"`
	SendTimeout string `json:"send_timeout" split_words:"true" validate:"omitempty,duration"`
	History     int    `json:"history" validate:"gte=0"`
}

// NotifierConfig controls admin alerts (new members, prayer requests,
// failed broadcast deliveries).
type NotifierConfig struct {
	Enabled     bool   `json:"enabled"`
	RatePerSec  int    `json:"rate_per_sec" split_words:"true" validate:"gte=0"`
	RetryMax    int    `json:"retry_max" split_words:"true" validate:"gte=0,lte=10"`
	DedupWindow string `json:"dedup_window" split_words:"true" validate:"omitempty,duration"`
}

type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
	// Timezone is an IANA zone; empty means the host zone.
	Timezone   string `json:"timezone,omitempty" validate:"omitempty,timezone"`
	JobTimeout string `json:"job_timeout,omitempty" split_words:"true" validate:"omitempty,duration"`
	// LookAhead is how far ahead the event reminder scans stored events.
	LookAhead string     `json:"look_ahead,omitempty" split_words:"true" validate:"omitempty,duration"`
	Jobs      JobsConfig `json:"jobs" ignored:"true"`
}

type JobsConfig struct {
	MorningVerse   DailyJobConfig    `json:"morning_verse"`
	EveningCheckin DailyJobConfig    `json:"evening_checkin"`
	EventReminder  IntervalJobConfig `json:"event_reminder"`
	Uplift         IntervalJobConfig `json:"uplift"`
}

// DailyJobConfig fires at At ("HH:MM") on Days (all days when empty).
type DailyJobConfig struct {
	Enabled bool     `json:"enabled"`
	At      string   `json:"at" validate:"omitempty,clock"`
	Days    []string `json:"days,omitempty" validate:"dive,weekday"`
}

// IntervalJobConfig fires every Every, the first time after Delay.
type IntervalJobConfig struct {
	Enabled bool   `json:"enabled"`
	Every   string `json:"every" validate:"omitempty,duration"`
	Delay   string `json:"delay,omitempty" validate:"omitempty,duration"`
}

// OpsConfig controls the local HTTP endpoint serving /healthz, /status and
// pprof. A non-loopback Addr needs a Token unless AllowInsecure is set.
type OpsConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr" validate:"omitempty,hostname_port"`
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty" split_words:"true"`
}
