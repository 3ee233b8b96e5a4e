package config

// Config is the full process configuration.
//
// It is loaded from an optional JSON or YAML file and then overridden by
// environment variables (the env tags below). Running with no config file
// at all is supported as long as the bot token is set in the environment.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	HTTP     HTTPConfig     `json:"http"`
	Registry RegistryConfig `json:"registry"`
	Audit    AuditConfig    `json:"audit"`
	Logging  LoggingConfig  `json:"logging"`
}

type TelegramConfig struct {
	Token string `json:"token" env:"TELEGRAM_BOT_TOKEN"`

	// AdminChatID is the chat authorized for the /list command and the
	// target of the Telegram log sink. Empty disables both.
	AdminChatID string `json:"admin_chat_id" env:"ADMIN_ID"`

	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

type HTTPConfig struct {
	Port int `json:"port" env:"PORT"`

	// RatePerSec caps inbound notification submissions (token bucket).
	RatePerSec int `json:"rate_per_sec"`
}

type RegistryConfig struct {
	// Path of the roster snapshot file.
	Path string `json:"path" env:"ARTISTS_FILE"`

	// FlushEvery is a cron spec for the persistence retry job.
	FlushEvery string `json:"flush_every"`
}

// AuditConfig controls the delivery audit trail.
//
// Driver values:
//   - "sqlite": SQLite database file
//   - "" or "none": disabled
type AuditConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}
