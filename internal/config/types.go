package config

type Config struct {
	GitHub  GitHubConfig  `json:"github"`
	Logging LoggingConfig `json:"logging"`

	// Notifications controls the processing pipeline: skip rules,
	// aliases, and per-alert behavior toggles.
	Notifications NotificationsConfig `json:"notifications"`

	Sinks   SinksConfig        `json:"sinks"`
	Storage *StorageConfig     `json:"storage,omitempty"`
	Upkeep  *MaintenanceConfig `json:"maintenance,omitempty"`
}

type GitHubConfig struct {
	Token   string `json:"token"`
	BaseURL string `json:"base_url,omitempty"` // default: https://api.github.com

	// PollInterval is the fallback poll period when the feed advises
	// none. Go duration string (e.g. "60s").
	PollInterval string `json:"poll_interval,omitempty"`

	// Timeout bounds a single API call. Go duration string.
	Timeout string `json:"timeout,omitempty"`

	// RatePerSec is the client-side token bucket for outgoing calls.
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    LoggingFile   `json:"file"`
	Mirror  LoggingMirror `json:"mirror"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingMirror forwards WARN+ log lines to the Telegram sink's owner
// chat when that sink is enabled.
type LoggingMirror struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type NotificationsConfig struct {
	// SkipThreads and SkipActivities are ordered rule lists; a thread
	// or activity matching any rule is skipped.
	SkipThreads    []ThreadRule   `json:"skip_threads,omitempty"`
	SkipActivities []ActivityRule `json:"skip_activities,omitempty"`

	// MarkSkippedRead marks threads skipped by rules as read upstream.
	MarkSkippedRead bool `json:"mark_skipped_read"`

	// CollapseMerged folds activities preceding a PR merge into the
	// merge alert.
	CollapseMerged bool `json:"collapse_merged"`

	// Sound and MarkReadOnClick are passed through to the sinks.
	Sound           bool `json:"sound"`
	MarkReadOnClick bool `json:"mark_read_on_click"`

	// Display-name aliases.
	RepoAliases map[string]string `json:"repo_aliases,omitempty"` // owner/name -> display
	UserAliases map[string]string `json:"user_aliases,omitempty"` // login -> display
}

// ThreadRule declaratively matches threads to skip. All set fields
// must match (AND); list entries are ORed by the rule list.
type ThreadRule struct {
	Repo         string `json:"repo,omitempty"`          // exact full name, or "owner/*"
	Reason       string `json:"reason,omitempty"`        // e.g. "subscribed"
	SubjectType  string `json:"subject_type,omitempty"`  // e.g. "WorkflowRun"
	TitlePattern string `json:"title_pattern,omitempty"` // regexp on subject title
}

// ActivityRule declaratively matches activities to drop.
type ActivityRule struct {
	Actor       string `json:"actor,omitempty"` // login, or "*[bot]" suffix match
	Event       string `json:"event,omitempty"`
	ReviewState string `json:"review_state,omitempty"`
	BodyPattern string `json:"body_pattern,omitempty"` // regexp on comment body
}

type SinksConfig struct {
	Log      LogSinkConfig      `json:"log"`
	Command  CommandSinkConfig  `json:"command"`
	Telegram TelegramSinkConfig `json:"telegram"`
}

type LogSinkConfig struct {
	Enabled bool `json:"enabled"`
}

// CommandSinkConfig spawns a desktop notifier per alert. {title},
// {body} and {url} placeholders in Args are substituted.
type CommandSinkConfig struct {
	Enabled bool     `json:"enabled"`
	Command string   `json:"command,omitempty"` // default: notify-send
	Args    []string `json:"args,omitempty"`
	Timeout string   `json:"timeout,omitempty"` // Go duration string
}

type TelegramSinkConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	ChatID  int64  `json:"chat_id,omitempty"`
}

// StorageConfig controls the optional delivery-ledger persistence.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./ghwatch.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// MaintenanceConfig controls the background upkeep schedules.
//
// Schedules are cron specs ("0 3 * * *") or "@every 24h" forms.
type MaintenanceConfig struct {
	// LedgerPrune deletes delivery-ledger entries older than
	// LedgerRetention. Empty disables pruning.
	LedgerPrune     string `json:"ledger_prune,omitempty"`
	LedgerRetention string `json:"ledger_retention,omitempty"` // Go duration string, default 720h

	// WorkflowCacheReset clears the workflow-pass cache on a
	// schedule, trading staleness for extra feed calls. Empty keeps
	// the cache for the process lifetime.
	WorkflowCacheReset string `json:"workflow_cache_reset,omitempty"`
}
