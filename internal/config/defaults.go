package config

// FallbackCategory receives every file whose extension matches no other category.
const FallbackCategory = "other"

const (
	defaultWatchDir           = "~/Downloads"
	defaultLogDir             = "~/.local/share/downsort/logs"
	defaultStateDir           = "~/.local/share/downsort"
	defaultPollIntervalMillis = 1000
	defaultStablePolls        = 4
	defaultMaxWaitSeconds     = 600
	defaultExistsRetries      = 3
	defaultExistsRetryMillis  = 50
	defaultConcurrency        = 1
	defaultHistoryRetention   = 90
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
)

// DefaultCategories returns the built-in category table in match order.
func DefaultCategories() []Category {
	return []Category{
		{Name: "images", Destination: "~/Pictures/Incoming", Extensions: []string{"jpg", "jpeg", "png", "gif", "webp", "heic", "bmp", "tiff", "svg"}},
		{Name: "videos", Destination: "~/Videos/Incoming", Extensions: []string{"mp4", "mov", "mkv", "webm", "avi", "m4v"}},
		{Name: "audio", Destination: "~/Music/Incoming", Extensions: []string{"mp3", "wav", "flac", "m4a", "aac", "ogg"}},
		{Name: "docs", Destination: "~/Documents/Incoming", Extensions: []string{"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "txt", "md", "csv", "odt", "ods"}},
		{Name: "archives", Destination: "~/Archives", Extensions: []string{"zip", "rar", "7z", "tar", "gz", "bz2"}},
		{Name: "apps", Destination: "~/Apps", Extensions: []string{"exe", "msi", "dmg", "pkg", "deb", "rpm", "apk"}},
		{Name: FallbackCategory, Destination: "~/Other"},
	}
}

// DefaultIgnoreSuffixes lists in-progress download markers used by browsers and download tools.
func DefaultIgnoreSuffixes() []string {
	return []string{".part", ".crdownload", ".tmp", ".download", ".partial"}
}

// DefaultLockPatterns lists transient lock-file names written by office editors.
func DefaultLockPatterns() []string {
	return []string{"~$*", ".~lock.*#"}
}

// Default returns a Config populated with repository defaults. Categories and
// ignore rules are filled in by normalize when a file does not set them.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir: defaultWatchDir,
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Stability: Stability{
			PollIntervalMillis:     defaultPollIntervalMillis,
			StablePolls:            defaultStablePolls,
			MaxWaitSeconds:         defaultMaxWaitSeconds,
			ExistsRetries:          defaultExistsRetries,
			ExistsRetryDelayMillis: defaultExistsRetryMillis,
		},
		Workflow: Workflow{
			Concurrency: defaultConcurrency,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetention,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
