package config

// GenerateOptions defines options for a one-shot variation run.
type GenerateOptions struct {
	InputPath    string
	OutputDir    string
	Count        int
	OutputFormat string // "mp4" or "webm"
	Quality      int    // 1..100, 0 keeps the default
	Verbose      bool
}

// ServeOptions defines options for the dashboard API server.
type ServeOptions struct {
	Addr         string
	SettingsPath string
	Verbose      bool
}

// Settings are the persisted server defaults.
type Settings struct {
	OutputDir      string `json:"outputDir"`
	DefaultFormat  string `json:"defaultFormat"`
	DefaultCount   int    `json:"defaultCount"`
	MaxUploadBytes int64  `json:"maxUploadBytes"`
}

// DefaultSettings returns the settings used when no file exists yet.
func DefaultSettings() Settings {
	return Settings{
		OutputDir:      "variations",
		DefaultFormat:  "mp4",
		DefaultCount:   3,
		MaxUploadBytes: 512 * 1024 * 1024,
	}
}
