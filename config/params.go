package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultSettingsPath is read when no settings file is given.
const DefaultSettingsPath = "config/params.yaml"

// EnvPrefix prefixes environment overrides, e.g. PASSENGERPIPE_DATA_ROOT.
const EnvPrefix = "PASSENGERPIPE"

// Params is the run context handed to every pipeline as its payload. It is
// read once per run and never modified.
type Params struct {
	TrainPath string `json:"train_path"`
	TestPath  string `json:"test_path"`
	// OutputPath is read for compatibility but stage outputs always go to
	// fixed subdirectories of Root.
	OutputPath string `json:"output_path,omitempty"`
	Root       string `json:"root"`
}

// Settings holds everything read from the settings file.
type Settings struct {
	Data      Params
	Log       LogSettings
	Metrics   MetricsSettings
	RunStore  RunStoreSettings
	Pipelines string // optional pipeline definitions file
}

// LogSettings configures the diagnostics logger.
type LogSettings struct {
	Level     string
	Format    string
	ErrorFile string
}

// MetricsSettings configures the Prometheus textfile export.
type MetricsSettings struct {
	Textfile string
}

// RunStoreSettings configures the optional Postgres run ledger.
type RunStoreSettings struct {
	DSN string
}

// Load reads settings from path (DefaultSettingsPath when empty). The file
// must exist. Environment variables override file values.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = DefaultSettingsPath
	}
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}

	var s Settings

	// Data
	s.Data.TrainPath = v.GetString("data.train_path")
	s.Data.TestPath = v.GetString("data.test_path")
	s.Data.OutputPath = v.GetString("data.output_path")
	s.Data.Root = v.GetString("data.root")

	// Logging
	s.Log.Level = v.GetString("log.level")
	s.Log.Format = v.GetString("log.format")
	s.Log.ErrorFile = v.GetString("log.error_file")

	s.Metrics.Textfile = v.GetString("metrics.textfile")
	s.RunStore.DSN = v.GetString("runstore.dsn")
	s.Pipelines = v.GetString("pipelines")

	if err := validate(&s); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	// Data defaults; empty paths must come from the file or the environment
	v.SetDefault("data.train_path", "")
	v.SetDefault("data.test_path", "")
	v.SetDefault("data.output_path", "")
	v.SetDefault("data.root", "data")

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.error_file", "errors.log")

	v.SetDefault("metrics.textfile", "")
	v.SetDefault("runstore.dsn", "")
	v.SetDefault("pipelines", "")
}

func validate(s *Settings) error {
	if s.Data.TrainPath == "" {
		return fmt.Errorf("data.train_path is required")
	}
	if s.Data.TestPath == "" {
		return fmt.Errorf("data.test_path is required")
	}
	if s.Data.Root == "" {
		return fmt.Errorf("data.root must not be empty")
	}
	return nil
}
