package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Project store kinds
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	SampleRate int    `json:"sample_rate"`
	BufferMS   int    `json:"buffer_ms"`
	PoolSize   int    `json:"pool_size"`
	LogLevel   string `json:"log_level"`
	LogFile    string `json:"log_file"`

	DataDir       string `json:"data_dir"`
	RecordingsDir string `json:"recordings_dir"`
	ExportDir     string `json:"export_dir"`
	ProjectsDir   string `json:"projects_dir"`
	PresetsPath   string `json:"presets_path"`

	// ProjectStore is one of file, sqlite or postgres. DatabaseURL is the
	// sqlite file or the postgres connection string.
	ProjectStore string `json:"project_store"`
	DatabaseURL  string `json:"database_url"`

	KeyBindings KeyMap `json:"key_bindings"`
}

// KeyMap defines keyboard shortcuts
type KeyMap struct {
	PlayPause   string `json:"play_pause"`
	Stop        string `json:"stop"`
	Rewind      string `json:"rewind"`
	ToggleTrack string `json:"toggle_track"`
	StopTrack   string `json:"stop_track"`
	Loop        string `json:"loop"`
	Select      string `json:"select"`
	Trim        string `json:"trim"`
	SeekBack    string `json:"seek_back"`
	SeekForward string `json:"seek_forward"`
	Mute        string `json:"mute"`
	Solo        string `json:"solo"`
	VolumeUp    string `json:"volume_up"`
	VolumeDown  string `json:"volume_down"`
	PanLeft     string `json:"pan_left"`
	PanRight    string `json:"pan_right"`
	AddTrack    string `json:"add_track"`
	RemoveTrack string `json:"remove_track"`
	Import      string `json:"import"`
	Preset      string `json:"preset"`
	Record      string `json:"record"`
	RecordTrack string `json:"record_track"`
	Export      string `json:"export"`
	Save        string `json:"save"`
	Quit        string `json:"quit"`
}

// GetDefaultConfig returns default configuration
func GetDefaultConfig() *Config {
	return &Config{
		SampleRate:   44100,
		BufferMS:     100,
		PoolSize:     3,
		LogLevel:     "info",
		DataDir:      "./data",
		ProjectStore: StoreFile,
		KeyBindings: KeyMap{
			PlayPause:   " ",
			Stop:        "s",
			Rewind:      "0",
			ToggleTrack: "enter",
			StopTrack:   "backspace",
			Loop:        "l",
			Select:      "v",
			Trim:        "t",
			SeekBack:    "left",
			SeekForward: "right",
			Mute:        "m",
			Solo:        "S",
			VolumeUp:    "+",
			VolumeDown:  "-",
			PanLeft:     "[",
			PanRight:    "]",
			AddTrack:    "a",
			RemoveTrack: "x",
			Import:      "i",
			Preset:      "p",
			Record:      "r",
			RecordTrack: "R",
			Export:      "e",
			Save:        "w",
			Quit:        "q",
		},
	}
}

// LoadConfig reads and unmarshals configuration from file. Missing fields
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	config := GetDefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// SaveConfig marshals and saves configuration to file
func SaveConfig(config *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadOrCreate loads config from path or creates default if not exists
func LoadOrCreate(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	// Save default config if file didn't exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveConfig(config, path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	return config, nil
}

// Load reads the config file at path, then the .env file at envFile (if
// any), then applies DAW_* environment overrides and fills derived paths.
func Load(path, envFile string) (*Config, error) {
	config, err := LoadOrCreate(path)
	if err != nil {
		return nil, err
	}
	if err := LoadEnv(envFile); err != nil {
		return nil, err
	}
	config.ApplyEnv()
	config.Resolve()
	return config, nil
}

// LoadEnv loads variables from a .env file. Variables already set in the
// environment win; a missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from DAW_* environment variables
func (c *Config) ApplyEnv() {
	c.SampleRate = envInt("DAW_SAMPLE_RATE", c.SampleRate)
	c.BufferMS = envInt("DAW_BUFFER_MS", c.BufferMS)
	c.PoolSize = envInt("DAW_POOL_SIZE", c.PoolSize)
	c.LogLevel = envStr("DAW_LOG_LEVEL", c.LogLevel)
	c.LogFile = envStr("DAW_LOG_FILE", c.LogFile)
	c.DataDir = envStr("DAW_DATA_DIR", c.DataDir)
	c.RecordingsDir = envStr("DAW_RECORDINGS_DIR", c.RecordingsDir)
	c.ExportDir = envStr("DAW_EXPORT_DIR", c.ExportDir)
	c.ProjectsDir = envStr("DAW_PROJECTS_DIR", c.ProjectsDir)
	c.PresetsPath = envStr("DAW_PRESETS", c.PresetsPath)
	c.ProjectStore = envStr("DAW_PROJECT_STORE", c.ProjectStore)
	c.DatabaseURL = envStr("DAW_DATABASE_URL", c.DatabaseURL)
}

// Resolve fills paths left empty from DataDir and fixes invalid numbers
func (c *Config) Resolve() {
	def := GetDefaultConfig()
	if c.SampleRate <= 0 {
		c.SampleRate = def.SampleRate
	}
	if c.BufferMS <= 0 {
		c.BufferMS = def.BufferMS
	}
	if c.PoolSize <= 0 {
		c.PoolSize = def.PoolSize
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.RecordingsDir == "" {
		c.RecordingsDir = filepath.Join(c.DataDir, "recordings")
	}
	if c.ExportDir == "" {
		c.ExportDir = filepath.Join(c.DataDir, "exports")
	}
	if c.ProjectsDir == "" {
		c.ProjectsDir = filepath.Join(c.DataDir, "projects")
	}
	if c.PresetsPath == "" {
		c.PresetsPath = filepath.Join(c.DataDir, "presets.yaml")
	}
	if c.ProjectStore == "" {
		c.ProjectStore = StoreFile
	}
	if c.ProjectStore == StoreSQLite && c.DatabaseURL == "" {
		c.DatabaseURL = filepath.Join(c.DataDir, "projects.db")
	}
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	// Check environment variable first
	if path := os.Getenv("DAW_CONFIG"); path != "" {
		return path
	}

	// Use XDG config directory if available
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "multitrack", "config.json")
	}

	// Fall back to home directory
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(home, ".config", "multitrack", "config.json")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
