// Package config loads runtime configuration from the environment and an
// optional JSON config file. Environment variables always win.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type RuntimeConfig struct {
	Bind       string
	Port       string
	CdpURL     string
	Token      string
	StateDir   string
	ProfileDir string
	Headless   bool

	// Hint service
	Provider     string // "backend" or "gemini"
	APIBaseURL   string
	LoginURL     string
	GeminiModel  string
	GeminiAPIURL string

	// Auth capture
	CallbackMarker     string
	CallbackCloseDelay time.Duration
	WatchInterval      time.Duration

	ScrapeTimeout   time.Duration
	HintTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func homeDir() string {
	h, _ := os.UserHomeDir()
	return h
}

func (c *RuntimeConfig) ListenAddr() string {
	return c.Bind + ":" + c.Port
}

// FileConfig is the JSON config file format.
type FileConfig struct {
	Port        string `json:"port"`
	CdpURL      string `json:"cdpUrl,omitempty"`
	Token       string `json:"token,omitempty"`
	StateDir    string `json:"stateDir"`
	ProfileDir  string `json:"profileDir"`
	Headless    *bool  `json:"headless,omitempty"`
	Provider    string `json:"provider,omitempty"`
	APIBaseURL  string `json:"apiBaseUrl,omitempty"`
	LoginURL    string `json:"loginUrl,omitempty"`
	GeminiModel string `json:"geminiModel,omitempty"`
}

// Load builds the runtime configuration. A .env file in the working
// directory is applied first, then real environment variables, then the
// config file for anything the environment left unset.
func Load() *RuntimeConfig {
	_ = godotenv.Load()

	cfg := &RuntimeConfig{
		Bind:       envOr("MENTOR_BIND", "127.0.0.1"),
		Port:       envOr("MENTOR_PORT", "9321"),
		CdpURL:     os.Getenv("CDP_URL"),
		Token:      os.Getenv("MENTOR_TOKEN"),
		StateDir:   envOr("MENTOR_STATE_DIR", filepath.Join(homeDir(), ".mentortab")),
		ProfileDir: envOr("MENTOR_PROFILE", filepath.Join(homeDir(), ".mentortab", "chrome-profile")),
		Headless:   envBoolOr("MENTOR_HEADLESS", false),

		Provider:     envOr("MENTOR_PROVIDER", "backend"),
		APIBaseURL:   envOr("MENTOR_API_URL", "http://localhost:9002/api"),
		LoginURL:     envOr("MENTOR_LOGIN_URL", "http://localhost:9002/login"),
		GeminiModel:  envOr("MENTOR_GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiAPIURL: envOr("MENTOR_GEMINI_URL", "https://generativelanguage.googleapis.com/v1beta"),

		CallbackMarker:     envOr("MENTOR_CALLBACK_MARKER", "auth-callback"),
		CallbackCloseDelay: 1500 * time.Millisecond,
		WatchInterval:      500 * time.Millisecond,

		ScrapeTimeout:   15 * time.Second,
		HintTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}

	configPath := envOr("MENTOR_CONFIG", filepath.Join(homeDir(), ".mentortab", "config.json"))

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}

	var fc FileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		slog.Warn("invalid JSON in config file, ignoring", "path", configPath, "err", err)
		return cfg
	}

	if fc.Port != "" && os.Getenv("MENTOR_PORT") == "" {
		cfg.Port = fc.Port
	}
	if fc.CdpURL != "" && os.Getenv("CDP_URL") == "" {
		cfg.CdpURL = fc.CdpURL
	}
	if fc.Token != "" && os.Getenv("MENTOR_TOKEN") == "" {
		cfg.Token = fc.Token
	}
	if fc.StateDir != "" && os.Getenv("MENTOR_STATE_DIR") == "" {
		cfg.StateDir = fc.StateDir
	}
	if fc.ProfileDir != "" && os.Getenv("MENTOR_PROFILE") == "" {
		cfg.ProfileDir = fc.ProfileDir
	}
	if fc.Headless != nil && os.Getenv("MENTOR_HEADLESS") == "" {
		cfg.Headless = *fc.Headless
	}
	if fc.Provider != "" && os.Getenv("MENTOR_PROVIDER") == "" {
		cfg.Provider = fc.Provider
	}
	if fc.APIBaseURL != "" && os.Getenv("MENTOR_API_URL") == "" {
		cfg.APIBaseURL = fc.APIBaseURL
	}
	if fc.LoginURL != "" && os.Getenv("MENTOR_LOGIN_URL") == "" {
		cfg.LoginURL = fc.LoginURL
	}
	if fc.GeminiModel != "" && os.Getenv("MENTOR_GEMINI_MODEL") == "" {
		cfg.GeminiModel = fc.GeminiModel
	}

	return cfg
}

func DefaultFileConfig() FileConfig {
	h := false
	return FileConfig{
		Port:       "9321",
		StateDir:   filepath.Join(homeDir(), ".mentortab"),
		ProfileDir: filepath.Join(homeDir(), ".mentortab", "chrome-profile"),
		Headless:   &h,
		Provider:   "backend",
		APIBaseURL: "http://localhost:9002/api",
		LoginURL:   "http://localhost:9002/login",
	}
}

// HandleConfigCommand implements the `mentortab config <init|show>` subcommand.
func HandleConfigCommand(cfg *RuntimeConfig) {
	if len(os.Args) < 3 {
		fmt.Println("Usage: mentortab config <command>")
		fmt.Println("Commands:")
		fmt.Println("  init    - Create default config file")
		fmt.Println("  show    - Show current configuration")
		return
	}

	switch os.Args[2] {
	case "init":
		configPath := filepath.Join(homeDir(), ".mentortab", "config.json")

		if _, err := os.Stat(configPath); err == nil {
			fmt.Printf("Config file already exists at %s\n", configPath)
			fmt.Print("Overwrite? (y/N): ")
			var response string
			_, _ = fmt.Scanln(&response)
			if response != "y" && response != "Y" {
				return
			}
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			fmt.Printf("Error creating directory: %v\n", err)
			os.Exit(1)
		}

		fc := DefaultFileConfig()
		data, _ := json.MarshalIndent(fc, "", "  ")
		if err := os.WriteFile(configPath, data, 0644); err != nil {
			fmt.Printf("Error writing config: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Config file created at %s\n", configPath)

	case "show":
		fmt.Println("Current configuration:")
		fmt.Printf("  Port:       %s\n", cfg.Port)
		fmt.Printf("  CDP URL:    %s\n", cfg.CdpURL)
		fmt.Printf("  Token:      %s\n", MaskToken(cfg.Token))
		fmt.Printf("  State Dir:  %s\n", cfg.StateDir)
		fmt.Printf("  Profile:    %s\n", cfg.ProfileDir)
		fmt.Printf("  Headless:   %v\n", cfg.Headless)
		fmt.Printf("  Provider:   %s\n", cfg.Provider)
		fmt.Printf("  API URL:    %s\n", cfg.APIBaseURL)
		fmt.Printf("  Login URL:  %s\n", cfg.LoginURL)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[2])
		os.Exit(1)
	}
}

func MaskToken(t string) string {
	if t == "" {
		return "(none)"
	}
	if len(t) <= 8 {
		return "***"
	}
	return t[:4] + "..." + t[len(t)-4:]
}
