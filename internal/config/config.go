// Package config loads the daemon's configuration: listen/websocket
// settings plus the engine tunables (generation constraints, simulation
// behavior, scoring constants). Engine components receive these structs
// explicitly; nothing reads ambient process-wide state.
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shellworks/shelltrainer/internal/course"
	"github.com/shellworks/shelltrainer/internal/history"
	"github.com/shellworks/shelltrainer/internal/scoring"
	"github.com/shellworks/shelltrainer/internal/sim"
)

// AppConfig holds daemon-wide configuration settings
type AppConfig struct {
	Server  ServerConfig   `yaml:"server"`
	Course  course.Config  `yaml:"course"`
	Sim     sim.Config     `yaml:"simulation"`
	Scoring scoring.Config `yaml:"scoring"`
	History history.Config `yaml:"history"`
}

// ServerConfig holds HTTP/WebSocket settings
type ServerConfig struct {
	// ListenAddr is the daemon's bind address
	ListenAddr string `yaml:"listen_addr"`

	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy. "*" allows all origins.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum WebSocket message size in bytes
	MaxMessageSize int64 `yaml:"max_message_size"`

	// APIKeyHash is the bcrypt hash of the API key required to start runs.
	// Empty disables authentication.
	APIKeyHash string `yaml:"api_key_hash"`

	// PreviewWorkers bounds parallelism for preview fan-out requests
	PreviewWorkers int `yaml:"preview_workers"`

	// MaxPreviewCandidates caps how many candidate courses one preview
	// request may ask for.
	MaxPreviewCandidates int `yaml:"max_preview_candidates"`
}

// DefaultConfig returns an AppConfig with secure defaults
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			ListenAddr:           ":8470",
			AllowedOrigins:       []string{},
			MaxMessageSize:       4096,
			PreviewWorkers:       4,
			MaxPreviewCandidates: 16,
		},
		Course:  course.DefaultConfig(),
		Sim:     sim.DefaultConfig(),
		Scoring: scoring.DefaultConfig(),
		History: history.DefaultConfig("data/shelltrainer.db"),
	}
}

// LoadConfig loads configuration from a YAML file. If the file doesn't
// exist, returns the default config. Environment variables override the
// listen address and API key hash.
func LoadConfig(path string) (*AppConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(config)
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), err
	}

	applyEnv(config)
	return config, nil
}

// applyEnv applies environment variable overrides
func applyEnv(config *AppConfig) {
	if addr := os.Getenv("TRAININGD_LISTEN_ADDR"); addr != "" {
		config.Server.ListenAddr = addr
	}
	if hash := os.Getenv("TRAININGD_API_KEY_HASH"); hash != "" {
		config.Server.APIKeyHash = hash
	}
}

// IsOriginAllowed checks if the given origin may open a WebSocket.
// Returns true if AllowedOrigins contains "*", contains the exact origin,
// or is empty and the origin matches the request host (same-origin).
func (c *ServerConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" {
			return true
		}
		if allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means a non-browser client
	}

	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
