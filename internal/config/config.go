package config

import (
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
	"github.com/spf13/viper"
)

var (
	ErrInvalidChunkSize           = errors.New("streamer chunk size must be greater than 0")
	ErrInvalidBaseDir             = errors.New("resource base directory must be set")
	ErrInvalidSidecarName         = errors.New("sidecar executable name must be set")
	ErrInvalidBufferConfig        = errors.New("buffered amount low threshold must be less than max buffered amount")
	ErrInvalidServerAddr          = errors.New("server address must be set")
	ErrInvalidFirebaseConfig      = errors.New("Firebase credentials path must be set")
	ErrInvalidFirebaseProjectID   = errors.New("Firebase project ID must be set")
	ErrInvalidFirebaseDatabaseURL = errors.New("Firebase database URL must be set")
)

// DefaultChunkSize is the number of bytes carried by one streamed chunk
const DefaultChunkSize = 4096

// Config holds all application configuration
type Config struct {
	Resources ResourceConfig `mapstructure:"resources"`
	Streamer  StreamerConfig `mapstructure:"streamer"`
	Sidecar   SidecarConfig  `mapstructure:"sidecar"`
	Server    ServerConfig   `mapstructure:"server"`
	Log       LogConfig      `mapstructure:"log"`
	WebRTC    WebRTCConfig   `mapstructure:"webrtc"`
	Firebase  FirebaseConfig `mapstructure:"firebase"`
}

// ResourceConfig controls where relative resource paths are resolved
type ResourceConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// StreamerConfig holds chunked streaming settings
type StreamerConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
}

// SidecarConfig describes the external analysis executable
type SidecarConfig struct {
	Name       string `mapstructure:"name"`
	Dir        string `mapstructure:"dir"`
	BannerFlag string `mapstructure:"banner_flag"`
}

// ServerConfig holds the HTTP/websocket surface settings
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// AllowedOrigins lists browser origins, besides the server's own, that
	// may call the API. Requests without an Origin header are always allowed.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logging settings
type LogConfig struct {
	File  string `mapstructure:"file"`
	Debug bool   `mapstructure:"debug"`
}

// WebRTCConfig holds WebRTC-specific configuration
type WebRTCConfig struct {
	ICEServers                 []string `mapstructure:"ice_servers"`
	BufferedAmountLowThreshold uint64   `mapstructure:"buffered_amount_low_threshold"`
	MaxBufferedAmount          uint64   `mapstructure:"max_buffered_amount"`
}

// FirebaseConfig holds Firebase client configuration
type FirebaseConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	DatabaseURL     string `mapstructure:"database_url"`
	CredentialsPath string `mapstructure:"credentials_path"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Resources: ResourceConfig{
			BaseDir: "resources",
		},
		Streamer: StreamerConfig{
			ChunkSize: DefaultChunkSize,
		},
		Sidecar: SidecarConfig{
			Name:       "ffprobe",
			Dir:        "bin",
			BannerFlag: "-hide_banner",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		WebRTC: WebRTCConfig{
			ICEServers:                 []string{"stun:stun.l.google.com:19302"},
			BufferedAmountLowThreshold: 512 * 1024,  // 512 KB
			MaxBufferedAmount:          1024 * 1024, // 1 MB
		},
	}
}

// RegisterDefaults declares every key with its default value so that
// environment variables are picked up by Unmarshal
func RegisterDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("resources.base_dir", d.Resources.BaseDir)
	v.SetDefault("streamer.chunk_size", d.Streamer.ChunkSize)
	v.SetDefault("sidecar.name", d.Sidecar.Name)
	v.SetDefault("sidecar.dir", d.Sidecar.Dir)
	v.SetDefault("sidecar.banner_flag", d.Sidecar.BannerFlag)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("webrtc.ice_servers", d.WebRTC.ICEServers)
	v.SetDefault("webrtc.buffered_amount_low_threshold", d.WebRTC.BufferedAmountLowThreshold)
	v.SetDefault("webrtc.max_buffered_amount", d.WebRTC.MaxBufferedAmount)
	v.SetDefault("firebase.project_id", d.Firebase.ProjectID)
	v.SetDefault("firebase.database_url", d.Firebase.DatabaseURL)
	v.SetDefault("firebase.credentials_path", d.Firebase.CredentialsPath)
}

// Load overlays values found in v on top of the defaults
func Load(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()
	if v == nil {
		return cfg, nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}

// Validate ensures the settings shared by every command are valid
func (c *Config) Validate() error {
	if c.Streamer.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.Resources.BaseDir == "" {
		return ErrInvalidBaseDir
	}
	if c.Sidecar.Name == "" {
		return ErrInvalidSidecarName
	}
	if c.Server.Addr == "" {
		return ErrInvalidServerAddr
	}
	if c.WebRTC.BufferedAmountLowThreshold >= c.WebRTC.MaxBufferedAmount {
		return ErrInvalidBufferConfig
	}
	return nil
}

// ValidateFirebase ensures the signalling backend is configured.
// Only the WebRTC commands need it.
func (c *Config) ValidateFirebase() error {
	if c.Firebase.CredentialsPath == "" {
		return ErrInvalidFirebaseConfig
	}
	if c.Firebase.ProjectID == "" {
		return ErrInvalidFirebaseProjectID
	}
	if c.Firebase.DatabaseURL == "" {
		return ErrInvalidFirebaseDatabaseURL
	}
	return nil
}

// ICEServerList converts the configured URLs into pion ICE servers
func (c *WebRTCConfig) ICEServerList() []webrtc.ICEServer {
	if len(c.ICEServers) == 0 {
		return nil
	}
	return []webrtc.ICEServer{{URLs: c.ICEServers}}
}
