// Package config provides configuration management for vpool-wizard.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/openvstorage/vpool-wizard/internal/constants"
)

// Config holds the connection settings for the local storage installation,
// proxy configuration, and the wizard sizing defaults.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\openvstorage\wizardconfig
//   - Unix: ~/.config/openvstorage/wizardconfig
//
// INI format:
//
//	[platform]
//	host = 10.100.10.2
//	port = 443
//	client_id = <client-id>
//	client_secret = <client-secret>
//
//	[proxy]
//	mode = no-proxy
//	host =
//	port = 8080
//	user =
//	no_proxy =
//
//	[wizard.defaults]
//	sco_size = 4
//	write_buffer = 128
//	dtl_mode = a_sync
//	dtl_transport = tcp
//	cache_strategy = on_read
//	dedupe_mode = non_dedupe
//	cluster_size = 4
type Config struct {
	// Local installation connection settings
	Host         string `ini:"host"`
	Port         int    `ini:"port"`
	ClientID     string `ini:"client_id"`
	ClientSecret string `ini:"client_secret"`

	// Proxy settings
	ProxyMode     string `ini:"mode"` // no-proxy, system, basic, ntlm
	ProxyHost     string `ini:"host"`
	ProxyPort     int    `ini:"port"`
	ProxyUser     string `ini:"user"`
	ProxyPassword string `ini:"-"` // never persisted
	NoProxy       string `ini:"no_proxy"`

	// Wizard sizing defaults
	Defaults WizardDefaults
}

// WizardDefaults seeds the sizing/policy fields of a fresh wizard session.
type WizardDefaults struct {
	SCOSize       int    `ini:"sco_size"`       // MiB
	WriteBuffer   int    `ini:"write_buffer"`   // MiB
	DTLMode       string `ini:"dtl_mode"`
	DTLTransport  string `ini:"dtl_transport"`
	CacheStrategy string `ini:"cache_strategy"`
	DedupeMode    string `ini:"dedupe_mode"`
	ClusterSize   int    `ini:"cluster_size"` // KiB
}

// Validation errors
var (
	ErrMissingHost        = errors.New("platform host is required")
	ErrInvalidPort        = errors.New("platform port must be between 1 and 65535")
	ErrMissingCredentials = errors.New("client_id and client_secret are required")
	ErrInvalidSCOSize     = errors.New("sco_size is not a supported SCO size")
	ErrInvalidWriteBuffer = errors.New("write_buffer is out of range")
	ErrInvalidClusterSize = errors.New("cluster_size is not a supported cluster size")
	ErrUnknownProxyMode   = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
)

// DefaultPath returns the default path for the wizardconfig file.
// - Windows: %USERPROFILE%\.config\openvstorage\wizardconfig
// - Unix: ~/.config/openvstorage/wizardconfig
func DefaultPath() (string, error) {
	var configDir string

	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		configDir = filepath.Join(userProfile, ".config", "openvstorage")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "openvstorage")
	}

	return filepath.Join(configDir, "wizardconfig"), nil
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Port:      constants.DefaultAPIPort,
		ProxyMode: "no-proxy",
		Defaults: WizardDefaults{
			SCOSize:       4,
			WriteBuffer:   constants.WriteBufferMinSmallSCO,
			DTLMode:       constants.DTLModeASync,
			DTLTransport:  constants.DTLTransportTCP,
			CacheStrategy: constants.CacheStrategyOnRead,
			DedupeMode:    constants.DedupeModeNonDedupe,
			ClusterSize:   4,
		},
	}
}

// Load loads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, nil // defaults if we can't determine a path
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load wizardconfig: %w", err)
	}

	platform := iniFile.Section("platform")
	cfg.Host = platform.Key("host").String()
	cfg.Port = platform.Key("port").MustInt(cfg.Port)
	cfg.ClientID = platform.Key("client_id").String()
	cfg.ClientSecret = platform.Key("client_secret").String()

	proxy := iniFile.Section("proxy")
	cfg.ProxyMode = proxy.Key("mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = proxy.Key("host").String()
	cfg.ProxyPort = proxy.Key("port").MustInt(8080)
	cfg.ProxyUser = proxy.Key("user").String()
	cfg.NoProxy = proxy.Key("no_proxy").String()

	defaults := iniFile.Section("wizard.defaults")
	cfg.Defaults.SCOSize = defaults.Key("sco_size").MustInt(cfg.Defaults.SCOSize)
	cfg.Defaults.WriteBuffer = defaults.Key("write_buffer").MustInt(cfg.Defaults.WriteBuffer)
	cfg.Defaults.DTLMode = defaults.Key("dtl_mode").MustString(cfg.Defaults.DTLMode)
	cfg.Defaults.DTLTransport = defaults.Key("dtl_transport").MustString(cfg.Defaults.DTLTransport)
	cfg.Defaults.CacheStrategy = defaults.Key("cache_strategy").MustString(cfg.Defaults.CacheStrategy)
	cfg.Defaults.DedupeMode = defaults.Key("dedupe_mode").MustString(cfg.Defaults.DedupeMode)
	cfg.Defaults.ClusterSize = defaults.Key("cluster_size").MustInt(cfg.Defaults.ClusterSize)

	return cfg, nil
}

// Save saves configuration to an INI file.
// Creates parent directories if they don't exist.
// The client secret is stored in the file - permissions are restricted.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	platform, err := iniFile.NewSection("platform")
	if err != nil {
		return fmt.Errorf("failed to create platform section: %w", err)
	}
	platform.Key("host").SetValue(cfg.Host)
	platform.Key("port").SetValue(fmt.Sprintf("%d", cfg.Port))
	platform.Key("client_id").SetValue(cfg.ClientID)
	platform.Key("client_secret").SetValue(cfg.ClientSecret)

	proxy, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxy.Key("mode").SetValue(cfg.ProxyMode)
	proxy.Key("host").SetValue(cfg.ProxyHost)
	proxy.Key("port").SetValue(fmt.Sprintf("%d", cfg.ProxyPort))
	proxy.Key("user").SetValue(cfg.ProxyUser)
	proxy.Key("no_proxy").SetValue(cfg.NoProxy)

	defaults, err := iniFile.NewSection("wizard.defaults")
	if err != nil {
		return fmt.Errorf("failed to create defaults section: %w", err)
	}
	defaults.Key("sco_size").SetValue(fmt.Sprintf("%d", cfg.Defaults.SCOSize))
	defaults.Key("write_buffer").SetValue(fmt.Sprintf("%d", cfg.Defaults.WriteBuffer))
	defaults.Key("dtl_mode").SetValue(cfg.Defaults.DTLMode)
	defaults.Key("dtl_transport").SetValue(cfg.Defaults.DTLTransport)
	defaults.Key("cache_strategy").SetValue(cfg.Defaults.CacheStrategy)
	defaults.Key("dedupe_mode").SetValue(cfg.Defaults.DedupeMode)
	defaults.Key("cluster_size").SetValue(fmt.Sprintf("%d", cfg.Defaults.ClusterSize))

	// Temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	// Restrict permissions (client secret is sensitive)
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// BaseURL returns the management API base URL of the local installation.
func (cfg *Config) BaseURL() string {
	return fmt.Sprintf("https://%s:%d", cfg.Host, cfg.Port)
}

// Validate checks if the configuration is usable for API calls.
// Returns nil if valid, or an error describing what's wrong.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.Host) == "" {
		return ErrMissingHost
	}
	if cfg.Port < constants.PortMin || cfg.Port >= constants.PortMax {
		return ErrInvalidPort
	}
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return ErrMissingCredentials
	}
	switch cfg.ProxyMode {
	case "", "no-proxy", "system", "basic", "ntlm":
	default:
		return ErrUnknownProxyMode
	}
	return cfg.ValidateDefaults()
}

// ValidateDefaults checks the wizard sizing defaults.
func (cfg *Config) ValidateDefaults() error {
	if !containsInt(constants.SCOSizes, cfg.Defaults.SCOSize) {
		return ErrInvalidSCOSize
	}
	min := constants.WriteBufferMinSmallSCO
	if cfg.Defaults.SCOSize >= constants.SCOSizeThreshold {
		min = constants.WriteBufferMinLargeSCO
	}
	if cfg.Defaults.WriteBuffer < min || cfg.Defaults.WriteBuffer > constants.WriteBufferMax {
		return ErrInvalidWriteBuffer
	}
	if !containsInt(constants.ClusterSizes, cfg.Defaults.ClusterSize) {
		return ErrInvalidClusterSize
	}
	return nil
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
