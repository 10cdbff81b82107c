package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openvstorage/vpool-wizard/internal/constants"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	if cfg.Port != constants.DefaultAPIPort {
		t.Errorf("expected default port %d, got %d", constants.DefaultAPIPort, cfg.Port)
	}
	if cfg.ProxyMode != "no-proxy" {
		t.Errorf("expected default proxy mode no-proxy, got %s", cfg.ProxyMode)
	}
	if cfg.Defaults.SCOSize != 4 {
		t.Errorf("expected default SCO size 4, got %d", cfg.Defaults.SCOSize)
	}
	if cfg.Defaults.WriteBuffer != constants.WriteBufferMinSmallSCO {
		t.Errorf("expected default write buffer %d, got %d", constants.WriteBufferMinSmallSCO, cfg.Defaults.WriteBuffer)
	}
	if err := cfg.ValidateDefaults(); err != nil {
		t.Errorf("default sizing should validate, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "wizardconfig")

	cfg := New()
	cfg.Host = "10.100.10.2"
	cfg.Port = 443
	cfg.ClientID = "wizard"
	cfg.ClientSecret = "s3cret"
	cfg.Defaults.SCOSize = 64
	cfg.Defaults.WriteBuffer = 512

	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Host != cfg.Host {
		t.Errorf("Host mismatch: expected %s, got %s", cfg.Host, loaded.Host)
	}
	if loaded.Port != cfg.Port {
		t.Errorf("Port mismatch: expected %d, got %d", cfg.Port, loaded.Port)
	}
	if loaded.ClientID != cfg.ClientID {
		t.Errorf("ClientID mismatch: expected %s, got %s", cfg.ClientID, loaded.ClientID)
	}
	if loaded.ClientSecret != cfg.ClientSecret {
		t.Errorf("ClientSecret mismatch: expected %s, got %s", cfg.ClientSecret, loaded.ClientSecret)
	}
	if loaded.Defaults.SCOSize != 64 {
		t.Errorf("SCOSize mismatch: expected 64, got %d", loaded.Defaults.SCOSize)
	}
	if loaded.Defaults.WriteBuffer != 512 {
		t.Errorf("WriteBuffer mismatch: expected 512, got %d", loaded.Defaults.WriteBuffer)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Load of missing file should not fail, got %v", err)
	}
	if cfg.ProxyMode != "no-proxy" {
		t.Errorf("expected defaults, got proxy mode %s", cfg.ProxyMode)
	}
}

func TestValidate(t *testing.T) {
	cfg := New()
	if err := cfg.Validate(); err != ErrMissingHost {
		t.Errorf("expected ErrMissingHost, got %v", err)
	}

	cfg.Host = "10.100.10.2"
	if err := cfg.Validate(); err != ErrMissingCredentials {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}

	cfg.ClientID = "wizard"
	cfg.ClientSecret = "s3cret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	cfg.Port = 0
	if err := cfg.Validate(); err != ErrInvalidPort {
		t.Errorf("expected ErrInvalidPort, got %v", err)
	}
	cfg.Port = 443

	cfg.ProxyMode = "socks"
	if err := cfg.Validate(); err != ErrUnknownProxyMode {
		t.Errorf("expected ErrUnknownProxyMode, got %v", err)
	}
	cfg.ProxyMode = "no-proxy"

	cfg.Defaults.SCOSize = 3
	if err := cfg.Validate(); err != ErrInvalidSCOSize {
		t.Errorf("expected ErrInvalidSCOSize, got %v", err)
	}
	cfg.Defaults.SCOSize = 128

	// Large SCO raises the write buffer floor to 256.
	cfg.Defaults.WriteBuffer = 128
	if err := cfg.Validate(); err != ErrInvalidWriteBuffer {
		t.Errorf("expected ErrInvalidWriteBuffer, got %v", err)
	}
	cfg.Defaults.WriteBuffer = 256
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestBaseURL(t *testing.T) {
	cfg := New()
	cfg.Host = "storage.example.com"
	cfg.Port = 8443
	if got := cfg.BaseURL(); got != "https://storage.example.com:8443" {
		t.Errorf("BaseURL() = %s", got)
	}
}
