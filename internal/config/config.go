package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"github.com/danmuck/logwire/internal/logging"
	"github.com/danmuck/logwire/internal/protocol"
	_ "github.com/danmuck/logwire/internal/protocol/binaryproto"
	"github.com/danmuck/logwire/internal/protocol/frame"
	"github.com/danmuck/logwire/internal/transport"
	"github.com/joho/godotenv"
)

// HostConfig configures logwired.
type HostConfig struct {
	Name        string
	ListenAddr  string
	MetricsAddr string
	// MetricsToken, when set, is required as a bearer token on /metrics.
	MetricsToken string
	Protocol     string
	FrameTimeout time.Duration
	MaxBodyLen   int32
	LogLevel     string
	TLSCertFile  string
	TLSKeyFile   string
	// TLSClientCAFile turns on mutual TLS when set.
	TLSClientCAFile string
}

// Transport returns the listener settings for the host.
func (c HostConfig) Transport() transport.Config {
	cfg := transport.DefaultConfig()
	if c.TLSCertFile != "" || c.TLSKeyFile != "" {
		cfg.TLS = transport.TLSConfig{
			Enabled:  true,
			Mutual:   c.TLSClientCAFile != "",
			CertFile: c.TLSCertFile,
			KeyFile:  c.TLSKeyFile,
			CAFile:   c.TLSClientCAFile,
		}
	}
	return cfg
}

type fileConfig struct {
	Name         string `toml:"name"`
	ListenAddr   string `toml:"listen_addr"`
	MetricsAddr  string `toml:"metrics_addr"`
	MetricsToken string `toml:"metrics_token"`
	Protocol     string `toml:"protocol"`
	FrameTimeout string `toml:"frame_timeout"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
	LogLevel     string `toml:"log_level"`
	TLSCertFile  string `toml:"tls_cert_file"`
	TLSKeyFile   string `toml:"tls_key_file"`
	TLSClientCA  string `toml:"tls_client_ca_file"`
}

type envConfig struct {
	ListenAddr   *string        `env:"LOGWIRE_LISTEN_ADDR"`
	MetricsAddr  *string        `env:"LOGWIRE_METRICS_ADDR"`
	MetricsToken *string        `env:"LOGWIRE_METRICS_TOKEN"`
	Protocol     *string        `env:"LOGWIRE_PROTOCOL"`
	FrameTimeout *time.Duration `env:"LOGWIRE_FRAME_TIMEOUT"`
	LogLevel     *string        `env:"LOGWIRE_LOG_LEVEL"`
}

func DefaultHostConfig() HostConfig {
	return HostConfig{
		Name:         "logwired",
		ListenAddr:   "127.0.0.1:7400",
		MetricsAddr:  "",
		Protocol:     protocol.DefaultName,
		FrameTimeout: 0,
		MaxBodyLen:   frame.MaxBodyLen,
		LogLevel:     "info",
	}
}

// LoadHostConfig overlays the TOML file at path (skipped when empty), then
// a .env file and LOGWIRE_* variables, onto the defaults.
func LoadHostConfig(path string) (HostConfig, error) {
	cfg := DefaultHostConfig()
	if strings.TrimSpace(path) != "" {
		if err := overlayFile(path, &cfg); err != nil {
			return HostConfig{}, err
		}
	}
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()
	if err := overlayEnv(&cfg); err != nil {
		return HostConfig{}, err
	}
	if err := ValidateHostConfig(cfg); err != nil {
		return HostConfig{}, err
	}
	return cfg, nil
}

func overlayFile(path string, cfg *HostConfig) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("metrics_token") {
		cfg.MetricsToken = strings.TrimSpace(raw.MetricsToken)
	}
	if meta.IsDefined("protocol") {
		cfg.Protocol = strings.TrimSpace(raw.Protocol)
	}
	if meta.IsDefined("frame_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.FrameTimeout))
		if err != nil {
			return fmt.Errorf("parse frame_timeout: %w", err)
		}
		cfg.FrameTimeout = d
	}
	if meta.IsDefined("max_body_bytes") {
		if raw.MaxBodyBytes <= 0 || raw.MaxBodyBytes > int64(frame.MaxBodyLen) {
			return fmt.Errorf("max_body_bytes must be in (0, %d], got %d", frame.MaxBodyLen, raw.MaxBodyBytes)
		}
		cfg.MaxBodyLen = int32(raw.MaxBodyBytes)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("tls_cert_file") {
		cfg.TLSCertFile = strings.TrimSpace(raw.TLSCertFile)
	}
	if meta.IsDefined("tls_key_file") {
		cfg.TLSKeyFile = strings.TrimSpace(raw.TLSKeyFile)
	}
	if meta.IsDefined("tls_client_ca_file") {
		cfg.TLSClientCAFile = strings.TrimSpace(raw.TLSClientCA)
	}
	return nil
}

func overlayEnv(cfg *HostConfig) error {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return fmt.Errorf("config env parse failed: %w", err)
	}
	if raw.ListenAddr != nil {
		cfg.ListenAddr = strings.TrimSpace(*raw.ListenAddr)
	}
	if raw.MetricsAddr != nil {
		cfg.MetricsAddr = strings.TrimSpace(*raw.MetricsAddr)
	}
	if raw.MetricsToken != nil {
		cfg.MetricsToken = strings.TrimSpace(*raw.MetricsToken)
	}
	if raw.Protocol != nil {
		cfg.Protocol = strings.TrimSpace(*raw.Protocol)
	}
	if raw.FrameTimeout != nil {
		cfg.FrameTimeout = *raw.FrameTimeout
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = strings.TrimSpace(*raw.LogLevel)
	}
	return nil
}

func ValidateHostConfig(cfg HostConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("host config missing name")
	}
	if _, _, err := net.SplitHostPort(cfg.ListenAddr); err != nil {
		return fmt.Errorf("host config listen_addr invalid: %w", err)
	}
	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			return fmt.Errorf("host config metrics_addr invalid: %w", err)
		}
	}
	if cfg.MetricsToken != "" && cfg.MetricsAddr == "" {
		return fmt.Errorf("host config metrics_token set without metrics_addr")
	}
	if _, err := protocol.Lookup(cfg.Protocol); err != nil {
		return fmt.Errorf("host config protocol invalid: %w", err)
	}
	if cfg.FrameTimeout < 0 {
		return fmt.Errorf("host config frame_timeout must not be negative")
	}
	if cfg.MaxBodyLen <= 0 || cfg.MaxBodyLen > frame.MaxBodyLen {
		return fmt.Errorf("host config max body must be in (0, %d]", frame.MaxBodyLen)
	}
	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("host config log_level invalid: %q", cfg.LogLevel)
	}
	if cfg.TLSClientCAFile != "" && cfg.TLSCertFile == "" {
		return fmt.Errorf("host config tls_client_ca_file requires tls_cert_file: %w", transport.ErrTLSRequired)
	}
	if err := cfg.Transport().ValidateServer(); err != nil {
		return fmt.Errorf("host config tls invalid: %w", err)
	}
	return nil
}
