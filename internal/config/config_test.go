package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logwired.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadHostConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadHostConfig("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg != DefaultHostConfig() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadHostConfigTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logwired.toml")
	if err := WriteTemplate(path, "host", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := LoadHostConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:7400" {
		t.Fatalf("unexpected listen addr: %q", cfg.ListenAddr)
	}
	if cfg.MetricsAddr != "127.0.0.1:7401" {
		t.Fatalf("unexpected metrics addr: %q", cfg.MetricsAddr)
	}
	if cfg.FrameTimeout != 30*time.Second {
		t.Fatalf("unexpected frame timeout: %v", cfg.FrameTimeout)
	}
	if cfg.MaxBodyLen != 10485760 {
		t.Fatalf("unexpected max body: %d", cfg.MaxBodyLen)
	}
	if err := WriteTemplate(path, "host", false); err == nil {
		t.Fatalf("expected refusal to overwrite existing config")
	}
}

func TestLoadHostConfigPartialOverlayKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "listen_addr = \"0.0.0.0:9999\"\nmax_body_bytes = 4096\n")
	cfg, err := LoadHostConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9999" || cfg.MaxBodyLen != 4096 {
		t.Fatalf("overlay not applied: %+v", cfg)
	}
	if cfg.Name != "logwired" || cfg.Protocol != "Binary" || cfg.FrameTimeout != 0 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadHostConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "listen_addr = \"127.0.0.1:1000\"\n")
	t.Setenv("LOGWIRE_LISTEN_ADDR", "127.0.0.1:2000")
	t.Setenv("LOGWIRE_FRAME_TIMEOUT", "5s")
	t.Setenv("LOGWIRE_PROTOCOL", "binary")
	t.Setenv("LOGWIRE_METRICS_ADDR", "127.0.0.1:9100")
	t.Setenv("LOGWIRE_METRICS_TOKEN", "s3cret")
	cfg, err := LoadHostConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:2000" {
		t.Fatalf("env did not override listen addr: %q", cfg.ListenAddr)
	}
	if cfg.FrameTimeout != 5*time.Second {
		t.Fatalf("env did not override frame timeout: %v", cfg.FrameTimeout)
	}
	if cfg.MetricsAddr != "127.0.0.1:9100" || cfg.MetricsToken != "s3cret" {
		t.Fatalf("env did not set metrics: %+v", cfg)
	}
}

func TestLoadHostConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "listen_port = 7\n", "unknown key"},
		{"bad duration", "frame_timeout = \"soon\"\n", "frame_timeout"},
		{"body too large", "max_body_bytes = 20971520\n", "max_body_bytes"},
		{"unknown protocol", "protocol = \"json\"\n", "protocol"},
		{"bad listen addr", "listen_addr = \"nowhere\"\n", "listen_addr"},
		{"bad log level", "log_level = \"loud\"\n", "log_level"},
		{"tls cert without key", "tls_cert_file = \"/tmp/server.crt\"\n", "tls"},
		{"token without metrics addr", "metrics_token = \"t\"\n", "metrics_token"},
		{"client ca without cert", "tls_client_ca_file = \"/tmp/ca.crt\"\n", "tls_client_ca_file"},
		{"not toml", "listen_addr = \n", "config load failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadHostConfig(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestTemplateUnknownKind(t *testing.T) {
	if _, err := Template("sender"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestHostConfigTransport(t *testing.T) {
	cfg := DefaultHostConfig()
	if cfg.Transport().TLS.Enabled {
		t.Fatalf("tls enabled without files")
	}
	cfg.TLSCertFile = "/tmp/server.crt"
	cfg.TLSKeyFile = "/tmp/server.key"
	tc := cfg.Transport().TLS
	if !tc.Enabled || tc.Mutual {
		t.Fatalf("expected server-only tls, got %+v", tc)
	}
	cfg.TLSClientCAFile = "/tmp/ca.crt"
	if tc := cfg.Transport().TLS; !tc.Mutual || tc.CAFile != "/tmp/ca.crt" {
		t.Fatalf("expected mutual tls, got %+v", tc)
	}
	if err := ValidateHostConfig(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
