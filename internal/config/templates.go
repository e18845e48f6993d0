package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "host", "logwired":
		return hostTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const hostTemplate = `name = "logwired"
listen_addr = "127.0.0.1:7400"
metrics_addr = "127.0.0.1:7401"
# Bearer token required on /metrics; empty leaves it open.
metrics_token = ""
protocol = "Binary"
# Max wait for one frame; "0s" waits forever.
frame_timeout = "30s"
max_body_bytes = 10485760
log_level = "info"
# Set both to serve TLS; add tls_client_ca_file to require client certs.
# tls_cert_file = "/etc/logwire/server.crt"
# tls_key_file = "/etc/logwire/server.key"
# tls_client_ca_file = "/etc/logwire/ca.crt"
`
