package core

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultAPIEndpoint is the production connect API host.
	DefaultAPIEndpoint = "api.figo.me"

	DefaultPort = 443

	DefaultUserAgent = "go-bankconnect"
)

// defaultFingerprints are the SHA-1 fingerprints of the certificates the API
// host is known to serve. Two entries are kept so the operator can rotate
// certificates without breaking deployed clients.
var defaultFingerprints = []string{
	"3A:62:54:4D:86:B4:34:38:EA:34:64:4E:95:10:A9:FF:37:27:69:C0",
	"CF:C1:BC:7F:6A:16:09:2B:10:83:8A:B0:22:4F:3A:65:D2:70:D7:3E",
}

type Config struct {
	APIEndpoint       string   `koanf:"api_endpoint" mapstructure:"api_endpoint"`
	Port              int      `koanf:"port" mapstructure:"port"`
	ValidFingerprints []string `koanf:"valid_fingerprints" mapstructure:"valid_fingerprints"`
	UserAgent         string   `koanf:"user_agent" mapstructure:"user_agent"`
}

func DefaultConfig() Config {
	return Config{
		APIEndpoint:       DefaultAPIEndpoint,
		Port:              DefaultPort,
		ValidFingerprints: append([]string(nil), defaultFingerprints...),
		UserAgent:         DefaultUserAgent,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIEndpoint) == "" {
		return fmt.Errorf("core: api_endpoint is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("core: port %d is out of range", c.Port)
	}
	if len(c.ValidFingerprints) == 0 {
		return fmt.Errorf("core: at least one certificate fingerprint is required")
	}
	for _, fingerprint := range c.ValidFingerprints {
		if _, err := NormalizeFingerprint(fingerprint); err != nil {
			return err
		}
	}
	return nil
}

// Authority returns the host[:port] form used to dial the API endpoint. The
// default HTTPS port is omitted so request URLs match the documented paths.
func (c Config) Authority() string {
	host := strings.TrimSpace(c.APIEndpoint)
	if c.Port == 0 || c.Port == DefaultPort {
		return host
	}
	return host + ":" + strconv.Itoa(c.Port)
}

// BaseURL returns the https URL prefix requests and login/task URLs are built
// against.
func (c Config) BaseURL() string {
	return "https://" + c.Authority()
}

// NormalizeFingerprint canonicalizes a SHA-1 certificate fingerprint to
// lowercase hex without separators. Colon-separated and bare hex inputs are
// accepted, case-insensitively.
func NormalizeFingerprint(fingerprint string) (string, error) {
	cleaned := strings.ToLower(strings.TrimSpace(fingerprint))
	cleaned = strings.ReplaceAll(cleaned, ":", "")
	if len(cleaned) != 40 {
		return "", fmt.Errorf("core: fingerprint %q is not a SHA-1 digest", fingerprint)
	}
	for _, r := range cleaned {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", fmt.Errorf("core: fingerprint %q contains a non-hex character", fingerprint)
		}
	}
	return cleaned, nil
}
