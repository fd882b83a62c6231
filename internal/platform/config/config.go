package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied before the file and environment layers.
const (
	DefaultAddr         = ":7070"
	DefaultFetchTimeout = 10 * time.Second
	DefaultMaxBodyBytes = 1 << 20
	DefaultUserAgent    = "wkd-tester"
	DefaultBaseURL      = "https://wkd.dp42.dev"
	DefaultServiceName  = "wkd-tester"
)

// Footer identifies whoever hosts the web form.
type Footer struct {
	HostURL  string `yaml:"host_url"`
	HostName string `yaml:"host_name"`
}

// Server captures process level configuration for both binaries.
type Server struct {
	Addr           string        `yaml:"addr"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	Probes         bool          `yaml:"probes"`
	UserAgent      string        `yaml:"user_agent"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	BaseURL        string        `yaml:"base_url"`
	Footer         Footer        `yaml:"footer"`
	MetricsEnabled bool          `yaml:"metrics_enabled"`
	OTLPEndpoint   string        `yaml:"otlp_endpoint"`
	OTLPInsecure   bool          `yaml:"otlp_insecure"`
	ServiceName    string        `yaml:"service_name"`
}

// Default returns the configuration used when nothing is set.
func Default() Server {
	return Server{
		Addr:           DefaultAddr,
		FetchTimeout:   DefaultFetchTimeout,
		MaxBodyBytes:   DefaultMaxBodyBytes,
		Probes:         true,
		UserAgent:      DefaultUserAgent,
		LogLevel:       "info",
		LogFormat:      "text",
		BaseURL:        DefaultBaseURL,
		MetricsEnabled: true,
		ServiceName:    DefaultServiceName,
		Footer: Footer{
			HostURL:  "https://chimbosonic.com",
			HostName: "Alexis Lowe",
		},
	}
}

// FromEnv builds a Server config from defaults, the YAML file named by
// WKD_CONFIG_FILE if any, and then WKD_* environment variables.
func FromEnv() (Server, error) {
	cfg := Default()

	if path := os.Getenv("WKD_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Server{}, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Server{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Server) loadFile(path string) error {
	// #nosec G304 -- path comes from the operator's environment
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Server) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("WKD_ADDR", &c.Addr)
	str("WKD_USER_AGENT", &c.UserAgent)
	str("WKD_LOG_LEVEL", &c.LogLevel)
	str("WKD_LOG_FORMAT", &c.LogFormat)
	str("WKD_BASE_URL", &c.BaseURL)
	str("WKD_FOOTER_HOST_URL", &c.Footer.HostURL)
	str("WKD_FOOTER_HOST_NAME", &c.Footer.HostName)
	str("WKD_OTLP_ENDPOINT", &c.OTLPEndpoint)
	str("WKD_SERVICE_NAME", &c.ServiceName)

	bools := map[string]*bool{
		"WKD_PROBES":          &c.Probes,
		"WKD_METRICS_ENABLED": &c.MetricsEnabled,
		"WKD_OTLP_INSECURE":   &c.OTLPInsecure,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}

	if v, ok := lookup("WKD_FETCH_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("WKD_FETCH_TIMEOUT: %w", err)
		}
		c.FetchTimeout = d
	}
	if v, ok := lookup("WKD_MAX_BODY_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("WKD_MAX_BODY_BYTES: %w", err)
		}
		c.MaxBodyBytes = n
	}
	return nil
}

// Validate rejects values the binaries cannot run with.
func (c Server) Validate() error {
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if c.Addr == "" {
		return fmt.Errorf("listen address is required")
	}
	return nil
}
