package agentlink

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the constructor-time configuration surface as a YAML
// document, so deployments can keep endpoint, credentials and timeouts out
// of code.
//
//	agent_url: https://agent.example.com/rpc
//	auth_token: s3cret
//	timeout_seconds: 30
//	session_timeout_minutes: 60
//	headers:
//	  X-Tenant: acme
type FileConfig struct {
	AgentURL              string            `yaml:"agent_url"`
	AuthToken             string            `yaml:"auth_token"`
	TimeoutSeconds        float64           `yaml:"timeout_seconds"`
	Headers               map[string]string `yaml:"headers"`
	SessionTimeoutMinutes int               `yaml:"session_timeout_minutes"`
}

// LoadFileConfig reads and parses a YAML client configuration file.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if cfg.AgentURL == "" {
		return nil, fmt.Errorf("config file %s: agent_url is required", path)
	}
	return &cfg, nil
}

// NewFromFile creates a Client from a YAML configuration file. Programmatic
// option functions run after the file values and may override them.
func NewFromFile(path string, optFns ...func(o *Options)) (*Client, error) {
	cfg, err := LoadFileConfig(path)
	if err != nil {
		return nil, err
	}

	fileOpts := func(o *Options) {
		o.AuthToken = cfg.AuthToken
		if cfg.TimeoutSeconds > 0 {
			o.Timeout = time.Duration(cfg.TimeoutSeconds * float64(time.Second))
		}
		if len(cfg.Headers) > 0 {
			o.Headers = cfg.Headers
		}
		if cfg.SessionTimeoutMinutes > 0 {
			o.SessionExpiry = time.Duration(cfg.SessionTimeoutMinutes) * time.Minute
		}
	}

	return New(cfg.AgentURL, append([]func(o *Options){fileOpts}, optFns...)...)
}
