package core

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Exchange identifiers understood by DefaultConfig.
const (
	ExchangeBinance  = "binance"
	ExchangeBitfinex = "bitfinex"
	ExchangeOKX      = "okx"
	ExchangeCoinbase = "coinbase"
)

// CredentialsConfig is raw secret material as read from configuration.
// It is turned into an immutable auth.Credential before any request is signed.
type CredentialsConfig struct {
	APIKey        string `json:"api_key" yaml:"api_key"`
	SecretKey     string `json:"secret_key" yaml:"secret_key"`
	Passphrase    string `json:"passphrase,omitempty" yaml:"passphrase"`
	PrivateKeyPEM string `json:"private_key,omitempty" yaml:"private_key"`
}

// String never prints secret material.
func (c CredentialsConfig) String() string {
	return fmt.Sprintf("CredentialsConfig{APIKey:%s}", MaskSecret(c.APIKey))
}

// GoString never prints secret material.
func (c CredentialsConfig) GoString() string {
	return c.String()
}

// Config contains all configuration options for one exchange facade.
type Config struct {
	Exchange    string             `json:"exchange" yaml:"exchange" validate:"required"`
	Sandbox     bool               `json:"sandbox" yaml:"sandbox"`
	BaseURL     string             `json:"base_url,omitempty" yaml:"base_url" validate:"omitempty,url"`
	Credentials *CredentialsConfig `json:"-" yaml:"credentials"`

	// ReferenceAsset is the ticker used to filter balances, pairs and history.
	ReferenceAsset string `json:"reference_asset" yaml:"reference_asset" validate:"required,alphanum,uppercase"`

	// Timeout is the maximum duration for a single HTTP exchange.
	Timeout    time.Duration `json:"timeout" yaml:"timeout" validate:"min=1ms"`
	RecvWindow time.Duration `json:"recv_window" yaml:"recv_window" validate:"min=0"`
	UserAgent  string        `json:"user_agent" yaml:"user_agent"`

	// Server-reported weight budget. MaxWeightPerWindow 0 disables tracking.
	MaxWeightPerWindow  int           `json:"max_weight_per_window" yaml:"max_weight_per_window" validate:"min=0"`
	WeightWindow        time.Duration `json:"weight_window" yaml:"weight_window" validate:"min=0"`
	MinBackoff          time.Duration `json:"min_backoff" yaml:"min_backoff" validate:"min=0"`
	MaxRateLimitRetries int           `json:"max_rate_limit_retries" yaml:"max_rate_limit_retries" validate:"min=0"`

	// Local pacing. RateLimitRequests 0 disables it.
	RateLimitRequests int           `json:"rate_limit_requests" yaml:"rate_limit_requests" validate:"min=0"`
	RateLimitPeriod   time.Duration `json:"rate_limit_period" yaml:"rate_limit_period" validate:"min=0"`

	PageLimit int    `json:"page_limit" yaml:"page_limit" validate:"min=1,max=100"`
	LogLevel  string `json:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns a Config initialized with the defaults for the specified exchange.
// Binance gets a 25s timeout, a 5s receive window and the 6000 weight per minute budget;
// Coinbase gets a 20s timeout; everything else uses 10s. The reference asset is BTC.
func DefaultConfig(exchange string) *Config {
	c := &Config{
		Exchange:       exchange,
		ReferenceAsset: "BTC",
		Timeout:        10 * time.Second,
		MinBackoff:     200 * time.Millisecond,
		UserAgent:      "nakula/1.0",
		PageLimit:      100,
		LogLevel:       "info",
	}

	switch exchange {
	case ExchangeBinance:
		c.Timeout = 25 * time.Second
		c.RecvWindow = 5 * time.Second
		c.MaxWeightPerWindow = 6000
		c.WeightWindow = time.Minute
	case ExchangeCoinbase:
		c.Timeout = 20 * time.Second
	}
	return c
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.MaxWeightPerWindow > 0 && c.WeightWindow <= 0 {
		return errors.New("WeightWindow must be positive when MaxWeightPerWindow is set")
	}
	if c.RateLimitRequests > 0 && c.RateLimitPeriod <= 0 {
		return errors.New("RateLimitPeriod must be positive when RateLimitRequests is set")
	}
	return nil
}

// WithCredentials sets the raw credentials and returns the config for chaining.
func (c *Config) WithCredentials(creds *CredentialsConfig) *Config {
	c.Credentials = creds
	return c
}

// WithSandbox enables or disables sandbox mode and returns the config for chaining.
func (c *Config) WithSandbox(sandbox bool) *Config {
	c.Sandbox = sandbox
	return c
}

// WithBaseURL overrides the exchange root URL and returns the config for chaining.
func (c *Config) WithBaseURL(url string) *Config {
	c.BaseURL = url
	return c
}

// WithTimeout sets the request timeout and returns the config for chaining.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithReferenceAsset sets the ticker used for filtering and returns the config for chaining.
func (c *Config) WithReferenceAsset(asset string) *Config {
	c.ReferenceAsset = asset
	return c
}

// WithWeightBudget sets the server weight budget and returns the config for chaining.
func (c *Config) WithWeightBudget(maxWeight int, window, minBackoff time.Duration) *Config {
	c.MaxWeightPerWindow = maxWeight
	c.WeightWindow = window
	c.MinBackoff = minBackoff
	return c
}

// WithMaxRateLimitRetries bounds the backoff loop; 0 means unbounded.
func (c *Config) WithMaxRateLimitRetries(n int) *Config {
	c.MaxRateLimitRetries = n
	return c
}

// WithRateLimit sets the local pacing parameters and returns the config for chaining.
func (c *Config) WithRateLimit(requests int, period time.Duration) *Config {
	c.RateLimitRequests = requests
	c.RateLimitPeriod = period
	return c
}

type configFile struct {
	Exchanges []yaml.Node `yaml:"exchanges"`
}

// LoadConfigs reads a YAML file holding an `exchanges` list. Environment references
// such as ${OKX_PASSPHRASE} are expanded before parsing, and every entry starts from
// DefaultConfig for its exchange so that only overrides need to be written.
func LoadConfigs(path string) ([]*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfigs([]byte(os.ExpandEnv(string(raw))))
}

// ParseConfigs parses the YAML document format accepted by LoadConfigs.
func ParseConfigs(data []byte) ([]*Config, error) {
	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	configs := make([]*Config, 0, len(file.Exchanges))
	for i := range file.Exchanges {
		node := &file.Exchanges[i]

		var head struct {
			Exchange string `yaml:"exchange"`
		}
		if err := node.Decode(&head); err != nil {
			return nil, fmt.Errorf("exchanges[%d]: %w", i, err)
		}

		cfg := DefaultConfig(head.Exchange)
		if err := node.Decode(cfg); err != nil {
			return nil, fmt.Errorf("exchanges[%d]: %w", i, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("exchanges[%d] (%s): %w", i, head.Exchange, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// MaskSecret shows at most the first and last four characters of s.
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
