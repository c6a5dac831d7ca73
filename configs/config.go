// Package configs holds the per-test functional test configuration.
package configs

import (
	"os"
	"strings"
	"time"

	"github.com/interzonedev/spunkfix/browser"
	"github.com/interzonedev/spunkfix/wait"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultElementWaitTimeout applies when no timeout is configured.
	DefaultElementWaitTimeout = 5 * time.Second

	EnvBrowser      = "SPUNKFIX_BROWSER"
	EnvBaseURL      = "SPUNKFIX_BASE_URL"
	EnvTimeout      = "SPUNKFIX_TIMEOUT"
	EnvPollInterval = "SPUNKFIX_POLL_INTERVAL"
	EnvSeleniumURL  = "SPUNKFIX_SELENIUM_URL"
	EnvChromeBin    = "SPUNKFIX_CHROME_BIN"
	EnvCookiesPath  = "SPUNKFIX_COOKIES"
	EnvArtifactsDir = "SPUNKFIX_ARTIFACTS_DIR"
	EnvHeaded       = "SPUNKFIX_HEADED"
)

// TestConfiguration is the immutable set of settings one functional test runs with.
type TestConfiguration struct {
	browser            browser.Browser
	baseURL            string
	elementWaitTimeout time.Duration
	pollInterval       time.Duration
	seleniumURL        string
	chromeBinPath      string
	cookiesPath        string
	artifactsDir       string
	headed             bool
}

// options collects settings before New copies them into a TestConfiguration.
type options struct {
	elementWaitTimeout time.Duration
	pollInterval       time.Duration
	seleniumURL        string
	chromeBinPath      string
	cookiesPath        string
	artifactsDir       string
	headed             bool
}

type Option func(*options)

func WithElementWaitTimeout(d time.Duration) Option {
	return func(o *options) {
		o.elementWaitTimeout = d
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

func WithSeleniumURL(url string) Option {
	return func(o *options) {
		o.seleniumURL = url
	}
}

func WithChromeBinPath(path string) Option {
	return func(o *options) {
		o.chromeBinPath = path
	}
}

func WithCookiesPath(path string) Option {
	return func(o *options) {
		o.cookiesPath = path
	}
}

func WithArtifactsDir(dir string) Option {
	return func(o *options) {
		o.artifactsDir = dir
	}
}

func WithHeaded(headed bool) Option {
	return func(o *options) {
		o.headed = headed
	}
}

// New builds a validated configuration. The element wait timeout defaults to
// five seconds and must stay positive.
func New(b browser.Browser, baseURL string, opts ...Option) (*TestConfiguration, error) {
	o := &options{
		elementWaitTimeout: DefaultElementWaitTimeout,
		pollInterval:       wait.DefaultInterval,
	}
	for _, opt := range opts {
		opt(o)
	}

	cfg := &TestConfiguration{
		browser:            b,
		baseURL:            strings.TrimSpace(baseURL),
		elementWaitTimeout: o.elementWaitTimeout,
		pollInterval:       o.pollInterval,
		seleniumURL:        o.seleniumURL,
		chromeBinPath:      o.chromeBinPath,
		cookiesPath:        o.cookiesPath,
		artifactsDir:       o.artifactsDir,
		headed:             o.headed,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *TestConfiguration) validate() error {
	if !c.browser.Valid() {
		return errors.Wrapf(browser.ErrUnknownBrowser, "invalid browser %s", c.browser)
	}
	if c.baseURL == "" {
		return errors.New("base url is required")
	}
	if c.elementWaitTimeout <= 0 {
		return errors.Errorf("element wait timeout must be positive, got %s", c.elementWaitTimeout)
	}
	if c.pollInterval <= 0 {
		return errors.Errorf("poll interval must be positive, got %s", c.pollInterval)
	}
	return nil
}

func (c *TestConfiguration) Browser() browser.Browser { return c.browser }
func (c *TestConfiguration) BaseURL() string { return c.baseURL }
func (c *TestConfiguration) ElementWaitTimeout() time.Duration { return c.elementWaitTimeout }
func (c *TestConfiguration) PollInterval() time.Duration { return c.pollInterval }
func (c *TestConfiguration) ArtifactsDir() string { return c.artifactsDir }

// DriverOptions returns the settings the driver factories need.
func (c *TestConfiguration) DriverOptions() browser.Options {
	return browser.Options{
		SeleniumURL:   c.seleniumURL,
		ChromeBinPath: c.chromeBinPath,
		CookiesPath:   c.cookiesPath,
		Headed:        c.headed,
	}
}

// fileConfig is the YAML form of TestConfiguration.
type fileConfig struct {
	Browser            string `yaml:"browser"`
	BaseURL            string `yaml:"base_url"`
	ElementWaitTimeout string `yaml:"element_wait_timeout"`
	PollInterval       string `yaml:"poll_interval"`
	SeleniumURL        string `yaml:"selenium_url"`
	ChromeBinPath      string `yaml:"chrome_bin"`
	CookiesPath        string `yaml:"cookies"`
	ArtifactsDir       string `yaml:"artifacts_dir"`
	Headed             bool   `yaml:"headed"`
}

// Load reads a YAML configuration file. Durations use Go syntax, e.g. "5s".
func Load(path string) (*TestConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Parse decodes a YAML configuration document.
func Parse(data []byte) (*TestConfiguration, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return fc.build()
}

// FromEnv builds a configuration from SPUNKFIX_* environment variables.
func FromEnv() (*TestConfiguration, error) {
	fc := fileConfig{
		Browser:            os.Getenv(EnvBrowser),
		BaseURL:            os.Getenv(EnvBaseURL),
		ElementWaitTimeout: os.Getenv(EnvTimeout),
		PollInterval:       os.Getenv(EnvPollInterval),
		SeleniumURL:        os.Getenv(EnvSeleniumURL),
		ChromeBinPath:      os.Getenv(EnvChromeBin),
		CookiesPath:        os.Getenv(EnvCookiesPath),
		ArtifactsDir:       os.Getenv(EnvArtifactsDir),
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvHeaded))) {
	case "1", "true", "yes":
		fc.Headed = true
	}
	return fc.build()
}

func (fc fileConfig) build() (*TestConfiguration, error) {
	b, err := browser.ParseBrowser(fc.Browser)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithSeleniumURL(strings.TrimSpace(fc.SeleniumURL)),
		WithChromeBinPath(strings.TrimSpace(fc.ChromeBinPath)),
		WithCookiesPath(strings.TrimSpace(fc.CookiesPath)),
		WithArtifactsDir(strings.TrimSpace(fc.ArtifactsDir)),
		WithHeaded(fc.Headed),
	}
	if d, ok, err := parseDuration("element_wait_timeout", fc.ElementWaitTimeout); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, WithElementWaitTimeout(d))
	}
	if d, ok, err := parseDuration("poll_interval", fc.PollInterval); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, WithPollInterval(d))
	}

	return New(b, fc.BaseURL, opts...)
}

func parseDuration(name, raw string) (time.Duration, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, errors.Wrapf(err, "invalid %s", name)
	}
	return d, true, nil
}
