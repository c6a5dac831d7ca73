package configs

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/interzonedev/spunkfix/browser"
	"github.com/interzonedev/spunkfix/wait"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New(browser.Chrome, " http://localhost:8080 ")
	require.NoError(t, err)

	assert.Equal(t, browser.Chrome, cfg.Browser())
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL())
	assert.Equal(t, 5*time.Second, cfg.ElementWaitTimeout())
	assert.Equal(t, wait.DefaultInterval, cfg.PollInterval())
	assert.Empty(t, cfg.ArtifactsDir())
	assert.Equal(t, browser.Options{}, cfg.DriverOptions())
}

func TestNewWithOptions(t *testing.T) {
	cfg, err := New(browser.Firefox, "http://app",
		WithElementWaitTimeout(10*time.Second),
		WithPollInterval(100*time.Millisecond),
		WithSeleniumURL("http://hub:4444/wd/hub"),
		WithChromeBinPath("/opt/chrome"),
		WithCookiesPath("/tmp/cookies.json"),
		WithArtifactsDir("/tmp/artifacts"),
		WithHeaded(true),
	)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.ElementWaitTimeout())
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, "/tmp/artifacts", cfg.ArtifactsDir())
	assert.Equal(t, browser.Options{
		SeleniumURL:   "http://hub:4444/wd/hub",
		ChromeBinPath: "/opt/chrome",
		CookiesPath:   "/tmp/cookies.json",
		Headed:        true,
	}, cfg.DriverOptions())
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		browser browser.Browser
		baseURL string
		opts    []Option
	}{
		{"zero timeout", browser.Chrome, "http://app", []Option{WithElementWaitTimeout(0)}},
		{"negative timeout", browser.Chrome, "http://app", []Option{WithElementWaitTimeout(-time.Second)}},
		{"zero interval", browser.Chrome, "http://app", []Option{WithPollInterval(0)}},
		{"missing base url", browser.Chrome, "  ", nil},
		{"invalid browser", browser.Browser(0), "http://app", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := New(tt.browser, tt.baseURL, tt.opts...)
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestConfigurationIsImmutable(t *testing.T) {
	cfg, err := New(browser.Chrome, "http://app", WithElementWaitTimeout(3*time.Second))
	require.NoError(t, err)

	// options act on a private builder, never on a built configuration
	assert.NotEqual(t, reflect.TypeOf(cfg), reflect.TypeOf(Option(nil)).In(0))

	opts := []Option{WithElementWaitTimeout(-1), WithPollInterval(0)}
	for _, opt := range opts {
		opt(&options{})
	}
	_, err = New(browser.Chrome, "http://app", opts...)
	assert.Error(t, err)

	assert.Equal(t, 3*time.Second, cfg.ElementWaitTimeout())
	assert.Equal(t, wait.DefaultInterval, cfg.PollInterval())
}

func TestParseYAML(t *testing.T) {
	cfg, err := Parse([]byte(`
browser: headless
base_url: http://localhost:3000
element_wait_timeout: 2s
poll_interval: 250ms
chrome_bin: /usr/bin/chromium
artifacts_dir: ./out
`))
	require.NoError(t, err)

	assert.Equal(t, browser.Headless, cfg.Browser())
	assert.Equal(t, "http://localhost:3000", cfg.BaseURL())
	assert.Equal(t, 2*time.Second, cfg.ElementWaitTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, "./out", cfg.ArtifactsDir())
	assert.Equal(t, "/usr/bin/chromium", cfg.DriverOptions().ChromeBinPath)
}

func TestParseYAMLErrors(t *testing.T) {
	_, err := Parse([]byte("browser: opera\nbase_url: http://app\n"))
	assert.True(t, errors.Is(err, browser.ErrUnknownBrowser))

	_, err = Parse([]byte("browser: chrome\nbase_url: http://app\nelement_wait_timeout: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element_wait_timeout")

	_, err = Parse([]byte("browser: [chrome"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "functest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("browser: safari\nbase_url: http://app\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, browser.Safari, cfg.Browser())
	assert.Equal(t, DefaultElementWaitTimeout, cfg.ElementWaitTimeout())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvBrowser, "ie")
	t.Setenv(EnvBaseURL, "http://ci-app")
	t.Setenv(EnvTimeout, "7s")
	t.Setenv(EnvSeleniumURL, "http://selenium:4444/wd/hub")
	t.Setenv(EnvHeaded, "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, browser.InternetExplorer, cfg.Browser())
	assert.Equal(t, "http://ci-app", cfg.BaseURL())
	assert.Equal(t, 7*time.Second, cfg.ElementWaitTimeout())
	assert.Equal(t, "http://selenium:4444/wd/hub", cfg.DriverOptions().SeleniumURL)
	assert.True(t, cfg.DriverOptions().Headed)
}

func TestFromEnvRejectsZeroTimeout(t *testing.T) {
	t.Setenv(EnvBrowser, "chrome")
	t.Setenv(EnvBaseURL, "http://app")
	t.Setenv(EnvTimeout, "0s")

	_, err := FromEnv()
	assert.Error(t, err)
}
