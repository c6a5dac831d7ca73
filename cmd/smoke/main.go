package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"github.com/interzonedev/spunkfix/browser"
	"github.com/interzonedev/spunkfix/configs"
	"github.com/interzonedev/spunkfix/fixture"
	"github.com/interzonedev/spunkfix/functest"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type smokeFlags struct {
	configPath  string // YAML config file
	browserID   string
	baseURL     string
	path        string
	css         string
	xpath       string
	text        string
	timeout     time.Duration
	all         bool
	serve       bool
	seleniumURL string
	binPath     string
	verbose     bool
}

func main() {
	var f smokeFlags
	flag.StringVar(&f.configPath, "config", "", "YAML config file; flags below override it")
	flag.StringVar(&f.browserID, "browser", "", "browser: "+strings.Join(browser.IDs(), ", "))
	flag.StringVar(&f.baseURL, "base-url", "", "base URL of the application under test")
	flag.StringVar(&f.path, "path", "/", "page path relative to the base URL")
	flag.StringVar(&f.css, "selector", "", "CSS selector to wait for")
	flag.StringVar(&f.xpath, "xpath", "", "XPath expression to wait for")
	flag.StringVar(&f.text, "text", "", "exact text the element must have")
	flag.DurationVar(&f.timeout, "timeout", 0, "element wait timeout (default from config)")
	flag.BoolVar(&f.all, "all", false, "print every match instead of the first")
	flag.BoolVar(&f.serve, "serve", false, "serve the built-in fixture app and use it as the base URL")
	flag.StringVar(&f.seleniumURL, "selenium-url", "", "remote WebDriver URL for firefox and ie")
	flag.StringVar(&f.binPath, "bin", "", "Chrome binary path")
	flag.BoolVar(&f.verbose, "v", false, "debug logging")
	flag.Parse()

	if f.verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := run(context.Background(), f, browser.DefaultRegistry()); err != nil {
		logrus.Fatal(err)
	}
}

// run does the smoke check. The browser is closed before run returns, so a
// failed wait never leaves a remote session behind.
func run(ctx context.Context, f smokeFlags, registry *browser.Registry) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	baseURL := f.baseURL
	if f.serve {
		url, err := fixture.Serve(ctx, "127.0.0.1:0")
		if err != nil {
			return errors.Wrap(err, "failed to start fixture server")
		}
		baseURL = url
	}

	cfg, err := loadConfig(f.configPath, f.browserID, baseURL, f.seleniumURL, f.binPath)
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	var sel browser.Selector
	switch {
	case f.css != "" && f.xpath != "":
		return errors.New("use either -selector or -xpath, not both")
	case f.css != "":
		sel = browser.CSS(f.css)
	case f.xpath != "":
		sel = browser.XPath(f.xpath)
	default:
		return errors.New("one of -selector or -xpath is required")
	}
	timeout := f.timeout
	if timeout <= 0 {
		timeout = cfg.ElementWaitTimeout()
	}

	driver, err := registry.Open(ctx, cfg.Browser(), cfg.DriverOptions())
	if err != nil {
		return errors.Wrap(err, "failed to open browser")
	}
	defer func() {
		if err := driver.Close(); err != nil {
			logrus.Warnf("failed to close browser: %v", err)
		}
	}()

	helper := functest.NewHelper(cfg)
	if err := helper.OpenPage(ctx, driver, f.path); err != nil {
		return errors.Wrapf(err, "failed to open %s%s", cfg.BaseURL(), f.path)
	}
	logrus.Infof("opened %s%s in %s, waiting up to %s for %s", cfg.BaseURL(), f.path, cfg.Browser(), timeout, sel)

	var elements []browser.Element
	switch {
	case f.text != "":
		var el browser.Element
		el, err = helper.WaitForAndGetElementWithTextWithin(ctx, driver, sel, f.text, timeout)
		elements = []browser.Element{el}
	case f.all:
		elements, err = helper.WaitForAndGetElementsWithin(ctx, driver, sel, timeout)
	default:
		var el browser.Element
		el, err = helper.WaitForAndGetElementWithin(ctx, driver, sel, timeout)
		elements = []browser.Element{el}
	}
	if err != nil {
		return errors.Wrap(err, "wait failed")
	}

	for i, el := range elements {
		content, err := el.Text()
		if err != nil {
			logrus.Warnf("match %d: failed to read text: %v", i+1, err)
			continue
		}
		logrus.Infof("match %d: %q", i+1, content)
	}
	return nil
}

func loadConfig(path, browserID, baseURL, seleniumURL, binPath string) (*configs.TestConfiguration, error) {
	b := browser.Headless
	var opts []configs.Option

	if path != "" {
		base, err := configs.Load(path)
		if err != nil {
			return nil, err
		}

		b = base.Browser()
		if baseURL == "" {
			baseURL = base.BaseURL()
		}
		driverOpts := base.DriverOptions()
		if seleniumURL == "" {
			seleniumURL = driverOpts.SeleniumURL
		}
		if binPath == "" {
			binPath = driverOpts.ChromeBinPath
		}
		opts = append(opts,
			configs.WithElementWaitTimeout(base.ElementWaitTimeout()),
			configs.WithPollInterval(base.PollInterval()),
			configs.WithCookiesPath(driverOpts.CookiesPath),
			configs.WithArtifactsDir(base.ArtifactsDir()),
			configs.WithHeaded(driverOpts.Headed),
		)
	}

	if browserID != "" {
		parsed, err := browser.ParseBrowser(browserID)
		if err != nil {
			return nil, err
		}
		b = parsed
	}

	opts = append(opts,
		configs.WithSeleniumURL(seleniumURL),
		configs.WithChromeBinPath(binPath),
	)
	return configs.New(b, baseURL, opts...)
}
