package functest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/interzonedev/spunkfix/artifacts"
	"github.com/interzonedev/spunkfix/browser"
	"github.com/interzonedev/spunkfix/configs"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// Session is the browser session owned by one test. It is created by Setup
// and torn down by the test's cleanup.
type Session struct {
	ID     string
	Config *configs.TestConfiguration
	Driver browser.Driver
	Helper *Helper

	ctx context.Context
	log *logrus.Entry
}

type sessionConfig struct {
	registry    *browser.Registry
	ctx         context.Context
	screenshots bool
}

type SessionOption func(*sessionConfig)

// WithRegistry resolves drivers from r instead of browser.DefaultRegistry.
func WithRegistry(r *browser.Registry) SessionOption {
	return func(c *sessionConfig) {
		c.registry = r
	}
}

// WithContext sets the context passed to driver calls.
func WithContext(ctx context.Context) SessionOption {
	return func(c *sessionConfig) {
		c.ctx = ctx
	}
}

// WithoutFailureScreenshots disables the screenshot taken when the test fails.
func WithoutFailureScreenshots() SessionOption {
	return func(c *sessionConfig) {
		c.screenshots = false
	}
}

// Setup opens a browser for cfg and registers its teardown with t. When the
// test has failed by teardown time a screenshot is written to the artifacts
// directory before the browser is closed.
func Setup(t testing.TB, cfg *configs.TestConfiguration, options ...SessionOption) *Session {
	t.Helper()

	sc := &sessionConfig{ctx: context.Background(), screenshots: true}
	for _, opt := range options {
		opt(sc)
	}
	if sc.registry == nil {
		sc.registry = browser.DefaultRegistry()
	}

	id := uuid.NewString()
	log := logrus.WithFields(logrus.Fields{
		"session": id,
		"test":    t.Name(),
		"browser": cfg.Browser().ID(),
	})

	driver, err := sc.registry.Open(sc.ctx, cfg.Browser(), cfg.DriverOptions())
	require.NoError(t, err, "failed to open %s for %s", cfg.Browser(), t.Name())

	s := &Session{
		ID:     id,
		Config: cfg,
		Driver: driver,
		Helper: NewHelper(cfg),
		ctx:    sc.ctx,
		log:    log,
	}
	log.Info("functional test session started")

	t.Cleanup(func() {
		if sc.screenshots && t.Failed() {
			s.captureFailure(t.Name())
		}
		if err := driver.Close(); err != nil {
			log.Warnf("failed to close browser: %v", err)
		}
		log.Info("functional test session finished")
	})

	return s
}

// Context returns the context passed to driver calls.
func (s *Session) Context() context.Context {
	return s.ctx
}

// OpenPage navigates the session's browser to path under the base URL.
func (s *Session) OpenPage(path string) error {
	return s.Helper.OpenPage(s.ctx, s.Driver, path)
}

func (s *Session) captureFailure(testName string) {
	data, err := s.Driver.Screenshot(s.ctx)
	if err != nil {
		s.log.Warnf("failed to capture failure screenshot: %v", err)
		return
	}

	dir, err := artifacts.Dir(s.Config.ArtifactsDir(), s.ID, testName)
	if err != nil {
		s.log.Warnf("failed to prepare artifacts dir: %v", err)
		return
	}

	path, err := artifacts.SaveScreenshot(dir, "failure", data)
	if err != nil {
		s.log.Warnf("failed to save failure screenshot: %v", err)
		return
	}
	s.log.Infof("saved failure screenshot to %s", path)
}
