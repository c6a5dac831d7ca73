package browser

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Options carries the driver settings taken from the test configuration.
type Options struct {
	// SeleniumURL is the remote WebDriver endpoint for Firefox and Internet Explorer.
	SeleniumURL string
	// ChromeBinPath overrides the Chrome binary rod launches.
	ChromeBinPath string
	// CookiesPath points to a JSON cookie export loaded into Chrome sessions.
	CookiesPath string
	// Headed shows the window for browsers that default to headless.
	Headed bool
}

// Factory opens a new driver session.
type Factory func(ctx context.Context, opts Options) (Driver, error)

// Registry maps each supported browser to the factory that opens it.
type Registry struct {
	mu        sync.RWMutex
	factories map[Browser]Factory
}

// NewRegistry returns a registry with no bindings.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Browser]Factory)}
}

// DefaultRegistry binds every browser in All to its real driver.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, b := range All() {
		r.Register(b, defaultFactory(b))
	}
	return r
}

func defaultFactory(b Browser) Factory {
	switch b {
	case Chrome:
		return newRodFactory(false)
	case Headless:
		return newRodFactory(true)
	case Firefox:
		return newSeleniumFactory("firefox")
	case InternetExplorer:
		return newSeleniumFactory("internet explorer")
	case Safari:
		return newPlaywrightFactory()
	}
	return nil
}

// Register binds b to f, replacing any previous binding.
func (r *Registry) Register(b Browser, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[b] = f
}

// Lookup returns the factory bound to b.
func (r *Registry) Lookup(b Browser) (Factory, error) {
	if !b.Valid() {
		return nil, errors.Wrapf(ErrUnknownBrowser, "unsupported browser %s", b)
	}

	r.mu.RLock()
	f, ok := r.factories[b]
	r.mu.RUnlock()
	if !ok || f == nil {
		return nil, errors.Errorf("no driver registered for %s", b)
	}
	return f, nil
}

// Open starts a session for b.
func (r *Registry) Open(ctx context.Context, b Browser, opts Options) (Driver, error) {
	f, err := r.Lookup(b)
	if err != nil {
		return nil, err
	}

	logrus.WithField("browser", b.ID()).Info("opening browser session")
	d, err := f(ctx, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", b)
	}
	return d, nil
}

// Resolve parses id and opens a session for it. Unknown identifiers fail with
// ErrUnknownBrowser before any driver is started.
func (r *Registry) Resolve(ctx context.Context, id string, opts Options) (Driver, error) {
	b, err := ParseBrowser(id)
	if err != nil {
		return nil, err
	}
	return r.Open(ctx, b, opts)
}
