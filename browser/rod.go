package browser

import (
	"context"
	"os"

	"github.com/go-rod/rod"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/xpzouying/headless_browser"
)

type rodDriver struct {
	browser *headless_browser.Browser
	page    *rod.Page
}

func newRodFactory(headless bool) Factory {
	return func(_ context.Context, opts Options) (Driver, error) {
		launchOpts := []headless_browser.Option{
			headless_browser.WithHeadless(headless),
		}
		if opts.ChromeBinPath != "" {
			launchOpts = append(launchOpts, headless_browser.WithChromeBinPath(opts.ChromeBinPath))
		}
		if cookies := loadCookies(opts.CookiesPath); cookies != "" {
			launchOpts = append(launchOpts, headless_browser.WithCookies(cookies))
		}

		d := &rodDriver{}
		// the launcher panics when chrome cannot be started
		err := rod.Try(func() {
			d.browser = headless_browser.New(launchOpts...)
			d.page = d.browser.NewPage()
		})
		if err != nil {
			if d.browser != nil {
				d.browser.Close()
			}
			return nil, errors.Wrap(err, "launch chrome")
		}
		return d, nil
	}
}

func loadCookies(path string) string {
	if path == "" {
		return ""
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.Warnf("failed to load cookies from %s: %v", path, err)
		}
		return ""
	}

	logrus.Debugf("loaded cookies from file: %s", path)
	return string(data)
}

func isRodAbsent(err error) bool {
	var notFound *rod.ElementNotFoundError
	return errors.As(err, &notFound)
}

func (d *rodDriver) Navigate(ctx context.Context, url string) error {
	page := d.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return errors.Wrapf(err, "navigate to %s", url)
	}
	return errors.Wrap(page.WaitLoad(), "wait for page load")
}

func (d *rodDriver) Query(ctx context.Context, sel Selector) ([]Element, error) {
	page := d.page.Context(ctx)

	var (
		found rod.Elements
		err   error
	)
	switch sel.Strategy {
	case ByXPath:
		found, err = page.ElementsX(sel.Value)
	default:
		found, err = page.Elements(sel.Value)
	}
	if err != nil {
		if isRodAbsent(err) {
			return nil, ErrNoSuchElement
		}
		return nil, errors.Wrapf(err, "query %s", sel)
	}

	elements := make([]Element, 0, len(found))
	for _, el := range found {
		elements = append(elements, rodElement{el: el})
	}
	return elements, nil
}

func (d *rodDriver) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := d.page.Context(ctx).Screenshot(true, nil)
	return data, errors.Wrap(err, "capture screenshot")
}

func (d *rodDriver) Close() error {
	err := d.page.Close()
	d.browser.Close()
	return errors.Wrap(err, "close page")
}

type rodElement struct {
	el *rod.Element
}

func (e rodElement) Text() (string, error) {
	text, err := e.el.Text()
	if err != nil {
		if isRodAbsent(err) {
			return "", ErrNoSuchElement
		}
		return "", errors.Wrap(err, "read element text")
	}
	return text, nil
}
