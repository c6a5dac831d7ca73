package browser

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tebeka/selenium"
)

// W3C WebDriver error codes that mean the element is not there (yet).
var seleniumAbsentCodes = map[string]bool{
	"no such element":         true,
	"stale element reference": true,
}

type seleniumDriver struct {
	wd selenium.WebDriver
}

func newSeleniumFactory(browserName string) Factory {
	return func(_ context.Context, opts Options) (Driver, error) {
		if opts.SeleniumURL == "" {
			return nil, errors.Errorf("a selenium url is required to drive %s", browserName)
		}

		caps := selenium.Capabilities{"browserName": browserName}
		wd, err := selenium.NewRemote(caps, opts.SeleniumURL)
		if err != nil {
			return nil, errors.Wrapf(err, "connect to selenium at %s", opts.SeleniumURL)
		}
		return &seleniumDriver{wd: wd}, nil
	}
}

func isSeleniumAbsent(err error) bool {
	var se *selenium.Error
	return errors.As(err, &se) && seleniumAbsentCodes[se.Err]
}

func (d *seleniumDriver) Navigate(_ context.Context, url string) error {
	return errors.Wrapf(d.wd.Get(url), "navigate to %s", url)
}

func (d *seleniumDriver) Query(_ context.Context, sel Selector) ([]Element, error) {
	by := selenium.ByCSSSelector
	if sel.Strategy == ByXPath {
		by = selenium.ByXPATH
	}

	found, err := d.wd.FindElements(by, sel.Value)
	if err != nil {
		if isSeleniumAbsent(err) {
			return nil, ErrNoSuchElement
		}
		return nil, errors.Wrapf(err, "query %s", sel)
	}

	elements := make([]Element, 0, len(found))
	for _, el := range found {
		elements = append(elements, seleniumElement{el: el})
	}
	return elements, nil
}

func (d *seleniumDriver) Screenshot(_ context.Context) ([]byte, error) {
	data, err := d.wd.Screenshot()
	return data, errors.Wrap(err, "capture screenshot")
}

func (d *seleniumDriver) Close() error {
	return errors.Wrap(d.wd.Quit(), "quit selenium session")
}

type seleniumElement struct {
	el selenium.WebElement
}

func (e seleniumElement) Text() (string, error) {
	text, err := e.el.Text()
	if err != nil {
		if isSeleniumAbsent(err) {
			return "", ErrNoSuchElement
		}
		return "", errors.Wrap(err, "read element text")
	}
	return text, nil
}
