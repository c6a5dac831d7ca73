package browser

import (
	"context"

	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"
)

type playwrightDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

// newPlaywrightFactory drives Safari through Playwright's WebKit build.
func newPlaywrightFactory() Factory {
	return func(_ context.Context, opts Options) (Driver, error) {
		pw, err := playwright.Run()
		if err != nil {
			return nil, errors.Wrap(err, "start playwright")
		}

		b, err := pw.WebKit.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(!opts.Headed),
		})
		if err != nil {
			_ = pw.Stop()
			return nil, errors.Wrap(err, "launch webkit")
		}

		page, err := b.NewPage()
		if err != nil {
			_ = b.Close()
			_ = pw.Stop()
			return nil, errors.Wrap(err, "open webkit page")
		}

		return &playwrightDriver{pw: pw, browser: b, page: page}, nil
	}
}

func playwrightSelector(sel Selector) string {
	if sel.Strategy == ByXPath {
		return "xpath=" + sel.Value
	}
	return sel.Value
}

func (d *playwrightDriver) Navigate(_ context.Context, url string) error {
	_, err := d.page.Goto(url)
	return errors.Wrapf(err, "navigate to %s", url)
}

func (d *playwrightDriver) Query(_ context.Context, sel Selector) ([]Element, error) {
	found, err := d.page.QuerySelectorAll(playwrightSelector(sel))
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", sel)
	}

	elements := make([]Element, 0, len(found))
	for _, el := range found {
		elements = append(elements, playwrightElement{el: el})
	}
	return elements, nil
}

func (d *playwrightDriver) Screenshot(_ context.Context) ([]byte, error) {
	data, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	return data, errors.Wrap(err, "capture screenshot")
}

func (d *playwrightDriver) Close() error {
	var firstErr error
	closers := []func() error{
		func() error { return d.page.Close() },
		func() error { return d.browser.Close() },
		d.pw.Stop,
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return errors.Wrap(firstErr, "close webkit session")
}

type playwrightElement struct {
	el playwright.ElementHandle
}

func (e playwrightElement) Text() (string, error) {
	text, err := e.el.InnerText()
	return text, errors.Wrap(err, "read element text")
}
