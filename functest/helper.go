// Package functest waits for elements in a live browser and manages the
// browser session of a single functional test.
package functest

import (
	"context"
	"fmt"
	"time"

	"github.com/interzonedev/spunkfix/browser"
	"github.com/interzonedev/spunkfix/configs"
	"github.com/interzonedev/spunkfix/wait"
	"github.com/pkg/errors"
)

// ErrElementVanished is returned when a wait succeeded but the fetch that
// followed it found no matching element.
var ErrElementVanished = errors.New("element vanished after wait")

// ElementTimeoutError reports an element wait that ran out of time. It wraps
// the poller's *wait.TimeoutError, so errors.Is(err, wait.ErrTimeout) holds.
type ElementTimeoutError struct {
	Selector     browser.Selector
	Text         string
	TextRequired bool
	Timeout      time.Duration
	Err          error
}

func (e *ElementTimeoutError) Error() string {
	if e.TextRequired {
		return fmt.Sprintf("timed out after %s waiting for %s with text %q: %v", e.Timeout, e.Selector, e.Text, e.Err)
	}
	return fmt.Sprintf("timed out after %s waiting for %s: %v", e.Timeout, e.Selector, e.Err)
}

func (e *ElementTimeoutError) Unwrap() error {
	return e.Err
}

// Helper opens pages relative to the configured base URL and waits for
// elements using the configured default timeout.
type Helper struct {
	baseURL string
	timeout time.Duration
	poller  *wait.Poller
}

func NewHelper(cfg *configs.TestConfiguration) *Helper {
	return &Helper{
		baseURL: cfg.BaseURL(),
		timeout: cfg.ElementWaitTimeout(),
		poller: wait.New(
			wait.WithInterval(cfg.PollInterval()),
			wait.WithIgnored(browser.ErrNoSuchElement),
		),
	}
}

// Timeout returns the default element wait timeout.
func (h *Helper) Timeout() time.Duration {
	return h.timeout
}

// OpenPage navigates d to the base URL followed by path.
func (h *Helper) OpenPage(ctx context.Context, d browser.Driver, path string) error {
	return d.Navigate(ctx, h.baseURL+path)
}

func (h *Helper) WaitForElement(ctx context.Context, d browser.Driver, sel browser.Selector) error {
	return h.WaitForElementWithin(ctx, d, sel, h.timeout)
}

// WaitForElementWithin waits until sel matches at least one element.
func (h *Helper) WaitForElementWithin(ctx context.Context, d browser.Driver, sel browser.Selector, timeout time.Duration) error {
	return h.block(ctx, d, sel, "", false, timeout)
}

func (h *Helper) WaitForElementWithText(ctx context.Context, d browser.Driver, sel browser.Selector, text string) error {
	return h.WaitForElementWithTextWithin(ctx, d, sel, text, h.timeout)
}

// WaitForElementWithTextWithin waits until some match of sel has exactly text.
func (h *Helper) WaitForElementWithTextWithin(ctx context.Context, d browser.Driver, sel browser.Selector, text string, timeout time.Duration) error {
	return h.block(ctx, d, sel, text, true, timeout)
}

func (h *Helper) WaitForAndGetElement(ctx context.Context, d browser.Driver, sel browser.Selector) (browser.Element, error) {
	return h.WaitForAndGetElementWithin(ctx, d, sel, h.timeout)
}

// WaitForAndGetElementWithin waits for sel, then returns its first match.
func (h *Helper) WaitForAndGetElementWithin(ctx context.Context, d browser.Driver, sel browser.Selector, timeout time.Duration) (browser.Element, error) {
	if err := h.WaitForElementWithin(ctx, d, sel, timeout); err != nil {
		return nil, err
	}

	elements, err := fetch(ctx, d, sel)
	if err != nil {
		return nil, err
	}
	return elements[0], nil
}

func (h *Helper) WaitForAndGetElementWithText(ctx context.Context, d browser.Driver, sel browser.Selector, text string) (browser.Element, error) {
	return h.WaitForAndGetElementWithTextWithin(ctx, d, sel, text, h.timeout)
}

// WaitForAndGetElementWithTextWithin waits for a match of sel with exactly
// text, then returns the first such match. That is not necessarily the first
// match of sel: earlier matches with other text are skipped.
func (h *Helper) WaitForAndGetElementWithTextWithin(ctx context.Context, d browser.Driver, sel browser.Selector, text string, timeout time.Duration) (browser.Element, error) {
	if err := h.WaitForElementWithTextWithin(ctx, d, sel, text, timeout); err != nil {
		return nil, err
	}

	elements, err := fetch(ctx, d, sel)
	if err != nil {
		return nil, err
	}
	el, err := firstWithText(elements, text)
	if err != nil {
		return nil, errors.Wrapf(err, "read text of %s", sel)
	}
	if el == nil {
		return nil, errors.Wrapf(ErrElementVanished, "%s with text %q", sel, text)
	}
	return el, nil
}

func (h *Helper) WaitForElements(ctx context.Context, d browser.Driver, sel browser.Selector) error {
	return h.WaitForElementsWithin(ctx, d, sel, h.timeout)
}

// WaitForElementsWithin waits until sel matches at least one element. Text is
// not checked for multi-element waits.
func (h *Helper) WaitForElementsWithin(ctx context.Context, d browser.Driver, sel browser.Selector, timeout time.Duration) error {
	return h.block(ctx, d, sel, "", false, timeout)
}

func (h *Helper) WaitForAndGetElements(ctx context.Context, d browser.Driver, sel browser.Selector) ([]browser.Element, error) {
	return h.WaitForAndGetElementsWithin(ctx, d, sel, h.timeout)
}

// WaitForAndGetElementsWithin waits for sel, then returns every match found
// by one more query. The result is never empty.
func (h *Helper) WaitForAndGetElementsWithin(ctx context.Context, d browser.Driver, sel browser.Selector, timeout time.Duration) ([]browser.Element, error) {
	if err := h.WaitForElementsWithin(ctx, d, sel, timeout); err != nil {
		return nil, err
	}
	return fetch(ctx, d, sel)
}

func (h *Helper) block(ctx context.Context, d browser.Driver, sel browser.Selector, text string, textRequired bool, timeout time.Duration) error {
	err := h.poller.Block(ctx, elementCondition(d, sel, text, textRequired), timeout)
	if errors.Is(err, wait.ErrTimeout) {
		return &ElementTimeoutError{
			Selector:     sel,
			Text:         text,
			TextRequired: textRequired,
			Timeout:      timeout,
			Err:          err,
		}
	}
	return err
}

func elementCondition(d browser.Driver, sel browser.Selector, text string, textRequired bool) wait.Condition {
	desc := fmt.Sprintf("element %s", sel)
	if textRequired {
		desc = fmt.Sprintf("element %s with text %q", sel, text)
	}

	return wait.Condition{
		Description: desc,
		Check: func(ctx context.Context) (bool, error) {
			elements, err := d.Query(ctx, sel)
			if err != nil {
				return false, err
			}
			if !textRequired {
				return len(elements) > 0, nil
			}
			el, err := firstWithText(elements, text)
			return el != nil, err
		},
	}
}

// firstWithText returns the first element whose text equals text, or nil.
func firstWithText(elements []browser.Element, text string) (browser.Element, error) {
	for _, el := range elements {
		got, err := el.Text()
		if err != nil {
			if errors.Is(err, browser.ErrNoSuchElement) {
				continue
			}
			return nil, err
		}
		if got == text {
			return el, nil
		}
	}
	return nil, nil
}

func fetch(ctx context.Context, d browser.Driver, sel browser.Selector) ([]browser.Element, error) {
	elements, err := d.Query(ctx, sel)
	if err != nil && !errors.Is(err, browser.ErrNoSuchElement) {
		return nil, errors.Wrapf(err, "fetch %s", sel)
	}
	if len(elements) == 0 {
		return nil, errors.Wrapf(ErrElementVanished, "%s", sel)
	}
	return elements, nil
}
