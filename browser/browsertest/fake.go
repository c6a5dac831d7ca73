// Package browsertest provides an in-memory browser.Driver whose document can
// be changed while a test waits on it.
package browsertest

import (
	"context"
	"sync"
	"time"

	"github.com/interzonedev/spunkfix/browser"
	"github.com/pkg/errors"
)

// PNG is a minimal image returned by Screenshot.
var PNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

// Element is a fake element with fixed text.
type Element struct {
	Content string
	Err     error
}

func (e *Element) Text() (string, error) {
	if e.Err != nil {
		return "", e.Err
	}
	return e.Content, nil
}

// Driver is a scripted browser.Driver. It is safe to mutate the document from
// another goroutine while a wait is running.
type Driver struct {
	mu       sync.Mutex
	document map[browser.Selector][]browser.Element
	queries  map[browser.Selector]int
	visited  []string
	queryErr error
	closed   bool
	// OnQuery, when set, runs before each query with the 1-based query count
	// for that selector.
	OnQuery func(sel browser.Selector, n int)
}

func New() *Driver {
	return &Driver{
		document: make(map[browser.Selector][]browser.Element),
		queries:  make(map[browser.Selector]int),
	}
}

// Set replaces the matches of sel with elements carrying texts.
func (d *Driver) Set(sel browser.Selector, texts ...string) {
	elements := make([]browser.Element, 0, len(texts))
	for _, text := range texts {
		elements = append(elements, &Element{Content: text})
	}
	d.SetElements(sel, elements...)
}

// SetElements replaces the matches of sel.
func (d *Driver) SetElements(sel browser.Selector, elements ...browser.Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.document[sel] = elements
}

// Remove drops every match of sel.
func (d *Driver) Remove(sel browser.Selector) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.document, sel)
}

// SetAfter makes sel match texts once delay has passed.
func (d *Driver) SetAfter(delay time.Duration, sel browser.Selector, texts ...string) {
	time.AfterFunc(delay, func() { d.Set(sel, texts...) })
}

// FailQueries makes every following query return err. Pass nil to recover.
func (d *Driver) FailQueries(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queryErr = err
}

func (d *Driver) Navigate(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("browsertest: driver closed")
	}
	d.visited = append(d.visited, url)
	return nil
}

func (d *Driver) Query(_ context.Context, sel browser.Selector) ([]browser.Element, error) {
	d.mu.Lock()
	d.queries[sel]++
	n := d.queries[sel]
	hook := d.OnQuery
	d.mu.Unlock()

	if hook != nil {
		hook(sel, n)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New("browsertest: driver closed")
	}
	if d.queryErr != nil {
		return nil, d.queryErr
	}
	matches := d.document[sel]
	out := make([]browser.Element, len(matches))
	copy(out, matches)
	return out, nil
}

func (d *Driver) Screenshot(context.Context) ([]byte, error) {
	return PNG, nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Queries returns how many times sel was queried.
func (d *Driver) Queries(sel browser.Selector) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queries[sel]
}

// Visited returns the URLs passed to Navigate.
func (d *Driver) Visited() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.visited...)
}

// Closed reports whether Close was called.
func (d *Driver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Factory returns a browser.Factory that always hands out d.
func (d *Driver) Factory() browser.Factory {
	return func(context.Context, browser.Options) (browser.Driver, error) {
		return d, nil
	}
}
