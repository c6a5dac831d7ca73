// Package browser names the supported browsers and adapts the driver
// libraries behind a single query interface.
package browser

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownBrowser is returned for identifiers outside the supported set.
var ErrUnknownBrowser = errors.New("unknown browser")

// Browser is one of the supported browser kinds.
type Browser int

const (
	Firefox Browser = iota + 1
	Chrome
	Safari
	Headless
	InternetExplorer
)

var browserIDs = map[Browser]string{
	Firefox:          "firefox",
	Chrome:           "chrome",
	Safari:           "safari",
	Headless:         "headless",
	InternetExplorer: "ie",
}

// All returns every supported browser in declaration order.
func All() []Browser {
	return []Browser{Firefox, Chrome, Safari, Headless, InternetExplorer}
}

// IDs returns the identifiers accepted by ParseBrowser.
func IDs() []string {
	ids := make([]string, 0, len(browserIDs))
	for _, b := range All() {
		ids = append(ids, b.ID())
	}
	return ids
}

// ID returns the identifier used in configuration files and flags.
func (b Browser) ID() string {
	if id, ok := browserIDs[b]; ok {
		return id
	}
	return fmt.Sprintf("browser(%d)", int(b))
}

func (b Browser) String() string {
	return b.ID()
}

// Valid reports whether b is one of the supported browsers.
func (b Browser) Valid() bool {
	_, ok := browserIDs[b]
	return ok
}

// ParseBrowser maps an identifier to a Browser. Matching ignores case and
// surrounding whitespace.
func ParseBrowser(id string) (Browser, error) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	for b, known := range browserIDs {
		if known == normalized {
			return b, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownBrowser, "unrecognized browser id %q (supported: %s)",
		id, strings.Join(IDs(), ", "))
}

// MarshalText lets a Browser be written as its identifier.
func (b Browser) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, errors.Wrapf(ErrUnknownBrowser, "cannot marshal %d", int(b))
	}
	return []byte(b.ID()), nil
}

// UnmarshalText parses an identifier, as in configuration files.
func (b *Browser) UnmarshalText(text []byte) error {
	parsed, err := ParseBrowser(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
