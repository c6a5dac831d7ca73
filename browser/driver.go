package browser

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNoSuchElement marks a query that found nothing, or an element that left
// the document between being found and being read. Waits treat it as "not yet".
var ErrNoSuchElement = errors.New("no such element")

// Element is a located node of the document.
type Element interface {
	// Text returns the rendered text of the element.
	Text() (string, error)
}

// Driver is a live browser session. A Driver is used by one test at a time.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// Query returns all current matches of sel; an empty result is not an error.
	Query(ctx context.Context, sel Selector) ([]Element, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}
