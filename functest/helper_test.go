package functest

import (
	"context"
	"testing"
	"time"

	"github.com/interzonedev/spunkfix/browser"
	"github.com/interzonedev/spunkfix/browser/browsertest"
	"github.com/interzonedev/spunkfix/configs"
	"github.com/interzonedev/spunkfix/wait"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	statusSel = browser.CSS("#status")
	rowSel    = browser.CSS(".row")
)

func newTestHelper(t *testing.T, timeout time.Duration) *Helper {
	t.Helper()
	cfg, err := configs.New(browser.Headless, "http://app.test",
		configs.WithElementWaitTimeout(timeout),
		configs.WithPollInterval(20*time.Millisecond),
	)
	require.NoError(t, err)
	return NewHelper(cfg)
}

func TestOpenPageJoinsBaseURL(t *testing.T) {
	h := newTestHelper(t, time.Second)
	d := browsertest.New()

	require.NoError(t, h.OpenPage(context.Background(), d, "/login"))
	assert.Equal(t, []string{"http://app.test/login"}, d.Visited())
}

func TestWaitForElementPresent(t *testing.T) {
	h := newTestHelper(t, time.Second)
	d := browsertest.New()
	d.Set(statusSel, "ready")

	for i := 0; i < 2; i++ {
		start := time.Now()
		require.NoError(t, h.WaitForElement(context.Background(), d, statusSel))
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	}
	assert.Equal(t, 2, d.Queries(statusSel))
}

func TestWaitForElementAppearsLater(t *testing.T) {
	h := newTestHelper(t, time.Second)
	d := browsertest.New()
	d.SetAfter(150*time.Millisecond, statusSel, "")

	start := time.Now()
	require.NoError(t, h.WaitForElementWithin(context.Background(), d, statusSel, 2*time.Second))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestWaitForElementTimesOut(t *testing.T) {
	h := newTestHelper(t, time.Second)
	d := browsertest.New()

	start := time.Now()
	err := h.WaitForElementWithin(context.Background(), d, statusSel, 200*time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, wait.ErrTimeout))
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond)

	var timeoutErr *ElementTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, statusSel, timeoutErr.Selector)
	assert.False(t, timeoutErr.TextRequired)
	assert.Equal(t, 200*time.Millisecond, timeoutErr.Timeout)
	assert.Contains(t, err.Error(), "#status")
}

func TestWaitForElementUsesDefaultTimeout(t *testing.T) {
	h := newTestHelper(t, 150*time.Millisecond)
	assert.Equal(t, 150*time.Millisecond, h.Timeout())

	err := h.WaitForElement(context.Background(), browsertest.New(), statusSel)

	var timeoutErr *ElementTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, 150*time.Millisecond, timeoutErr.Timeout)
}

func TestWaitForElementZeroTimeoutQueriesOnce(t *testing.T) {
	h := newTestHelper(t, time.Second)
	d := browsertest.New()

	err := h.WaitForElementWithin(context.Background(), d, statusSel, 0)
	assert.True(t, errors.Is(err, wait.ErrTimeout))
	assert.Equal(t, 1, d.Queries(statusSel))
}

func TestWaitForElementWithTextIsExact(t *testing.T) {
	h := newTestHelper(t, time.Second)

	for _, text := range []string{"Xx", " X", "X ", "x", ""} {
		d := browsertest.New()
		d.Set(statusSel, text)

		err := h.WaitForElementWithTextWithin(context.Background(), d, statusSel, "X", 60*time.Millisecond)
		require.Error(t, err, "text %q", text)

		var timeoutErr *ElementTimeoutError
		require.True(t, errors.As(err, &timeoutErr))
		assert.True(t, timeoutErr.TextRequired)
		assert.Equal(t, "X", timeoutErr.Text)
	}

	d := browsertest.New()
	d.Set(statusSel, "Xx", "X")
	require.NoError(t, h.WaitForElementWithTextWithin(context.Background(), d, statusSel, "X", 60*time.Millisecond))
}

func TestWaitForElementWithTextRetriesWhileAbsent(t *testing.T) {
	h := newTestHelper(t, time.Second)
	d := browsertest.New()
	d.SetAfter(100*time.Millisecond, statusSel, "loading")
	d.SetAfter(200*time.Millisecond, statusSel, "ready")

	start := time.Now()
	require.NoError(t, h.WaitForElementWithText(context.Background(), d, statusSel, "ready"))
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestWaitForAndGetElementWithTextScenario(t *testing.T) {
	h := newTestHelper(t, 5*time.Second)
	d := browsertest.New()
	d.SetAfter(200*time.Millisecond, statusSel, "ready")

	start := time.Now()
	el, err := h.WaitForAndGetElementWithText(context.Background(), d, statusSel, "ready")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.Less(t, time.Since(start), 5*time.Second)

	text, err := el.Text()
	require.NoError(t, err)
	assert.Equal(t, "ready", text)
}

func TestWaitForAndGetElementWithTextReturnsMatchingElement(t *testing.T) {
	h := newTestHelper(t, time.Second)
	d := browsertest.New()
	d.Set(rowSel, "first", "second", "third")

	el, err := h.WaitForAndGetElementWithText(context.Background(), d, rowSel, "second")
	require.NoError(t, err)

	text, err := el.Text()
	require.NoError(t, err)
	assert.Equal(t, "second", text)
}

func TestWaitForAndGetElementReturnsFirstMatch(t *testing.T) {
	h := newTestHelper(t, time.Second)
	d := browsertest.New()
	d.Set(rowSel, "one", "two")

	el, err := h.WaitForAndGetElement(context.Background(), d, rowSel)
	require.NoError(t, err)

	text, err := el.Text()
	require.NoError(t, err)
	assert.Equal(t, "one", text)
}

func TestWaitForAndGetElementsReturnsMatchesAtFetchTime(t *testing.T) {
	h := newTestHelper(t, time.Second)
	d := browsertest.New()
	d.Set(rowSel, "a", "b")
	d.OnQuery = func(sel browser.Selector, n int) {
		if n == 2 {
			d.Set(rowSel, "a", "b", "c")
		}
	}

	elements, err := h.WaitForAndGetElements(context.Background(), d, rowSel)
	require.NoError(t, err)
	assert.Len(t, elements, 3)
}

func TestWaitForAndGetElementsTimesOut(t *testing.T) {
	h := newTestHelper(t, 5*time.Second)
	d := browsertest.New()

	start := time.Now()
	elements, err := h.WaitForAndGetElementsWithin(context.Background(), d, rowSel, 100*time.Millisecond)
	elapsed := time.Since(start)

	assert.Nil(t, elements)
	assert.True(t, errors.Is(err, wait.ErrTimeout))
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 300*time.Millisecond)
}

func TestWaitForElementsDoesNotCheckText(t *testing.T) {
	h := newTestHelper(t, time.Second)
	d := browsertest.New()
	d.SetElements(rowSel, &browsertest.Element{Err: errors.New("text unavailable")})

	require.NoError(t, h.WaitForElements(context.Background(), d, rowSel))
}

func TestWaitForAndGetDetectsVanishedElements(t *testing.T) {
	h := newTestHelper(t, time.Second)

	vanishing := func() *browsertest.Driver {
		d := browsertest.New()
		d.Set(rowSel, "x")
		d.OnQuery = func(sel browser.Selector, n int) {
			if n == 2 {
				d.Remove(rowSel)
			}
		}
		return d
	}

	_, err := h.WaitForAndGetElement(context.Background(), vanishing(), rowSel)
	assert.True(t, errors.Is(err, ErrElementVanished))

	_, err = h.WaitForAndGetElements(context.Background(), vanishing(), rowSel)
	assert.True(t, errors.Is(err, ErrElementVanished))

	_, err = h.WaitForAndGetElementWithText(context.Background(), vanishing(), rowSel, "x")
	assert.True(t, errors.Is(err, ErrElementVanished))

	d := browsertest.New()
	d.Set(rowSel, "x")
	d.OnQuery = func(sel browser.Selector, n int) {
		if n == 2 {
			d.Set(rowSel, "y")
		}
	}
	_, err = h.WaitForAndGetElementWithText(context.Background(), d, rowSel, "x")
	assert.True(t, errors.Is(err, ErrElementVanished))
}

func TestNoSuchElementIsNotFatal(t *testing.T) {
	h := newTestHelper(t, time.Second)
	d := browsertest.New()
	d.FailQueries(browser.ErrNoSuchElement)
	time.AfterFunc(100*time.Millisecond, func() {
		d.Set(statusSel, "ready")
		d.FailQueries(nil)
	})

	require.NoError(t, h.WaitForElement(context.Background(), d, statusSel))
	assert.Greater(t, d.Queries(statusSel), 1)
}

func TestStaleElementTextIsNotFatal(t *testing.T) {
	h := newTestHelper(t, time.Second)
	d := browsertest.New()
	d.SetElements(statusSel,
		&browsertest.Element{Err: browser.ErrNoSuchElement},
		&browsertest.Element{Content: "ready"},
	)

	require.NoError(t, h.WaitForElementWithText(context.Background(), d, statusSel, "ready"))
}

func TestUnexpectedQueryFailurePropagatesImmediately(t *testing.T) {
	h := newTestHelper(t, 5*time.Second)
	d := browsertest.New()
	lost := errors.New("session lost")
	d.FailQueries(lost)

	start := time.Now()
	_, err := h.WaitForAndGetElement(context.Background(), d, statusSel)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lost))
	assert.False(t, errors.Is(err, wait.ErrTimeout))
	assert.Equal(t, 1, d.Queries(statusSel))
	assert.Less(t, time.Since(start), time.Second)
}

func TestUnexpectedTextFailurePropagates(t *testing.T) {
	h := newTestHelper(t, 5*time.Second)
	d := browsertest.New()
	broken := errors.New("node detached from session")
	d.SetElements(statusSel, &browsertest.Element{Err: broken})

	err := h.WaitForElementWithText(context.Background(), d, statusSel, "ready")
	assert.True(t, errors.Is(err, broken))
}
