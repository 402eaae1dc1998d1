// Package browser owns headless browser sessions. A session is one browser
// process plus one isolated browsing context and page, created for a single
// extraction attempt and torn down at its end.
package browser

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultUserAgent is a current desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// Page is the set of DOM operations the extractors rely on.
// Every call is bounded by the given context.
type Page interface {
	// Navigate loads url and returns once the DOM is constructed.
	Navigate(ctx context.Context, url string) error

	// URL returns the page's current location.
	URL(ctx context.Context) (string, error)

	// Has reports whether an element matching selector exists right now.
	Has(ctx context.Context, selector string) (bool, error)

	// Attribute reads an attribute of the first element matching selector.
	// found is false when either the element or the attribute is missing.
	Attribute(ctx context.Context, selector, name string) (value string, found bool, err error)

	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)

	// WaitAttached blocks until an element matching selector is in the DOM.
	WaitAttached(ctx context.Context, selector string) error

	// ClickFirst clicks the first element matching selector whose text
	// matches textPattern (a JS regex literal such as "/transcript/i").
	// An empty pattern matches any element. clicked is false when nothing matched.
	ClickFirst(ctx context.Context, selector, textPattern string) (clicked bool, err error)

	// Texts returns the text of every element matching selector in document order.
	// Invisible elements are read through textContent.
	Texts(ctx context.Context, selector string) ([]string, error)

	// TextNodes returns the value of every text node under the first element
	// matching rootSelector in document order.
	TextNodes(ctx context.Context, rootSelector string) ([]string, error)
}

// Session is a browser process with one isolated page.
type Session interface {
	Page() Page
	Close() error
}

// Launcher creates fresh sessions.
type Launcher interface {
	Acquire(ctx context.Context) (Session, error)
}

// Options configures launched sessions.
type Options struct {
	// Bin overrides the browser executable. Empty means look it up.
	Bin string

	Headless  bool
	NoSandbox bool

	// Stealth injects evasion scripts before any document runs.
	Stealth bool

	UserAgent string

	// ViewportWidth and ViewportHeight set a fixed viewport.
	// Zero for either leaves the viewport at its natural size.
	ViewportWidth  int
	ViewportHeight int

	// ReadTimeout bounds each single element read.
	ReadTimeout time.Duration
}

// DefaultOptions returns headless, sandbox-less options with a 1280x800 viewport.
func DefaultOptions() Options {
	return Options{
		Headless:       true,
		NoSandbox:      true,
		Stealth:        true,
		UserAgent:      DefaultUserAgent,
		ViewportWidth:  1280,
		ViewportHeight: 800,
		ReadTimeout:    5 * time.Second,
	}
}

// Release closes the session. Failures are logged, never returned.
func Release(s Session, log logrus.FieldLogger) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		log.WithError(err).Warn("Error releasing browser session")
		return
	}
	log.Debug("Browser session released")
}
