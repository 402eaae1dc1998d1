package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"callscribe/internal/browser"
)

// NavigationOutcome classifies how loading the target page ended.
type NavigationOutcome string

const (
	OutcomeLoaded       NavigationOutcome = "loaded"
	OutcomeTimeout      NavigationOutcome = "timeout"
	OutcomeFailed       NavigationOutcome = "failed"
	OutcomeRedirected   NavigationOutcome = "redirected"
	OutcomeAuthRequired NavigationOutcome = "auth_required"
)

// authIndicators are form fields that only show up on sign-in pages.
var authIndicators = []string{
	`input[type="email"]`,
	`input[type="password"]`,
	`input[name="email"]`,
	`input[name="password"]`,
	`input[autocomplete="current-password"]`,
}

// Navigator loads the target page and checks where the browser ended up.
type Navigator struct {
	timeout     time.Duration
	query       time.Duration
	host        string
	pathPattern *regexp.Regexp
	log         logrus.FieldLogger
}

// NewNavigator compiles the destination matcher from opts.
func NewNavigator(opts Options, logger logrus.FieldLogger) (*Navigator, error) {
	n := &Navigator{
		timeout: opts.NavigationTimeout,
		query:   opts.QueryTimeout,
		host:    normalizeHost(opts.ExpectedHost),
		log:     logger.WithField("component", "navigator"),
	}
	if opts.ExpectedPathPattern != "" {
		re, err := regexp.Compile(opts.ExpectedPathPattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile expected path pattern: %w", err)
		}
		n.pathPattern = re
	}
	return n, nil
}

// Navigate loads rawURL and returns once the DOM is constructed. Network idle
// is never awaited. A non-nil error always comes with a non-loaded outcome.
func (n *Navigator) Navigate(ctx context.Context, page browser.Page, rawURL string) (NavigationOutcome, error) {
	log := n.log.WithField("url", rawURL)

	navCtx, cancel := boundedContext(ctx, n.timeout)
	defer cancel()

	if err := page.Navigate(navCtx, rawURL); err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			log.WithError(err).Warn("Navigation timed out")
			return OutcomeTimeout, newError(KindTimeout, "navigate", err)
		}
		log.WithError(err).Warn("Navigation failed")
		return OutcomeFailed, newError(KindNavigation, "navigate", err)
	}

	finalURL, err := n.finalURL(ctx, page)
	if err != nil {
		return OutcomeFailed, newError(KindNavigation, "read final url", err)
	}
	if n.matches(rawURL, finalURL) {
		log.Debug("Page loaded")
		return OutcomeLoaded, nil
	}

	log = log.WithField("final_url", finalURL)
	if n.authRequired(ctx, page, log) {
		log.Warn("Navigation landed on a sign-in page")
		return OutcomeAuthRequired, &Error{
			Kind: KindAuthRequired,
			Op:   "navigate",
			Err:  fmt.Errorf("redirected to sign-in page %s", finalURL),
		}
	}
	log.Warn("Navigation landed on an unexpected page")
	return OutcomeRedirected, &Error{
		Kind: KindRedirect,
		Op:   "navigate",
		Err:  fmt.Errorf("unexpected redirect to %s", finalURL),
	}
}

func (n *Navigator) finalURL(ctx context.Context, page browser.Page) (string, error) {
	qctx, cancel := boundedContext(ctx, n.query)
	defer cancel()
	return page.URL(qctx)
}

// matches reports whether finalURL is the destination expected for requested.
func (n *Navigator) matches(requested, finalURL string) bool {
	want, err := url.Parse(requested)
	if err != nil {
		return false
	}
	got, err := url.Parse(finalURL)
	if err != nil {
		return false
	}

	host := n.host
	if host == "" {
		host = normalizeHost(want.Hostname())
	}
	if normalizeHost(got.Hostname()) != host {
		return false
	}

	if n.pathPattern != nil {
		return n.pathPattern.MatchString(got.Path)
	}
	// Without a pattern a canonical-path redirect is a mismatch.
	return strings.TrimSuffix(got.Path, "/") == strings.TrimSuffix(want.Path, "/")
}

func (n *Navigator) authRequired(ctx context.Context, page browser.Page, log logrus.FieldLogger) bool {
	for _, sel := range authIndicators {
		qctx, cancel := boundedContext(ctx, n.query)
		has, err := page.Has(qctx, sel)
		cancel()
		if err != nil {
			log.WithError(err).WithField("selector", sel).Debug("Auth check failed")
			continue
		}
		if has {
			return true
		}
	}
	return false
}

func normalizeHost(h string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(h)), "www.")
}
