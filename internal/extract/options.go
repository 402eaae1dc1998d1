package extract

import (
	"context"
	"time"
)

// Options configures the engine. Zero values are not defaults; start from
// DefaultOptions and override.
type Options struct {
	// NavigationTimeout bounds loading the page up to DOMContentLoaded.
	NavigationTimeout time.Duration

	// PageLoadTimeout bounds waiting for the transcript container.
	PageLoadTimeout time.Duration

	// QueryTimeout bounds every single DOM query outside navigation and the
	// container wait: reading the final URL, sign-in checks, the data blob, the
	// HTML snapshot and each reveal click.
	QueryTimeout time.Duration

	// HarvestTimeout bounds the whole transcript strategy cascade.
	HarvestTimeout time.Duration

	// RevealPause is waited after clicking a reveal control.
	RevealPause time.Duration

	// SettleDelay is waited before harvesting transcript text.
	SettleDelay time.Duration

	MaxAttempts int
	RetryDelay  time.Duration

	// ExpectedHost is the destination host. Empty means the requested URL's host.
	ExpectedHost string

	// ExpectedPathPattern is a regular expression the final path must match.
	// Empty means the final path must equal the requested path (trailing
	// slash ignored), so share links that redirect to a different canonical
	// path need a pattern.
	ExpectedPathPattern string

	TranscriptContainer string

	// DataRootSelector and DataAttribute locate the embedded page data blob.
	DataRootSelector string
	DataAttribute    string
}

// DefaultOptions returns the defaults used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		NavigationTimeout:   60 * time.Second,
		PageLoadTimeout:     60 * time.Second,
		QueryTimeout:        15 * time.Second,
		HarvestTimeout:      60 * time.Second,
		RevealPause:         2 * time.Second,
		SettleDelay:         5 * time.Second,
		MaxAttempts:         3,
		RetryDelay:          5 * time.Second,
		TranscriptContainer: "page-call-detail-transcript",
		DataRootSelector:    "#app[data-page]",
		DataAttribute:       "data-page",
	}
}

// Policy returns the retry policy described by the options.
func (o Options) Policy() Policy {
	return Policy{MaxAttempts: o.MaxAttempts, Delay: o.RetryDelay}
}

// boundedContext limits ctx to d. d <= 0 leaves the deadline to ctx.
func boundedContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
