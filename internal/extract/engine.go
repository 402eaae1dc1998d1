// Package extract drives a browser session through one call page and pulls
// out the call metadata and transcript. Every attempt gets a fresh session;
// failed attempts are retried according to the configured policy.
package extract

import (
	"context"
	"fmt"
	"time"

	retrygo "github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"

	"callscribe/internal/browser"
	"callscribe/internal/domain"
)

// Outcome is what Extract hands back to callers.
type Outcome struct {
	Result   domain.ExtractionResult
	Attempts int
	Elapsed  time.Duration
}

// Engine runs extraction attempts.
type Engine struct {
	launcher   browser.Launcher
	navigator  *Navigator
	metadata   *MetadataExtractor
	transcript *TranscriptExtractor
	policy     Policy
	timer      retrygo.Timer
	log        logrus.FieldLogger
}

// New creates an engine that acquires sessions from launcher.
func New(launcher browser.Launcher, opts Options, logger logrus.FieldLogger) (*Engine, error) {
	nav, err := NewNavigator(opts, logger)
	if err != nil {
		return nil, err
	}
	return &Engine{
		launcher:   launcher,
		navigator:  nav,
		metadata:   NewMetadataExtractor(opts, logger),
		transcript: NewTranscriptExtractor(opts, logger),
		policy:     opts.Policy(),
		log:        logger.WithField("component", "engine"),
	}, nil
}

// Extract runs attempts against rawURL until one succeeds, one fails
// terminally, or attempts run out. It never panics and always returns a
// well-formed result.
func (e *Engine) Extract(ctx context.Context, rawURL string) Outcome {
	start := time.Now()
	log := e.log.WithField("url", rawURL)

	req := domain.ExtractionRequest{URL: rawURL}
	if err := req.Validate(); err != nil {
		log.WithError(err).Warn("Rejected extraction request")
		return Outcome{
			Result:  domain.Failed(&Error{Kind: KindInvalidInput, Op: "validate", Err: err}),
			Elapsed: time.Since(start),
		}
	}

	var result *domain.CallTranscript
	attempts, err := retryWith(ctx, e.policy, func(ctx context.Context, attempt int) error {
		ct, err := e.attempt(ctx, rawURL, attempt)
		if err != nil {
			return err
		}
		result = ct
		return nil
	}, e.timer)

	out := Outcome{Attempts: attempts, Elapsed: time.Since(start)}
	if err != nil {
		log.WithError(err).WithField("attempts", attempts).Error("Extraction failed")
		out.Result = domain.Failed(err)
		return out
	}
	log.WithField("attempts", attempts).Info("Extraction succeeded")
	out.Result = domain.Succeeded(result.CallMetadata, result.Transcript)
	return out
}

// attempt runs one full pass with its own session. The session is released
// exactly once on every path, panics included.
func (e *Engine) attempt(ctx context.Context, rawURL string, n int) (ct *domain.CallTranscript, err error) {
	log := e.log.WithFields(logrus.Fields{"url": rawURL, "attempt": n})
	log.Info("Starting extraction attempt")

	sess, err := e.launcher.Acquire(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to acquire browser session")
		return nil, newError(KindBrowser, "acquire session", err)
	}
	defer browser.Release(sess, log)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Recovered panic in extraction attempt")
			ct = nil
			err = &Error{Kind: KindInternal, Op: "attempt", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	page := sess.Page()

	if _, err := e.navigator.Navigate(ctx, page, rawURL); err != nil {
		return nil, err
	}

	meta := e.metadata.Extract(ctx, page, rawURL)

	transcript, err := e.transcript.Extract(ctx, page)
	if err != nil {
		return nil, err
	}

	return &domain.CallTranscript{CallMetadata: meta, Transcript: transcript}, nil
}
