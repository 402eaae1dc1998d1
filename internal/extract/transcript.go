package extract

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"callscribe/internal/browser"
	"callscribe/internal/domain"
)

// revealControl is a selector plus an optional JS regex on the element text.
type revealControl struct {
	selector string
	text     string
}

var revealControls = []revealControl{
	{selector: "button", text: "/transcript/i"},
	{selector: "button", text: "/show transcript/i"},
	{selector: `[aria-label*="transcript" i]`},
	{selector: `[role="button"][aria-label*="captions" i]`},
}

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TranscriptExtractor harvests transcript text from a loaded call page.
type TranscriptExtractor struct {
	container   string
	waitTimeout time.Duration
	query       time.Duration
	harvest     time.Duration
	revealPause time.Duration
	settleDelay time.Duration
	strategies  []Strategy
	sleep       sleepFunc
	log         logrus.FieldLogger
}

// NewTranscriptExtractor builds an extractor using DefaultStrategies.
func NewTranscriptExtractor(opts Options, logger logrus.FieldLogger) *TranscriptExtractor {
	return &TranscriptExtractor{
		container:   opts.TranscriptContainer,
		waitTimeout: opts.PageLoadTimeout,
		query:       opts.QueryTimeout,
		harvest:     opts.HarvestTimeout,
		revealPause: opts.RevealPause,
		settleDelay: opts.SettleDelay,
		strategies:  DefaultStrategies(opts.TranscriptContainer),
		sleep:       sleepCtx,
		log:         logger.WithField("component", "transcript"),
	}
}

// Extract returns the cleaned transcript joined by newlines, or the
// NoTranscript sentinel when no strategy finds anything. It fails only when
// the container never attaches or ctx ends.
func (t *TranscriptExtractor) Extract(ctx context.Context, page browser.Page) (string, error) {
	if err := t.waitContainer(ctx, page); err != nil {
		return "", err
	}

	t.reveal(ctx, page)

	if err := t.sleep(ctx, t.settleDelay); err != nil {
		return "", newError(KindTimeout, "settle transcript", err)
	}

	return t.harvestLines(ctx, page)
}

// harvestLines runs the strategy cascade under the harvest budget.
func (t *TranscriptExtractor) harvestLines(ctx context.Context, page browser.Page) (string, error) {
	hctx, cancel := boundedContext(ctx, t.harvest)
	defer cancel()

	for _, s := range t.strategies {
		res, err := s.Run(hctx, page)
		log := t.log.WithField("strategy", s.Name)
		if res.IsFound() {
			log.WithField("lines", len(res.Lines())).Info("Transcript harvested")
			return strings.Join(res.Lines(), "\n"), nil
		}
		if ctxErr := hctx.Err(); ctxErr != nil {
			return "", newError(KindTimeout, "harvest transcript", ctxErr)
		}
		if err != nil {
			log.WithError(err).Debug("Strategy failed")
		}
	}

	t.log.Info("No transcript lines found")
	return domain.NoTranscript, nil
}

func (t *TranscriptExtractor) waitContainer(ctx context.Context, page browser.Page) error {
	waitCtx, cancel := boundedContext(ctx, t.waitTimeout)
	defer cancel()

	if err := page.WaitAttached(waitCtx, t.container); err != nil {
		if ctx.Err() != nil {
			return newError(KindTimeout, "wait transcript container", ctx.Err())
		}
		t.log.WithError(err).WithField("selector", t.container).Warn("Transcript container never attached")
		// The local deadline firing means the container is missing, not that the attempt timed out.
		return &Error{Kind: KindContainerMissing, Op: "wait transcript container", Err: err}
	}
	t.log.Debug("Transcript container attached")
	return nil
}

// reveal clicks the first reveal control found. Missing controls and click
// failures are not errors.
func (t *TranscriptExtractor) reveal(ctx context.Context, page browser.Page) {
	for _, c := range revealControls {
		qctx, cancel := boundedContext(ctx, t.query)
		clicked, err := page.ClickFirst(qctx, c.selector, c.text)
		cancel()
		log := t.log.WithField("selector", c.selector)
		if err != nil {
			log.WithError(err).Debug("Reveal control click failed")
		}
		if !clicked {
			continue
		}
		log.Debug("Reveal control clicked")
		if err := t.sleep(ctx, t.revealPause); err != nil {
			log.WithError(err).Debug("Reveal pause interrupted")
		}
		return
	}
	t.log.Debug("No reveal control found")
}
