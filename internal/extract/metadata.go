package extract

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"callscribe/internal/browser"
	"callscribe/internal/domain"
)

// durationSelector matches elements labelled as the call length. Plain time
// elements are left out, they usually hold the start time.
const durationSelector = `[class*="duration"], [data-testid*="duration"]`

// participantSelector matches elements that usually label call participants.
const participantSelector = `[class*="participant"], [class*="speaker"], [class*="attendee"], [data-testid*="participant"]`

// MetadataExtractor resolves call metadata through a chain of tiers: the
// embedded data blob, inline scripts, then visible DOM text. Earlier tiers
// win; later tiers only fill blanks.
type MetadataExtractor struct {
	rootSelector string
	attribute    string
	query        time.Duration
	now          func() time.Time
	log          logrus.FieldLogger
}

// NewMetadataExtractor creates a metadata extractor.
func NewMetadataExtractor(opts Options, logger logrus.FieldLogger) *MetadataExtractor {
	return &MetadataExtractor{
		rootSelector: opts.DataRootSelector,
		attribute:    opts.DataAttribute,
		query:        opts.QueryTimeout,
		now:          time.Now,
		log:          logger.WithField("component", "metadata"),
	}
}

// Extract never fails. Anything it cannot determine is defaulted.
func (m *MetadataExtractor) Extract(ctx context.Context, page browser.Page, requestURL string) domain.CallMetadata {
	log := m.log.WithField("url", requestURL)

	var found rawCall
	if c, ok := m.fromDataBlob(ctx, page, log); ok {
		found.fill(c)
	}

	if !found.complete() {
		doc, err := m.snapshot(ctx, page)
		if err != nil {
			log.WithError(err).Debug("Could not snapshot page HTML")
		} else {
			if c, ok := fromScripts(ctx, doc); ok {
				log.Debug("Metadata found in inline script")
				found.fill(c)
			}
			if !found.complete() {
				found.fill(fromDOM(doc))
			}
		}
	}

	now := m.now()
	meta := domain.CallMetadata{
		SalespersonName: found.salesperson,
		ProspectName:    found.prospect,
		TranscriptLink:  found.link,
		Title:           found.title,
		CallDate:        ParseCallDate(found.date, now),
	}
	if found.hasDuration {
		meta.CallDuration = domain.FormatDuration(found.duration)
	}
	return meta.WithDefaults(requestURL, now)
}

// fromDataBlob reads and parses the data attribute on the root node.
func (m *MetadataExtractor) fromDataBlob(ctx context.Context, page browser.Page, log logrus.FieldLogger) (rawCall, bool) {
	qctx, cancel := boundedContext(ctx, m.query)
	defer cancel()

	raw, ok, err := page.Attribute(qctx, m.rootSelector, m.attribute)
	if err != nil {
		log.WithError(err).Debug("Data blob read failed")
		return rawCall{}, false
	}
	if !ok || strings.TrimSpace(raw) == "" {
		log.Debug("No data blob on page")
		return rawCall{}, false
	}

	root, err := parseBlob(raw)
	if err != nil {
		log.WithError(err).Warn("Data blob is not valid JSON after sanitizing")
		return rawCall{}, false
	}
	c, err := resolveBlob(root)
	if err != nil {
		log.WithError(err).Debug("Data blob has no call record")
		return rawCall{}, false
	}
	log.Debug("Metadata found in data blob")
	return c, true
}

func (m *MetadataExtractor) snapshot(ctx context.Context, page browser.Page) (*goquery.Document, error) {
	qctx, cancel := boundedContext(ctx, m.query)
	defer cancel()

	html, err := page.HTML(qctx)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// fromScripts scans inline scripts in document order.
func fromScripts(ctx context.Context, doc *goquery.Document) (rawCall, bool) {
	var (
		found rawCall
		ok    bool
	)
	doc.Find("script:not([src])").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found, ok = scanScript(ctx, s.Text())
		return !ok && ctx.Err() == nil
	})
	return found, ok
}

// fromDOM derives what it can from visible page text.
func fromDOM(doc *goquery.Document) rawCall {
	var c rawCall

	for _, sel := range []string{"h1", "h2", "title"} {
		if t := firstText(doc.Find(sel)); t != "" {
			c.title = t
			break
		}
	}

	doc.Find("time[datetime]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		c.date = strings.TrimSpace(s.AttrOr("datetime", ""))
		return c.date == ""
	})

	var names []string
	doc.Find(participantSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		// Only innermost matches carry a single name.
		if s.Find(participantSelector).Length() > 0 {
			return true
		}
		name := collapseSpace(s.Text())
		if name == "" {
			return true
		}
		for _, n := range names {
			if n == name {
				return true
			}
		}
		names = append(names, name)
		return len(names) < 2
	})
	if len(names) > 0 {
		c.salesperson = names[0]
	}
	if len(names) > 1 {
		c.prospect = names[1]
	}

	doc.Find(durationSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if secs := ParseClockDuration(findClock(s.Text())); secs > 0 {
			c.duration, c.hasDuration = secs, true
			return false
		}
		return true
	})

	if c.date == "" {
		body := doc.Find("body").Clone()
		body.Find("script, style, noscript").Remove()
		c.date = FindDateText(collapseSpace(body.Text()))
	}
	return c
}

func firstText(sel *goquery.Selection) string {
	var out string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		out = collapseSpace(s.Text())
		return out == ""
	})
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
