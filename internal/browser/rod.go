package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/sirupsen/logrus"
	"github.com/ysmood/gson"
)

// textNodesJS walks every text node below the root in document order.
const textNodesJS = `(sel) => {
	const root = document.querySelector(sel);
	if (!root) return [];
	const walker = document.createTreeWalker(root, NodeFilter.SHOW_TEXT);
	const out = [];
	let node;
	while ((node = walker.nextNode())) {
		out.push(node.nodeValue || "");
	}
	return out;
}`

// RodLauncher launches one Chromium process per session using rod.
type RodLauncher struct {
	opts Options
	log  logrus.FieldLogger
}

// NewRodLauncher creates a launcher. Nothing is started until Acquire.
func NewRodLauncher(opts Options, logger logrus.FieldLogger) *RodLauncher {
	return &RodLauncher{
		opts: opts,
		log:  logger.WithField("component", "browser"),
	}
}

// Acquire launches a browser, opens an incognito context and a page inside it.
// On any failure everything created so far is torn down before returning.
func (l *RodLauncher) Acquire(ctx context.Context) (sess Session, err error) {
	bin := l.opts.Bin
	if bin == "" {
		path, exists := launcher.LookPath()
		if !exists {
			l.log.Error("Cannot find browser executable for rod")
			return nil, errors.New("browser executable not found")
		}
		bin = path
	}

	ln := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(l.opts.Headless).
		NoSandbox(l.opts.NoSandbox)

	// Low-memory, non-interactive profile.
	ln.Set(flags.Flag("disable-dev-shm-usage"))
	ln.Set(flags.Flag("disable-gpu"))
	ln.Set(flags.Flag("no-first-run"))
	ln.Set(flags.Flag("disable-extensions"))
	ln.Set(flags.Flag("disable-background-networking"))
	ln.Set(flags.Flag("disable-default-apps"))
	ln.Set(flags.Flag("disable-sync"))
	ln.Set(flags.Flag("mute-audio"))
	ln.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	ln.Delete(flags.Flag("enable-automation"))

	s := &rodSession{launcher: ln, log: l.log}
	defer func() {
		if err != nil {
			if closeErr := s.Close(); closeErr != nil {
				l.log.WithError(closeErr).Warn("Error cleaning up partially acquired session")
			}
		}
	}()

	controlURL, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	s.launched = true
	l.log.WithField("control_url", controlURL).Debug("Browser launched")

	b := rod.New().ControlURL(controlURL).NoDefaultDevice().Context(ctx)
	if err = b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	s.browser = b

	incognito, err := b.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create browsing context: %w", err)
	}
	s.incognito = incognito

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	s.page = page

	if err = l.preparePage(page); err != nil {
		return nil, err
	}

	s.wrapped = &rodPage{page: page, readTimeout: l.opts.ReadTimeout}
	return s, nil
}

func (l *RodLauncher) preparePage(page *rod.Page) error {
	if l.opts.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			l.log.WithError(err).Warn("Stealth injection failed, proceeding without stealth")
		}
	}

	ua := l.opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: "en-US,en;q=0.9",
	}); err != nil {
		return fmt.Errorf("failed to set user agent: %w", err)
	}

	if l.opts.ViewportWidth > 0 && l.opts.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             l.opts.ViewportWidth,
			Height:            l.opts.ViewportHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			return fmt.Errorf("failed to set viewport: %w", err)
		}
	}
	return nil
}

type rodSession struct {
	launcher  *launcher.Launcher
	launched  bool
	browser   *rod.Browser
	incognito *rod.Browser
	page      *rod.Page
	wrapped   *rodPage
	log       logrus.FieldLogger
}

func (s *rodSession) Page() Page { return s.wrapped }

// Close tears the session down in reverse order of creation. Every step is
// attempted even when an earlier one fails; the errors are joined.
func (s *rodSession) Close() error {
	var errs []error
	bg := context.Background()

	if s.page != nil {
		if err := s.page.Context(bg).Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if s.incognito != nil {
		if err := s.incognito.Context(bg).Close(); err != nil {
			errs = append(errs, fmt.Errorf("dispose browsing context: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Context(bg).Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.launched {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	return errors.Join(errs...)
}

type rodPage struct {
	page        *rod.Page
	readTimeout time.Duration
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	// The lifecycle listener lives until its context ends, so cancel it when
	// Navigate fails and wait is never called.
	navCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	page := p.page.Context(navCtx)
	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := page.Navigate(url); err != nil {
		return err
	}
	wait()
	return ctx.Err()
}

func (p *rodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *rodPage) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := p.page.Context(ctx).Has(selector)
	return has, err
}

func (p *rodPage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	has, el, err := p.page.Context(ctx).Has(selector)
	if err != nil || !has {
		return "", false, err
	}
	val, err := el.Attribute(name)
	if err != nil || val == nil {
		return "", false, err
	}
	return *val, true, nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) WaitAttached(ctx context.Context, selector string) error {
	_, err := p.page.Context(ctx).Element(selector)
	return err
}

func (p *rodPage) ClickFirst(ctx context.Context, selector, textPattern string) (bool, error) {
	page := p.page.Context(ctx)

	var (
		has bool
		el  *rod.Element
		err error
	)
	if textPattern == "" {
		has, el, err = page.Has(selector)
	} else {
		has, el, err = page.HasR(selector, textPattern)
	}
	if err != nil || !has {
		return false, err
	}

	el = el.Timeout(p.readTimeout)
	defer el.CancelTimeout()

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		// Hidden or covered controls cannot receive a real mouse click.
		if _, jsErr := el.Eval(`() => this.click()`); jsErr != nil {
			return true, errors.Join(err, jsErr)
		}
	}
	return true, nil
}

func (p *rodPage) Texts(ctx context.Context, selector string) ([]string, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(els))
	var lastErr error
	for _, el := range els {
		if ctx.Err() != nil {
			return texts, ctx.Err()
		}
		txt, err := p.readText(el.Context(ctx))
		if err != nil {
			lastErr = err
			continue
		}
		texts = append(texts, txt)
	}
	if len(texts) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return texts, nil
}

// readText prefers the rendered text and falls back to raw textContent for
// elements that are not laid out (virtualized or off-screen).
func (p *rodPage) readText(el *rod.Element) (string, error) {
	if p.readTimeout > 0 {
		el = el.Timeout(p.readTimeout)
		defer el.CancelTimeout()
	}

	if visible, err := el.Visible(); err == nil && visible {
		if txt, err := el.Text(); err == nil {
			return txt, nil
		}
	}

	prop, err := el.Property("textContent")
	if err != nil {
		return "", err
	}
	if prop.Nil() {
		return "", nil
	}
	return prop.Str(), nil
}

func (p *rodPage) TextNodes(ctx context.Context, rootSelector string) ([]string, error) {
	res, err := p.page.Context(ctx).Eval(textNodesJS, rootSelector)
	if err != nil {
		return nil, err
	}
	return jsonStrings(res.Value), nil
}

// jsonStrings converts a JSON array into its string elements, skipping nulls.
func jsonStrings(v gson.JSON) []string {
	arr := v.Arr()
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if item.Nil() {
			continue
		}
		out = append(out, item.Str())
	}
	return out
}
