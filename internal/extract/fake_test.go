package extract

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"callscribe/internal/browser"
)

// testLogger only shows errors, like the rest of the test suite.
func testLogger(t *testing.T) logrus.FieldLogger {
	t.Helper()
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.ErrorLevel)
	return l
}

// fakePage is an in-memory browser.Page. Unset fields behave like an empty page.
type fakePage struct {
	mu sync.Mutex

	navigateErr   error
	blockNavigate bool
	finalURL      string

	present   map[string]bool
	attrs     map[string]string // "selector@attr"
	html      string
	attachErr error
	clickable map[string]bool // "selector|pattern"
	texts     map[string][]string
	textErrs  map[string]error
	textNodes []string

	panicOn string

	// hang makes the named operations block until their context ends.
	hang map[string]bool

	calls  []string
	clicks []string
}

func (p *fakePage) record(op string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, op)
	if p.panicOn == op {
		panic("boom in " + op)
	}
}

// stall blocks like an unresponsive browser when op is set to hang.
func (p *fakePage) stall(ctx context.Context, op string) error {
	if !p.hang[op] {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *fakePage) called(op string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.calls {
		if c == op {
			return true
		}
	}
	return false
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.record("Navigate")
	if p.blockNavigate {
		<-ctx.Done()
		return ctx.Err()
	}
	if p.navigateErr != nil {
		return p.navigateErr
	}
	if p.finalURL == "" {
		p.finalURL = url
	}
	return nil
}

func (p *fakePage) URL(ctx context.Context) (string, error) {
	p.record("URL")
	if err := p.stall(ctx, "URL"); err != nil {
		return "", err
	}
	return p.finalURL, nil
}

func (p *fakePage) Has(ctx context.Context, selector string) (bool, error) {
	p.record("Has")
	if err := p.stall(ctx, "Has"); err != nil {
		return false, err
	}
	return p.present[selector], nil
}

func (p *fakePage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	p.record("Attribute")
	if err := p.stall(ctx, "Attribute"); err != nil {
		return "", false, err
	}
	v, ok := p.attrs[selector+"@"+name]
	return v, ok, nil
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	p.record("HTML")
	if err := p.stall(ctx, "HTML"); err != nil {
		return "", err
	}
	if p.html == "" {
		return "<html><body></body></html>", nil
	}
	return p.html, nil
}

func (p *fakePage) WaitAttached(ctx context.Context, _ string) error {
	p.record("WaitAttached")
	if p.attachErr != nil {
		return p.attachErr
	}
	return ctx.Err()
}

func (p *fakePage) ClickFirst(ctx context.Context, selector, textPattern string) (bool, error) {
	p.record("ClickFirst")
	if err := p.stall(ctx, "ClickFirst"); err != nil {
		return false, err
	}
	key := selector + "|" + textPattern
	if !p.clickable[key] {
		return false, nil
	}
	p.mu.Lock()
	p.clicks = append(p.clicks, key)
	p.mu.Unlock()
	return true, nil
}

func (p *fakePage) Texts(ctx context.Context, selector string) ([]string, error) {
	p.record("Texts")
	if err := p.stall(ctx, "Texts"); err != nil {
		return nil, err
	}
	return p.texts[selector], p.textErrs[selector]
}

func (p *fakePage) TextNodes(ctx context.Context, _ string) ([]string, error) {
	p.record("TextNodes")
	if err := p.stall(ctx, "TextNodes"); err != nil {
		return nil, err
	}
	return p.textNodes, nil
}

type fakeSession struct {
	page    *fakePage
	onClose func()
}

func (s *fakeSession) Page() browser.Page { return s.page }

func (s *fakeSession) Close() error {
	s.onClose()
	return nil
}

// fakeLauncher hands out a new page per attempt built by newPage.
type fakeLauncher struct {
	mu         sync.Mutex
	newPage    func(attempt int) *fakePage
	acquireErr error
	acquired   int
	released   int
	pages      []*fakePage
}

func (l *fakeLauncher) Acquire(ctx context.Context) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquired++
	if l.acquireErr != nil {
		return nil, l.acquireErr
	}
	p := l.newPage(l.acquired)
	l.pages = append(l.pages, p)
	return &fakeSession{page: p, onClose: func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}}, nil
}

var errFake = errors.New("fake failure")
