package extract

import (
	"context"

	"callscribe/internal/browser"
)

// StrategyResult is either Found with at least one line, or Empty.
type StrategyResult struct {
	lines []string
}

// Found wraps harvested lines. An empty slice is the same as Empty.
func Found(lines []string) StrategyResult {
	return StrategyResult{lines: lines}
}

// Empty means the strategy produced nothing usable.
func Empty() StrategyResult {
	return StrategyResult{}
}

// IsFound reports whether the strategy produced lines.
func (r StrategyResult) IsFound() bool {
	return len(r.lines) > 0
}

// Lines returns the harvested lines, nil when Empty.
func (r StrategyResult) Lines() []string {
	return r.lines
}

// Strategy is one way of harvesting transcript text from the page.
type Strategy struct {
	Name    string
	Harvest func(ctx context.Context, page browser.Page) ([]string, error)
}

// Run harvests and cleans. A harvest error is returned only alongside Empty;
// partial reads that still produce lines count as Found.
func (s Strategy) Run(ctx context.Context, page browser.Page) (StrategyResult, error) {
	raw, err := s.Harvest(ctx, page)
	lines := CleanLines(raw)
	if len(lines) == 0 {
		return Empty(), err
	}
	return Found(lines), nil
}

// selectorStrategy reads the text of every element matching selector.
func selectorStrategy(name, selector string) Strategy {
	return Strategy{
		Name: name,
		Harvest: func(ctx context.Context, page browser.Page) ([]string, error) {
			return page.Texts(ctx, selector)
		},
	}
}

// textNodeStrategy walks every text node below root.
func textNodeStrategy(root string) Strategy {
	return Strategy{
		Name: "text-nodes",
		Harvest: func(ctx context.Context, page browser.Page) ([]string, error) {
			return page.TextNodes(ctx, root)
		},
	}
}

// DefaultStrategies returns the cascade for a transcript container, most
// specific first, ending with the generic text-node walk.
func DefaultStrategies(container string) []Strategy {
	return []Strategy{
		selectorStrategy("transcript-line", container+` [class*="transcript-line"]`),
		selectorStrategy("transcript-text", container+` [class*="transcript-text"]`),
		selectorStrategy("testid", container+` [data-testid*="transcript"]`),
		selectorStrategy("leaf-divs", container+` div:not(:has(div))`),
		textNodeStrategy(container),
	}
}
