package extract

import "strings"

// uiChrome holds control labels that render inside the transcript pane.
// Matched case-insensitively against whole trimmed lines.
var uiChrome = map[string]struct{}{
	"resume auto-scroll": {},
	"auto-scroll":        {},
	"copy transcript":    {},
	"show transcript":    {},
	"hide transcript":    {},
}

// CleanLines trims candidates and drops empty lines, "[" markers, UI chrome
// and any line already kept earlier. Order is preserved.
func CleanLines(candidates []string) []string {
	seen := make(map[string]struct{}, len(candidates))
	lines := make([]string, 0, len(candidates))
	for _, c := range candidates {
		line := strings.TrimSpace(c)
		if line == "" || strings.HasPrefix(line, "[") {
			continue
		}
		if _, chrome := uiChrome[strings.ToLower(line)]; chrome {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		lines = append(lines, line)
	}
	return lines
}
