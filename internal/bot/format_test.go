package bot

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callscribe/internal/domain"
)

func TestFindURLs(t *testing.T) {
	got := findURLs("see https://fathom.video/share/abc, and (http://x.test/b).")
	assert.Equal(t, []string{"https://fathom.video/share/abc", "http://x.test/b"}, got)
	assert.Empty(t, findURLs("no links here"))
	assert.Empty(t, findURLs("ftp://x.test/file"))
}

func TestFormatResult(t *testing.T) {
	meta := domain.CallMetadata{
		CallDate:        "2024-03-05",
		SalespersonName: "Ann",
		ProspectName:    "Ben",
		CallDuration:    "1 minutes 5 seconds",
		TranscriptLink:  "https://x.test/c",
		Title:           "Kickoff",
	}
	msg := formatResult(domain.Succeeded(meta, "Ann: hi"))
	assert.True(t, strings.HasPrefix(msg, "Kickoff\n"))
	assert.Contains(t, msg, "Prospect: Ben")
	assert.True(t, strings.HasSuffix(msg, "\n\nAnn: hi"))

	assert.Equal(t, "Extraction failed: boom", formatResult(domain.Failed(errors.New("boom"))))
}

func TestFormatRuns(t *testing.T) {
	assert.Contains(t, formatRuns(nil), "No extractions yet")

	started := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	msg := formatRuns([]domain.RunRecord{
		{URL: "https://x.test/a", Status: domain.RunSucceeded, Attempts: 1, StartedAt: started},
		{URL: "https://x.test/b", Status: domain.RunFailed, Attempts: 3, StartedAt: started, Error: "navigate: timeout"},
	})
	assert.Contains(t, msg, "1. https://x.test/a\n   2024-03-05 09:30, succeeded, 1 attempt(s)")
	assert.Contains(t, msg, "2. https://x.test/b")
	assert.Contains(t, msg, "navigate: timeout")
}

func TestSplitMessage(t *testing.T) {
	assert.Nil(t, splitMessage("", 10))
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	// Prefers newline boundaries.
	assert.Equal(t, []string{"aaaa\n", "bbbb\n", "cc"}, splitMessage("aaaa\nbbbb\ncc", 6))

	// Hard cut when a line is longer than the limit.
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, splitMessage("abcdefghij", 4))
}

func TestSplitMessage_TelegramLimit(t *testing.T) {
	line := strings.Repeat("é", 99) + "\n"
	text := strings.Repeat(line, 100) // 10000 runes

	chunks := splitMessage(text, maxMessageLen)

	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), maxMessageLen)
		assert.True(t, utf8.ValidString(c))
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}
