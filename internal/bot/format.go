package bot

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"callscribe/internal/domain"
)

// maxMessageLen is Telegram's limit for one text message.
const maxMessageLen = 4096

const welcomeMessage = "Welcome to callscribe! Send me a call recording link and I'll reply with " +
	"the call details and the full transcript.\n\nCommands:\n/history - your recent extractions"

var urlRe = regexp.MustCompile(`https?://[^\s<>"]+`)

// findURLs returns the http(s) links in text in order, without trailing punctuation.
func findURLs(text string) []string {
	matches := urlRe.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?)]}'")
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// formatResult renders a result as a chat message.
func formatResult(res domain.ExtractionResult) string {
	if !res.OK() {
		return "Extraction failed: " + res.Error
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", res.Title)
	fmt.Fprintf(&sb, "Date: %s\n", res.CallDate)
	fmt.Fprintf(&sb, "Salesperson: %s\n", res.SalespersonName)
	fmt.Fprintf(&sb, "Prospect: %s\n", res.ProspectName)
	fmt.Fprintf(&sb, "Duration: %s\n", res.CallDuration)
	fmt.Fprintf(&sb, "Link: %s\n\n", res.TranscriptLink)
	sb.WriteString(res.Transcript)
	return sb.String()
}

// formatRuns renders run history, newest first.
func formatRuns(runs []domain.RunRecord) string {
	if len(runs) == 0 {
		return "No extractions yet. Send me a link to get started."
	}
	var sb strings.Builder
	sb.WriteString("Your recent extractions:\n")
	for i, r := range runs {
		fmt.Fprintf(&sb, "\n%d. %s\n   %s, %s, %d attempt(s)",
			i+1, r.URL, r.StartedAt.Format("2006-01-02 15:04"), r.Status, r.Attempts)
		if r.Error != "" {
			fmt.Fprintf(&sb, "\n   %s", r.Error)
		}
	}
	return sb.String()
}

// splitMessage cuts text into chunks of at most limit runes, preferring to
// break after a newline. Chunks are never empty.
func splitMessage(text string, limit int) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	for utf8.RuneCountInString(text) > limit {
		cut := byteOffset(text, limit)
		if nl := strings.LastIndexByte(text[:cut], '\n'); nl > 0 {
			cut = nl + 1
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// byteOffset returns the byte index just after the first n runes of s.
func byteOffset(s string, n int) int {
	i := 0
	for count := 0; count < n && i < len(s); count++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}
