package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanLines(t *testing.T) {
	in := []string{"Hello", "", "  ", "[00:01]", "Hello", "resume auto-scroll", "World"}
	assert.Equal(t, []string{"Hello", "World"}, CleanLines(in))
}

func TestCleanLines_TrimsAndDropsChrome(t *testing.T) {
	in := []string{
		"  Alice: hi there  ",
		"Resume Auto-Scroll",
		"Copy transcript",
		"[Speaker 1]",
		"Bob: hello",
		"Alice: hi there",
		"auto-scroll is great",
	}
	assert.Equal(t, []string{"Alice: hi there", "Bob: hello", "auto-scroll is great"}, CleanLines(in))
}

func TestCleanLines_DedupIsGlobal(t *testing.T) {
	in := []string{"a", "b", "a", "c", "b"}
	assert.Equal(t, []string{"a", "b", "c"}, CleanLines(in))
}

func TestCleanLines_Empty(t *testing.T) {
	assert.Empty(t, CleanLines(nil))
	assert.Empty(t, CleanLines([]string{"", " ", "[x]", "hide transcript"}))
}
