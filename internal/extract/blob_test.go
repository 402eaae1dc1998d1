package extract

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeJSON(t *testing.T) {
	assert.Equal(t, `{"a":"bc"}`, SanitizeJSON("{\"a\":\"b\x01c\"}\n"))
	assert.Equal(t, "tab é ✓", SanitizeJSON("tab\t é ✓"))
	assert.Equal(t, " ~", SanitizeJSON(" ~"), "space and printable ASCII are kept")
}

func TestParseBlob_ControlCharacters(t *testing.T) {
	dirty := "{\"props\":{\"call\":{\"title\":\"Weekly\x0b sync\",\x0a\"video_url\":\"https://x.test/v\x07\"}}}"

	_, err := parseBlob(dirty)
	require.NoError(t, err)

	var direct interface{}
	assert.Error(t, json.Unmarshal([]byte(dirty), &direct), "raw blob must not parse without sanitizing")
}

func TestResolveBlob_RoundTrip(t *testing.T) {
	blob := map[string]interface{}{
		"props": map[string]interface{}{
			"duration": 754,
			"call": map[string]interface{}{
				"title":      "Discovery call",
				"started_at": "2024-03-05T17:00:00Z",
				"host":       map[string]interface{}{"name": "Alice Seller"},
				"invitees": []interface{}{
					map[string]interface{}{"name": "Alice Seller"},
					map[string]interface{}{"name": "Bob Buyer"},
				},
				"video_url": "https://fathom.video/calls/42",
			},
		},
	}
	raw, err := json.Marshal(blob)
	require.NoError(t, err)

	root, err := parseBlob(string(raw))
	require.NoError(t, err)
	c, err := resolveBlob(root)
	require.NoError(t, err)

	assert.Equal(t, "Discovery call", c.title)
	assert.Equal(t, "2024-03-05T17:00:00Z", c.date)
	assert.Equal(t, "Alice Seller", c.salesperson)
	assert.Equal(t, "Bob Buyer", c.prospect)
	assert.Equal(t, "https://fathom.video/calls/42", c.link)
	assert.True(t, c.hasDuration)
	assert.Equal(t, 754, c.duration)
}

func TestResolveBlob_AlternateKeys(t *testing.T) {
	root, err := parseBlob(`{"call":{
		"name":"Demo",
		"created_at":1709658000,
		"recorded_by":{"name":"Carol"},
		"attendees":["Carol","Dan"],
		"share_url":"https://x.test/s/1",
		"duration":"1:02:03"
	}}`)
	require.NoError(t, err)
	c, err := resolveBlob(root)
	require.NoError(t, err)

	assert.Equal(t, "Demo", c.title)
	assert.Equal(t, "2024-03-05", ParseCallDate(c.date, fixedNow))
	assert.Equal(t, "Carol", c.salesperson)
	assert.Equal(t, "Dan", c.prospect)
	assert.Equal(t, "https://x.test/s/1", c.link)
	assert.Equal(t, 3723, c.duration)
}

func TestResolveBlob_ProspectNameFallback(t *testing.T) {
	root, err := parseBlob(`{"call":{"host_name":"Eve","invitees":[{"name":"eve"}],"prospect_name":"Frank","duration_seconds":"95"}}`)
	require.NoError(t, err)
	c, err := resolveBlob(root)
	require.NoError(t, err)

	assert.Equal(t, "Eve", c.salesperson)
	assert.Equal(t, "Frank", c.prospect)
	assert.Equal(t, 95, c.duration)
}

func TestResolveBlob_NoCall(t *testing.T) {
	root, err := parseBlob(`{"props":{"user":{"name":"x"}}}`)
	require.NoError(t, err)
	_, err = resolveBlob(root)
	assert.ErrorIs(t, err, errNoCallRecord)
}

func TestScanScript(t *testing.T) {
	body := `window.__cfg = {"theme": "dark"};
window.__broken = {"call": {"video_url": "https://x.test/a", };
window.__data = {"call": {"title": "From script {braces}", "video_url": "https://x.test/b"}};`

	c, ok := scanScript(context.Background(), body)
	require.True(t, ok)
	assert.Equal(t, "From script {braces}", c.title)
	assert.Equal(t, "https://x.test/b", c.link)
}

func TestScanScript_RequiresMarkers(t *testing.T) {
	_, ok := scanScript(context.Background(), `var x = {"call": {"title": "no link"}};`)
	assert.False(t, ok)
}

func TestScanScript_SkipsEmptyVideoURL(t *testing.T) {
	body := `window.player = {"video_url": ""};
window.page = {"call": {"title": "Real", "host_name": "Ann", "video_url": "https://x.test/real"}};`

	c, ok := scanScript(context.Background(), body)
	require.True(t, ok)
	assert.Equal(t, "Real", c.title)
	assert.Equal(t, "Ann", c.salesperson)
	assert.Equal(t, "https://x.test/real", c.link)
}

func TestScanScript_UnbalancedBracesStayLinear(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`/* "call" "video_url" */`)
	for i := 0; i < 100000; i++ {
		sb.WriteString(`x='{';y=/{/;`)
	}
	sb.WriteString(`window.d = {"call": {"title": "Late", "video_url": "https://x.test/late"}};`)

	start := time.Now()
	c, ok := scanScript(context.Background(), sb.String())

	assert.Less(t, time.Since(start), 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "Late", c.title)
}

func TestScanScript_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := scanScript(ctx, `window.d = {"call": {"title": "T", "video_url": "https://x.test/v"}};`)
	assert.False(t, ok)
}

func TestResolveBlob_EmptyRecordIsNotACall(t *testing.T) {
	for _, blob := range []string{
		`{"video_url": ""}`,
		`{"video_url": null, "other": 1}`,
		`{"call": {"title": "", "video_url": ""}}`,
	} {
		root, err := parseBlob(blob)
		require.NoError(t, err, blob)
		_, err = resolveBlob(root)
		assert.ErrorIs(t, err, errNoCallRecord, blob)
	}
}

func TestMatchBraces(t *testing.T) {
	s := `x = {"a": "}", 'b': {"c": "\"}", d: '{'}} {open`
	ends := matchBraces(s)

	end, ok := ends[4]
	require.True(t, ok)
	assert.Equal(t, `{"a": "}", 'b': {"c": "\"}", d: '{'}}`, s[4:end+1])

	_, ok = ends[strings.LastIndex(s, "{")]
	assert.False(t, ok, "unclosed brace has no end")
}
