package extract

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ysmood/gson"
)

// Markers an inline script must contain before it is scanned for call data.
const (
	callMarker  = `"call"`
	videoMarker = `"video_url"`
)

// maxScanCandidates caps how many candidate objects a single script is parsed for.
const maxScanCandidates = 256

var errNoCallRecord = errors.New("no call record in blob")

// rawCall is what one metadata tier managed to find. Empty strings and a
// false hasDuration mean not found.
type rawCall struct {
	title       string
	date        string
	salesperson string
	prospect    string
	link        string
	duration    int
	hasDuration bool
}

// fill copies the fields of other into the blanks of c.
func (c *rawCall) fill(other rawCall) {
	if c.title == "" {
		c.title = other.title
	}
	if c.date == "" {
		c.date = other.date
	}
	if c.salesperson == "" {
		c.salesperson = other.salesperson
	}
	if c.prospect == "" {
		c.prospect = other.prospect
	}
	if c.link == "" {
		c.link = other.link
	}
	if !c.hasDuration && other.hasDuration {
		c.duration = other.duration
		c.hasDuration = true
	}
}

func (c rawCall) complete() bool {
	return c.title != "" && c.date != "" && c.salesperson != "" &&
		c.prospect != "" && c.link != "" && c.hasDuration
}

// SanitizeJSON removes every rune below U+0020. Raw control characters are
// never valid inside JSON strings and pages embed them unescaped.
func SanitizeJSON(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
}

// parseBlob sanitizes and parses a JSON document.
func parseBlob(s string) (gson.JSON, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(SanitizeJSON(s)), &v); err != nil {
		return gson.New(nil), err
	}
	return gson.New(v), nil
}

// callRecord locates the call object inside a parsed blob. A blob that is
// itself a call (it carries a non-empty video_url) is returned as is.
func callRecord(root gson.JSON) (gson.JSON, bool) {
	for _, p := range []string{"props.call", "call"} {
		if v, ok := root.Gets(gson.Path(p)...); ok && len(v.Map()) > 0 {
			return v, true
		}
	}
	if firstString(root, "video_url") != "" {
		return root, true
	}
	return gson.New(nil), false
}

// resolveBlob reads the known key paths out of a parsed blob.
func resolveBlob(root gson.JSON) (rawCall, error) {
	call, ok := callRecord(root)
	if !ok {
		return rawCall{}, errNoCallRecord
	}

	var c rawCall
	c.title = firstString(call, "title", "name")
	c.date = firstDate(call, "started_at", "created_at", "date")
	c.salesperson = firstString(call, "host.name", "recorded_by.name", "host_name")
	c.prospect = prospectName(call, c.salesperson)
	c.link = firstString(call, "video_url", "share_url", "url")

	for _, d := range []struct {
		node gson.JSON
		path string
	}{
		{root, "props.duration"},
		{call, "duration"},
		{call, "duration_seconds"},
	} {
		if secs, ok := durationValue(d.node, d.path); ok {
			c.duration, c.hasDuration = secs, true
			break
		}
	}
	if c == (rawCall{}) {
		return rawCall{}, errNoCallRecord
	}
	return c, nil
}

// firstString returns the first non-blank string found at any of paths.
func firstString(j gson.JSON, paths ...string) string {
	for _, p := range paths {
		v, ok := j.Gets(gson.Path(p)...)
		if !ok {
			continue
		}
		if s, isStr := v.Val().(string); isStr && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// firstDate is firstString that also accepts unix timestamps in seconds or milliseconds.
func firstDate(j gson.JSON, paths ...string) string {
	for _, p := range paths {
		v, ok := j.Gets(gson.Path(p)...)
		if !ok {
			continue
		}
		switch val := v.Val().(type) {
		case string:
			if strings.TrimSpace(val) != "" {
				return strings.TrimSpace(val)
			}
		case float64:
			if val <= 0 {
				continue
			}
			ts := int64(val)
			if ts > 1e12 {
				return time.UnixMilli(ts).UTC().Format(time.RFC3339)
			}
			return time.Unix(ts, 0).UTC().Format(time.RFC3339)
		}
	}
	return ""
}

// prospectName picks the first listed participant who is not the host,
// falling back to an explicit prospect_name.
func prospectName(call gson.JSON, host string) string {
	for _, key := range []string{"invitees", "attendees", "participants"} {
		for _, p := range call.Get(key).Arr() {
			name := ""
			if s, ok := p.Val().(string); ok {
				name = strings.TrimSpace(s)
			} else {
				name = firstString(p, "name", "display_name", "email")
			}
			if name != "" && !strings.EqualFold(name, host) {
				return name
			}
		}
	}
	return firstString(call, "prospect_name")
}

// durationValue reads a duration given as seconds or as a clock string.
func durationValue(j gson.JSON, path string) (int, bool) {
	v, ok := j.Gets(gson.Path(path)...)
	if !ok {
		return 0, false
	}
	switch val := v.Val().(type) {
	case float64:
		if val < 0 {
			return 0, false
		}
		return int(val), true
	case string:
		s := strings.TrimSpace(val)
		if secs := ParseClockDuration(s); secs > 0 {
			return secs, true
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil && n >= 0 {
			return int(n), true
		}
	}
	return 0, false
}

// scanScript finds the first balanced JSON object in body that parses and
// carries a call record. body must contain both markers to be considered.
// Only objects that contain the video marker are parsed, at most
// maxScanCandidates of them.
func scanScript(ctx context.Context, body string) (rawCall, bool) {
	if !strings.Contains(body, callMarker) || !strings.Contains(body, videoMarker) {
		return rawCall{}, false
	}

	markers := markerOffsets(body, videoMarker)
	ends := matchBraces(body)

	tried := 0
	for i := 0; i < len(body) && tried < maxScanCandidates; i++ {
		end, ok := ends[i]
		if !ok {
			continue
		}
		// First marker at or after i must close before the object does.
		k := sort.SearchInts(markers, i)
		if k == len(markers) || markers[k]+len(videoMarker) > end {
			continue
		}
		if ctx.Err() != nil {
			return rawCall{}, false
		}
		tried++
		root, err := parseBlob(body[i : end+1])
		if err != nil {
			continue
		}
		if c, err := resolveBlob(root); err == nil {
			return c, true
		}
	}
	return rawCall{}, false
}

// markerOffsets returns the start of every occurrence of marker in s.
func markerOffsets(s, marker string) []int {
	var out []int
	for from := 0; ; {
		j := strings.Index(s[from:], marker)
		if j < 0 {
			return out
		}
		out = append(out, from+j)
		from += j + len(marker)
	}
}

// matchBraces pairs every '{' in s with its closing '}' in one pass. Braces
// inside single, double or backtick quoted literals are ignored. Unclosed
// braces have no entry.
func matchBraces(s string) map[int]int {
	ends := make(map[int]int)
	var (
		open    []int
		quote   byte
		escaped bool
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == quote:
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'', '`':
			quote = ch
		case '{':
			open = append(open, i)
		case '}':
			if len(open) > 0 {
				ends[open[len(open)-1]] = i
				open = open[:len(open)-1]
			}
		}
	}
	return ends
}
