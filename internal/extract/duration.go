package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	clockRe     = regexp.MustCompile(`^(?:(\d+):)?(\d{1,3}):(\d{2})$`)
	clockFindRe = regexp.MustCompile(`\b((?:\d+:)?\d{1,3}:\d{2})\b(\s*[AaPp]\.?[Mm]\b)?`)
)

// ParseClockDuration converts "mm:ss" or "hh:mm:ss" to seconds.
// Anything else, including out-of-range fields, yields 0.
func ParseClockDuration(s string) int {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}

	hours := 0
	if m[1] != "" {
		hours, _ = strconv.Atoi(m[1])
	}
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])

	if seconds > 59 || (m[1] != "" && minutes > 59) {
		return 0
	}
	return hours*3600 + minutes*60 + seconds
}

// findClock returns the first clock-shaped substring of s that is not a time
// of day ("10:30 AM"), or "".
func findClock(s string) string {
	for _, m := range clockFindRe.FindAllStringSubmatch(s, -1) {
		if m[2] == "" {
			return m[1]
		}
	}
	return ""
}
