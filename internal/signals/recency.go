package signals

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MaxAgeHours bounds every age derived from text or timestamps.
const MaxAgeHours = 168.0

var (
	hoursAgoPattern   = regexp.MustCompile(`(?i)\b(\d{1,4})\s*(hours?|hrs?|h)\s+ago\b`)
	minutesAgoPattern = regexp.MustCompile(`(?i)\b(\d{1,5})\s*(minutes?|mins?|m)\s+ago\b`)
	daysAgoPattern    = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(days?|d)\s+ago\b`)
	justNowPattern    = regexp.MustCompile(`(?i)\b(just\s+(now|posted)|moments?\s+ago)\b`)
)

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func clampAge(h float64) float64 {
	return math.Min(math.Max(h, 0), MaxAgeHours)
}

// AgeHours resolves how old a posting is. An explicit hours value wins, then
// a relative phrase in text ("3 hours ago"), then an ISO timestamp measured
// against now. The second result is false when no source yields an age.
func AgeHours(hoursAgo *float64, text, postedAt string, now time.Time) (float64, bool) {
	if hoursAgo != nil && !math.IsNaN(*hoursAgo) && !math.IsInf(*hoursAgo, 0) {
		return math.Max(*hoursAgo, 0), true
	}
	if h, ok := parseRelativeAge(text); ok {
		return clampAge(h), true
	}
	if t, ok := parseTimestamp(postedAt); ok {
		return clampAge(now.Sub(t).Hours()), true
	}
	return 0, false
}

func parseRelativeAge(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	if m := hoursAgoPattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		return n, err == nil
	}
	// Minutes count as brand new.
	if minutesAgoPattern.MatchString(text) {
		return 0, true
	}
	if m := daysAgoPattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		return n * 24, err == nil
	}
	if justNowPattern.MatchString(text) {
		return 0, true
	}
	return 0, false
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
