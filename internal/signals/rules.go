// Package signals contains the stateless text checks used to judge remote
// eligibility, region and freshness of job postings.
//
// Every check is a named Rule inside a Table so that a single phrase can be
// tested, reported in diagnostics and changed without touching the scorers.
package signals

import (
	"regexp"
	"strings"
)

// Signal is the predicate contribution of a rule table.
type Signal string

const (
	SignalRemote     Signal = "remote"
	SignalHybrid     Signal = "hybrid_or_onsite"
	SignalEurope     Signal = "europe"
	SignalWorldwide  Signal = "worldwide"
	SignalRegionLock Signal = "region_lock"
)

// Rule is one named pattern.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Table is an ordered set of rules contributing the same signal.
type Table struct {
	Signal Signal
	Rules  []Rule
}

func rule(name, pattern string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(`(?i)` + pattern)}
}

// Match returns the names of the rules that match blob, in table order.
func (t Table) Match(blob string) []string {
	var names []string
	for _, r := range t.Rules {
		if r.Pattern.MatchString(blob) {
			names = append(names, r.Name)
		}
	}
	return names
}

// Any reports whether at least one rule matches blob.
func (t Table) Any(blob string) bool {
	for _, r := range t.Rules {
		if r.Pattern.MatchString(blob) {
			return true
		}
	}
	return false
}

// Rule returns the named rule.
func (t Table) Rule(name string) (Rule, bool) {
	for _, r := range t.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

const (
	sep               = `\s*[-–—,(/|:]\s*`
	usStateAbbrs      = `al|ak|az|ar|ca|co|ct|de|fl|ga|hi|id|il|in|ia|ks|ky|la|me|md|ma|mi|mn|ms|mo|mt|ne|nv|nh|nj|nm|ny|nc|nd|oh|ok|or|pa|ri|sc|sd|tn|tx|ut|vt|va|wa|wv|wi|wy|dc`
	usStateNames      = `alabama|alaska|arizona|arkansas|california|colorado|connecticut|delaware|florida|hawaii|idaho|illinois|indiana|iowa|kansas|kentucky|louisiana|maine|maryland|massachusetts|michigan|minnesota|mississippi|missouri|montana|nebraska|nevada|new hampshire|new jersey|new mexico|new york|north carolina|north dakota|ohio|oklahoma|oregon|pennsylvania|rhode island|south carolina|south dakota|tennessee|texas|utah|vermont|virginia|washington|west virginia|wisconsin|wyoming`
	europeanCountries = `albania|andorra|austria|belgium|bosnia|bulgaria|croatia|cyprus|czech republic|czechia|denmark|estonia|finland|france|germany|greece|hungary|iceland|ireland|italy|kosovo|latvia|liechtenstein|lithuania|luxembourg|malta|moldova|monaco|montenegro|netherlands|north macedonia|norway|poland|portugal|romania|serbia|slovakia|slovenia|spain|sweden|switzerland|ukraine|united kingdom|england|scotland|wales`
	europeanCities    = `amsterdam|athens|barcelona|berlin|bucharest|budapest|copenhagen|dublin|helsinki|lisbon|london|madrid|milan|munich|oslo|paris|prague|riga|rome|sofia|stockholm|tallinn|vienna|vilnius|warsaw|zagreb|zurich`
	lockedPlaces      = `usa|u\.s\.a|u\.s|united states|america|canada|latam|india|apac|australia|brazil`

	// Bare "us" is also a pronoun, so it only counts in these shapes.
	usOnly   = `\bus[\s-]+only\b|\bus-based\b|\bonly\s+in\s+the\s+us\b`
	usRemote = `\bremote\s*\(\s*us\s*\)|\bremote\s*[-–—]\s*us\b|\(\s*us\s*\)\s*[-–—,]?\s*remote\b|\bus-remote\b`
)

// RemotePositive matches explicit fully-remote wording.
var RemotePositive = Table{
	Signal: SignalRemote,
	Rules: []Rule{
		rule("fully_remote", `\bfully[\s-]+remote\b`),
		rule("hundred_percent_remote", `\b100\s*%\s*remote\b`),
		rule("remote_first", `\bremote[\s-]+first\b`),
		rule("remote_only", `\bremote[\s-]+only\b`),
		rule("distributed", `\bdistributed\b`),
		rule("work_from_home", `\bwork(ing)?\s+from\s+home\b|\bwfh\b`),
		rule("remote_role", `\bremote\s+(position|role|job|opportunity|contract|work)\b`),
		rule("remote_region_label", `\bremote`+sep+`(europe|eu|emea|eea|worldwide|global|anywhere)\b`),
	},
}

// HybridOrOnsite matches wording that rules out a fully remote arrangement.
var HybridOrOnsite = Table{
	Signal: SignalHybrid,
	Rules: []Rule{
		rule("hybrid", `\bhybrid\b`),
		rule("on_site", `\bon[\s-]?site\b`),
		rule("in_office", `\bin[\s-]office\b`),
		rule("office_based", `\boffice[\s-]based\b`),
		rule("days_in_office", `\bdays?\s+(a\s+week\s+|per\s+week\s+)?(in|at)\s+(the|our)\s+office\b`),
		rule("relocation_required", `\brelocation\s+(is\s+)?required\b`),
	},
}

// EuropeSignals matches wording that places a listing in Europe.
var EuropeSignals = Table{
	Signal: SignalEurope,
	Rules: []Rule{
		rule("europe_region", `\b(europe|european|emea|eea|dach|benelux|nordics|cee)\b`),
		rule("eu_abbreviation", `\beu\b`),
		rule("european_country", `\b(`+europeanCountries+`)\b`),
		rule("european_city", `\b(`+europeanCities+`)\b`),
		rule("european_timezone", `\b(cet|cest|eet|eest|wet|bst)\b|\bgmt\b\s*($|[^\s+\-−0-9±])`),
		rule("european_utc_offset", `\b(utc|gmt)\s*(\+|±)\s*0?[0-3](:00)?\b|\b(utc|gmt)\s*-\s*0?1(:00)?\b|\b(utc|gmt)\s*±?\s*0(:00)?\b`),
	},
}

// WorldwideSignals matches wording that opens a listing to any location.
var WorldwideSignals = Table{
	Signal: SignalWorldwide,
	Rules: []Rule{
		rule("worldwide", `\bworld[\s-]?wide\b`),
		rule("global_remote", `\bglobal(ly)?\s+remote\b|\bremote`+sep+`global(ly)?\b|\bremote\s+global(ly)?\b`),
		rule("work_from_anywhere", `\b(work|live|located|based)\s+(from\s+)?anywhere\b|\banywhere\s+in\s+the\s+world\b|\bremote`+sep+`anywhere\b`),
		rule("any_timezone", `\bany\s+time\s*zones?\b`),
		rule("distributed_globally", `\bdistributed\s+across\s+(all\s+)?(time\s*zones|the\s+(world|globe))\b`),
	},
}

// RegionLock matches wording that restricts a listing to one non-European
// country or state. The state rules are coarse: a two-letter
// abbreviation next to "remote" is enough, so "remote, or hybrid" trips them.
var RegionLock = Table{
	Signal: SignalRegionLock,
	Rules: []Rule{
		rule("country_only", `\b(`+lockedPlaces+`|uk|united kingdom)\.?[\s-]+(only|based)\b|\bonly\s+(in\s+)?(the\s+)?(`+lockedPlaces+`|uk|united kingdom)\.?\b|`+usOnly),
		rule("remote_country", `\bremote`+sep+`\(?(`+lockedPlaces+`)\.?\b|\b(`+lockedPlaces+`)\.?`+sep+`remote\b|`+usRemote),
		rule("must_reside", `\bmust\s+(be\s+)?(reside|residing|located|based|live|living)\s+in\s+(the\s+)?(`+lockedPlaces+`|us)\.?\b`),
		rule("us_state_remote", `\bremote`+sep+`(`+usStateAbbrs+`)\b|\b(`+usStateAbbrs+`)`+sep+`remote\b`),
		rule("us_state_name_remote", `\bremote`+sep+`(`+usStateNames+`)\b|\b(`+usStateNames+`)`+sep+`remote\b`),
		rule("us_work_authorization", `\b(authorized|authorised|eligible|legally\s+able|permitted)\s+to\s+work\s+in\s+(the\s+)?(us|u\.s\.|usa|united states)\b|\bgreen\s+card\b|\bus\s+citizens?(hip)?\b|\bw-?2\b|\bsecurity\s+clearance\b`),
	},
}

// Blob joins the non-empty parts with spaces and lower-cases the result.
func Blob(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.ToLower(strings.Join(kept, " "))
}

// Mode is a coarse work arrangement.
type Mode string

const (
	ModeRemote  Mode = "remote"
	ModeHybrid  Mode = "hybrid"
	ModeOnsite  Mode = "onsite"
	ModeUnknown Mode = "unknown"
)

var (
	bareRemote = regexp.MustCompile(`(?i)\bremote\b`)
	bareHybrid = regexp.MustCompile(`(?i)\bhybrid\b`)
)

// WorkMode infers the arrangement from free text. Hybrid or on-site wording
// wins over any remote wording.
func WorkMode(text string) Mode {
	switch {
	case bareHybrid.MatchString(text):
		return ModeHybrid
	case HybridOrOnsite.Any(text):
		return ModeOnsite
	case RemotePositive.Any(text), bareRemote.MatchString(text):
		return ModeRemote
	default:
		return ModeUnknown
	}
}
