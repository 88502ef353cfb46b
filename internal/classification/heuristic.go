package classification

import (
	"fmt"
	"strings"

	"github.com/nicolad/nomadically.work/internal/signals"
)

// Heuristic classifies a job from the signal tables alone. It is the offline
// fallback when no generator is configured and mirrors the ordering of the
// model instructions: work mode first, then region locks, then EU evidence.
func Heuristic(job Job) Record {
	blob := signals.Blob(job.Title, job.Location, job.Description)

	switch signals.WorkMode(blob) {
	case signals.ModeHybrid, signals.ModeOnsite:
		return Record{
			IsRemoteEU: false,
			Confidence: ConfidenceHigh,
			Reason:     reason("not fully remote", signals.HybridOrOnsite.Match(blob)),
		}
	case signals.ModeUnknown:
		return Record{IsRemoteEU: false, Confidence: ConfidenceLow, Reason: "no remote wording found"}
	}

	if locks := signals.RegionLock.Match(blob); len(locks) > 0 {
		return Record{
			IsRemoteEU: false,
			Confidence: ConfidenceHigh,
			Reason:     reason("remote but restricted to a non-EU region", locks),
		}
	}

	europe := signals.EuropeSignals.Match(blob)
	has := make(map[string]bool, len(europe))
	for _, name := range europe {
		has[name] = true
	}

	switch {
	case has["eu_abbreviation"] || has["european_country"]:
		return Record{IsRemoteEU: true, Confidence: ConfidenceHigh, Reason: reason("remote with explicit EU scope", europe)}
	case has["europe_region"]:
		return Record{IsRemoteEU: true, Confidence: ConfidenceMedium, Reason: reason("remote across a region that includes the EU", europe)}
	}

	if worldwide := signals.WorldwideSignals.Match(blob); len(worldwide) > 0 {
		return Record{IsRemoteEU: true, Confidence: ConfidenceMedium, Reason: reason("remote worldwide", worldwide)}
	}

	if has["european_city"] {
		return Record{IsRemoteEU: true, Confidence: ConfidenceLow, Reason: reason("remote with a European location", europe)}
	}

	if len(europe) > 0 {
		return Record{IsRemoteEU: false, Confidence: ConfidenceLow, Reason: reason("timezone only", europe)}
	}

	return Record{IsRemoteEU: false, Confidence: ConfidenceLow, Reason: "remote without a stated region"}
}

func reason(summary string, rules []string) string {
	if len(rules) == 0 {
		return summary
	}
	return fmt.Sprintf("%s (%s)", summary, strings.Join(rules, ", "))
}
