package eval

import (
	"fmt"
	"strings"
	"time"

	"github.com/nicolad/nomadically.work/internal/signals"
)

// FreshHours is the maximum age of a fresh listing.
const FreshHours = 24

// Region is the bucket a listing was curated into.
type Region string

const (
	RegionEurope    Region = "europe"
	RegionWorldwide Region = "worldwide"
)

// Listing is one curated remote job.
type Listing struct {
	Title          string   `json:"title" yaml:"title"`
	Company        string   `json:"company" yaml:"company"`
	LocationText   string   `json:"location_text" yaml:"location_text"`
	SalaryText     string   `json:"salary_text" yaml:"salary_text"`
	SourceURL      string   `json:"source_url" yaml:"source_url"`
	ApplyURL       string   `json:"apply_url" yaml:"apply_url"`
	Evidence       []string `json:"evidence" yaml:"evidence"`
	IsFullyRemote  bool     `json:"is_fully_remote" yaml:"is_fully_remote"`
	RemoteRegion   Region   `json:"remote_region" yaml:"remote_region"`
	PostedHoursAgo *float64 `json:"posted_hours_ago,omitempty" yaml:"posted_hours_ago"`
	PostedAtISO    string   `json:"posted_at_iso,omitempty" yaml:"posted_at_iso"`
}

// Buckets groups listings by curated region.
type Buckets struct {
	Europe    []Listing `json:"europe" yaml:"europe"`
	Worldwide []Listing `json:"worldwide" yaml:"worldwide"`
}

// Len is the number of listings across both buckets.
func (b Buckets) Len() int { return len(b.Europe) + len(b.Worldwide) }

// ListingCheck is the per-listing diagnostic.
type ListingCheck struct {
	Index            int      `json:"index"`
	Bucket           Region   `json:"bucket"`
	Title            string   `json:"title"`
	CanonicalURL     string   `json:"canonical_url"`
	RemotePositive   bool     `json:"remote_positive"`
	RegionConsistent bool     `json:"region_consistent"`
	Fresh            bool     `json:"fresh"`
	AgeHours         *float64 `json:"age_hours,omitempty"`
	RemoteRules      []string `json:"remote_rules,omitempty"`
	HybridRules      []string `json:"hybrid_rules,omitempty"`
	RegionRules      []string `json:"region_rules,omitempty"`
	LockRules        []string `json:"lock_rules,omitempty"`
}

// Passed reports whether every predicate holds.
func (c ListingCheck) Passed() bool {
	return c.RemotePositive && c.RegionConsistent && c.Fresh
}

// Diagnostics explains a ListingVerdict.
type Diagnostics struct {
	Reason   string         `json:"reason,omitempty"`
	Total    int            `json:"total"`
	Passed   int            `json:"passed"`
	Listings []ListingCheck `json:"listings,omitempty"`
}

// ListingVerdict is the fraction of listings that satisfy the invariants.
type ListingVerdict struct {
	Score       float64     `json:"score"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

type tagged struct {
	bucket  Region
	listing Listing
}

func flatten(b Buckets) []tagged {
	out := make([]tagged, 0, b.Len())
	for _, l := range b.Europe {
		out = append(out, tagged{bucket: RegionEurope, listing: l})
	}
	for _, l := range b.Worldwide {
		out = append(out, tagged{bucket: RegionWorldwide, listing: l})
	}
	return out
}

// VerifyListings checks a curated batch at time now. An empty batch scores 1.
// An empty or repeated canonical URL anywhere in the batch scores 0.
// Otherwise the score is the share of listings that are remote-positive,
// consistent with their bucket and fresh.
func VerifyListings(b Buckets, now time.Time) ListingVerdict {
	items := flatten(b)
	if len(items) == 0 {
		return ListingVerdict{Score: 1, Diagnostics: Diagnostics{Reason: "empty batch"}}
	}

	seen := make(map[string]int, len(items))
	for i, it := range items {
		canonical := signals.CanonicalURL(listingURL(it.listing))
		if canonical == "" {
			return failed(len(items), fmt.Sprintf("listing %d (%s) has no usable url", i, it.bucket))
		}
		if first, dup := seen[canonical]; dup {
			return failed(len(items), fmt.Sprintf("listing %d (%s) repeats url of listing %d: %s", i, it.bucket, first, canonical))
		}
		seen[canonical] = i
	}

	diag := Diagnostics{Total: len(items), Listings: make([]ListingCheck, 0, len(items))}
	for i, it := range items {
		check := CheckListing(it.bucket, it.listing, now)
		check.Index = i
		if check.Passed() {
			diag.Passed++
		}
		diag.Listings = append(diag.Listings, check)
	}

	return ListingVerdict{
		Score:       float64(diag.Passed) / float64(diag.Total),
		Diagnostics: diag,
	}
}

func failed(total int, reason string) ListingVerdict {
	return ListingVerdict{Score: 0, Diagnostics: Diagnostics{Reason: reason, Total: total}}
}

func listingURL(l Listing) string {
	if u := strings.TrimSpace(l.ApplyURL); u != "" {
		return u
	}
	return l.SourceURL
}

// EvidenceBlob is the lower-cased text the predicates search.
func EvidenceBlob(l Listing) string {
	parts := []string{l.Title, l.Company, l.LocationText, l.SalaryText, l.SourceURL, l.ApplyURL}
	parts = append(parts, l.Evidence...)
	return signals.Blob(parts...)
}

// CheckListing evaluates the three predicates of one listing.
func CheckListing(bucket Region, l Listing, now time.Time) ListingCheck {
	blob := EvidenceBlob(l)
	check := ListingCheck{
		Bucket:       bucket,
		Title:        l.Title,
		CanonicalURL: signals.CanonicalURL(listingURL(l)),
		RemoteRules:  signals.RemotePositive.Match(blob),
		HybridRules:  signals.HybridOrOnsite.Match(blob),
		LockRules:    signals.RegionLock.Match(blob),
	}

	check.RemotePositive = l.IsFullyRemote && len(check.RemoteRules) > 0 && len(check.HybridRules) == 0

	switch bucket {
	case RegionWorldwide:
		check.RegionRules = signals.WorldwideSignals.Match(blob)
	case RegionEurope:
		check.RegionRules = signals.EuropeSignals.Match(blob)
	}
	check.RegionConsistent = l.RemoteRegion == bucket && len(check.RegionRules) > 0 && len(check.LockRules) == 0

	if age, ok := signals.AgeHours(l.PostedHoursAgo, blob, l.PostedAtISO, now); ok {
		check.AgeHours = &age
		check.Fresh = age <= FreshHours
	}

	return check
}
