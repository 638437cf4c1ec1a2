package normalize

import (
	"strconv"
	"strings"
)

// Work modes.
const (
	WorkModeRemote = "remote"
	WorkModeHybrid = "hybrid"
	WorkModeOnsite = "onsite"
)

// Sponsorship verdicts.
const (
	SponsorshipAvailable    = "Sponsorship likely available"
	SponsorshipNotAvailable = "Sponsorship likely NOT available"
)

var noSponsorshipPhrases = []string{
	"sponsorship is not available",
	"no sponsorship",
	"cannot sponsor",
	"unable to sponsor",
	"will not sponsor",
	"must be authorized to work",
	"us citizens only",
	"green card holders only",
}

var sponsorshipPhrases = []string{
	"visa sponsorship available",
	"can sponsor",
	"willing to sponsor",
	"sponsorship provided",
	"will sponsor",
}

// DetectSponsorship scans a description for visa sponsorship phrasing.
// Negative phrasing wins over positive. Returns "" when nothing matches.
func DetectSponsorship(description string) string {
	if description == "" {
		return ""
	}
	d := strings.ToLower(description)
	for _, p := range noSponsorshipPhrases {
		if strings.Contains(d, p) {
			return SponsorshipNotAvailable
		}
	}
	for _, p := range sponsorshipPhrases {
		if strings.Contains(d, p) {
			return SponsorshipAvailable
		}
	}
	return ""
}

// InferWorkMode returns the work mode from an explicit source hint when it
// names one, otherwise from the location, title and description text.
func InferWorkMode(hint, location, title, description string) string {
	switch h := strings.ToLower(strings.TrimSpace(hint)); {
	case strings.Contains(h, "hybrid"):
		return WorkModeHybrid
	case strings.Contains(h, "remote"):
		return WorkModeRemote
	case strings.Contains(h, "onsite"), strings.Contains(h, "on-site"), strings.Contains(h, "in office"):
		return WorkModeOnsite
	}

	text := strings.ToLower(location + " " + title)
	switch {
	case strings.Contains(text, "hybrid"):
		return WorkModeHybrid
	case strings.Contains(text, "remote"), strings.Contains(text, "anywhere"), strings.Contains(text, "work from home"):
		return WorkModeRemote
	}

	d := strings.ToLower(Truncate(description, DefaultScanChars))
	switch {
	case strings.Contains(d, "hybrid"):
		return WorkModeHybrid
	case strings.Contains(d, "fully remote"), strings.Contains(d, "100% remote"):
		return WorkModeRemote
	case strings.Contains(d, "on-site"), strings.Contains(d, "onsite"), strings.Contains(d, "in-office"):
		return WorkModeOnsite
	}
	return ""
}

// FormatSalary formats a salary range from raw min and max values. Zero or
// unparseable bounds count as missing.
func FormatSalary(minRaw, maxRaw string) string {
	lo, hi := parseAmount(minRaw), parseAmount(maxRaw)
	switch {
	case lo > 0 && hi > 0:
		return "$" + groupThousands(lo) + " - $" + groupThousands(hi)
	case lo > 0:
		return "$" + groupThousands(lo) + "+"
	case hi > 0:
		return "Up to $" + groupThousands(hi)
	}
	return ""
}

func parseAmount(s string) int64 {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0
	}
	return int64(f)
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
