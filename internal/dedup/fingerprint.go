package dedup

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/amishk599/jobsieve/internal/model"
)

// RemoteBucket is the location bucket shared by every remote synonym.
const RemoteBucket = "remote"

var remoteSynonyms = []string{
	"remote",
	"anywhere",
	"work from home",
	"wfh",
	"distributed",
	"telecommute",
}

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	unitRe          = regexp.MustCompile(`(?i)\b(suite|ste|unit|floor|fl|apt|room|rm|bldg|building)\b\.?\s*#?\s*[\w-]*`)
	hashUnitRe      = regexp.MustCompile(`#\s*\w+`)
	zipRe           = regexp.MustCompile(`\b\d{5}(-\d{4})?\b`)
)

// Fingerprint derives the identity key of a posting from its company, title
// and coarse location. Case, accents, punctuation and spacing do not affect it.
func Fingerprint(company, title, location string) string {
	return normalizeKey(company) + "|" + normalizeKey(title) + "|" + LocationBucket(location)
}

// RecordFingerprint is Fingerprint applied to a record.
func RecordFingerprint(rec model.JobRecord) string {
	return Fingerprint(rec.Company, rec.Title, rec.Location)
}

// LocationBucket collapses a location string to a coarse key: remote synonyms
// become RemoteBucket, otherwise unit detail, zip codes and parenthetical
// notes are dropped and the first comma-separated component is kept.
func LocationBucket(location string) string {
	folded := normalizeKey(location)
	if folded == "" {
		return ""
	}
	if folded == normalizeKey(model.DefaultLocation) {
		return RemoteBucket
	}
	for _, syn := range remoteSynonyms {
		if containsWord(folded, syn) {
			return RemoteBucket
		}
	}

	loc := parentheticalRe.ReplaceAllString(location, " ")
	loc = unitRe.ReplaceAllString(loc, " ")
	loc = hashUnitRe.ReplaceAllString(loc, " ")
	loc = zipRe.ReplaceAllString(loc, " ")

	for _, part := range strings.Split(loc, ",") {
		if key := normalizeKey(part); key != "" {
			return key
		}
	}
	return ""
}

// normalizeKey applies NFKD, strips combining marks, lowercases, turns
// punctuation and symbols into spaces and collapses whitespace.
func normalizeKey(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	folded = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return unicode.ToLower(r)
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// containsWord reports whether phrase occurs in s on word boundaries. Both are
// already normalized keys.
func containsWord(s, phrase string) bool {
	return s == phrase ||
		strings.HasPrefix(s, phrase+" ") ||
		strings.HasSuffix(s, " "+phrase) ||
		strings.Contains(s, " "+phrase+" ")
}
