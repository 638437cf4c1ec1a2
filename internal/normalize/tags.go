package normalize

import (
	"maps"
	"slices"
	"strings"
)

// DefaultScanChars is how much of the description the tagger looks at.
const DefaultScanChars = 1000

// Tagger derives tags from keyword matches in a record's text.
type Tagger struct {
	keywords  []string          // lowercased, sorted
	tagFor    map[string]string // lowercased keyword -> tag
	scanChars int
}

// NewTagger creates a tagger from a keyword -> tag mapping. Matching is a
// case-insensitive substring test against the title and the first scanChars
// characters of the description.
func NewTagger(mapping map[string]string, scanChars int) *Tagger {
	if scanChars <= 0 {
		scanChars = DefaultScanChars
	}
	t := &Tagger{
		tagFor:    make(map[string]string, len(mapping)),
		scanChars: scanChars,
	}
	for kw, tag := range mapping {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if tag = strings.TrimSpace(tag); tag == "" {
			continue
		}
		t.tagFor[kw] = tag
	}
	t.keywords = slices.Sorted(maps.Keys(t.tagFor))
	return t
}

// KeywordMapping maps every keyword to itself, the default when no explicit
// tag mapping is configured.
func KeywordMapping(keywordLists ...[]string) map[string]string {
	m := make(map[string]string)
	for _, list := range keywordLists {
		for _, kw := range list {
			if kw = strings.TrimSpace(kw); kw != "" {
				m[kw] = kw
			}
		}
	}
	return m
}

// Tags returns the sorted set of tags matched in title and description.
func (t *Tagger) Tags(title, description string) []string {
	if t == nil || len(t.keywords) == 0 {
		return nil
	}
	text := strings.ToLower(title + " " + Truncate(description, t.scanChars))

	var tags []string
	for _, kw := range t.keywords {
		if strings.Contains(text, kw) {
			tags = append(tags, t.tagFor[kw])
		}
	}
	return MergeTags(tags)
}
