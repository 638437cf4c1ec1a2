package normalize

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
)

// Field names a canonical record field filled from a raw record.
type Field string

const (
	FieldTitle       Field = "title"
	FieldCompany     Field = "company"
	FieldLocation    Field = "location"
	FieldURL         Field = "url"
	FieldPostedAt    Field = "posted_at"
	FieldDescription Field = "description"
	FieldSalary      Field = "salary"
	FieldSponsorship Field = "sponsorship"
	FieldWorkMode    Field = "work_mode"
	FieldTags        Field = "tags"
)

// Rule extracts one canonical field from a raw record. The first key with a
// non-empty value wins; Default is used when none match. Transform, when set,
// runs on the extracted value before cleaning.
type Rule struct {
	Keys      []string
	Default   string
	Transform func(string) string
}

// FieldTable maps canonical fields to the raw keys a source uses for them.
type FieldTable map[Field]Rule

// DefaultTable covers sources whose raw records already use canonical names.
var DefaultTable = FieldTable{
	FieldTitle:       {Keys: []string{"title", "position", "name"}},
	FieldCompany:     {Keys: []string{"company", "company_name"}},
	FieldLocation:    {Keys: []string{"location"}},
	FieldURL:         {Keys: []string{"url", "link", "apply_url"}},
	FieldPostedAt:    {Keys: []string{"posted_at", "posted_date", "date"}},
	FieldDescription: {Keys: []string{"description"}},
	FieldSalary:      {Keys: []string{"salary"}},
	FieldWorkMode:    {Keys: []string{"work_mode"}},
	FieldTags:        {Keys: []string{"tags"}},
}

// Normalizer maps raw source records to canonical job records. It holds only
// configuration; Normalize has no side effects.
type Normalizer struct {
	tagger *Tagger
	now    func() time.Time

	mu       sync.RWMutex
	tables   map[string]FieldTable
	baseURLs map[string]string
}

// New creates a Normalizer that derives tags with tagger (may be nil).
func New(tagger *Tagger) *Normalizer {
	return &Normalizer{
		tagger:   tagger,
		now:      time.Now,
		tables:   make(map[string]FieldTable),
		baseURLs: make(map[string]string),
	}
}

// Register sets the field table and base URL used for records of source.
// baseURL resolves relative links and may be empty.
func (n *Normalizer) Register(source string, table FieldTable, baseURL string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if table == nil {
		table = DefaultTable
	}
	n.tables[source] = table
	n.baseURLs[source] = baseURL
}

// Normalize converts raw into a canonical record for source. It returns a
// *model.NormalizationError when a required field is missing or invalid.
func (n *Normalizer) Normalize(raw model.RawRecord, source string) (model.JobRecord, error) {
	n.mu.RLock()
	table, ok := n.tables[source]
	baseURL := n.baseURLs[source]
	n.mu.RUnlock()
	if !ok {
		table = DefaultTable
	}

	get := func(f Field) string {
		return extract(raw, table[f])
	}

	title := CleanText(get(FieldTitle))
	if title == "" {
		return model.JobRecord{}, &model.NormalizationError{Source: source, Field: string(FieldTitle)}
	}

	rawURL := strings.TrimSpace(get(FieldURL))
	if rawURL == "" {
		return model.JobRecord{}, &model.NormalizationError{Source: source, Field: string(FieldURL)}
	}
	link, err := CanonicalURL(rawURL, baseURL)
	if err != nil {
		return model.JobRecord{}, &model.NormalizationError{Source: source, Field: string(FieldURL), Reason: err.Error()}
	}

	company := CleanText(get(FieldCompany))
	if company == "" {
		company = model.UnknownCompany
	}
	location := CleanText(get(FieldLocation))
	if location == "" {
		location = model.DefaultLocation
	}
	description := CleanText(get(FieldDescription))

	salary := CleanText(get(FieldSalary))
	if salary == "" {
		salary = FormatSalary(stringify(raw["salary_min"]), stringify(raw["salary_max"]))
	}

	sponsorship := CleanText(get(FieldSponsorship))
	if sponsorship == "" {
		sponsorship = DetectSponsorship(description)
	}

	rec := model.JobRecord{
		Title:       title,
		Company:     company,
		Location:    location,
		URL:         link,
		PostedAt:    NormalizeDate(get(FieldPostedAt)),
		Source:      source,
		Description: description,
		Salary:      salary,
		Sponsorship: sponsorship,
		WorkMode:    InferWorkMode(get(FieldWorkMode), location, title, description),
		FirstSeen:   n.now().UTC(),
	}
	rec.Tags = MergeTags(sourceTags(raw, table[FieldTags]), n.tagger.Tags(title, description))
	return rec, nil
}

// extract applies rule to raw.
func extract(raw model.RawRecord, rule Rule) string {
	var v string
	for _, key := range rule.Keys {
		if s := strings.TrimSpace(stringify(raw[key])); s != "" && !isPlaceholder(s) {
			v = s
			break
		}
	}
	if v == "" {
		v = rule.Default
	}
	if v != "" && rule.Transform != nil {
		v = rule.Transform(v)
	}
	return v
}

// isPlaceholder reports values sources emit in place of a missing field.
func isPlaceholder(s string) bool {
	switch strings.ToLower(s) {
	case "n/a", "na", "none", "null", "-", "unknown":
		return true
	}
	return false
}

func sourceTags(raw model.RawRecord, rule Rule) []string {
	var tags []string
	for _, key := range rule.Keys {
		switch v := raw[key].(type) {
		case []string:
			tags = append(tags, v...)
		case []any:
			for _, item := range v {
				tags = append(tags, stringify(item))
			}
		case string:
			tags = append(tags, strings.Split(v, ",")...)
		}
	}
	return tags
}

// MergeTags returns the sorted, de-duplicated union of the given tag lists.
// Blank tags are dropped.
func MergeTags(lists ...[]string) []string {
	out := []string{}
	for _, l := range lists {
		for _, t := range l {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// stringify renders a raw value as text.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}
