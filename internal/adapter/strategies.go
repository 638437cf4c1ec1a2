package adapter

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/amishk599/jobsieve/internal/model"
)

var (
	htmlHeaders = map[string]string{"Accept": "text/html,application/xhtml+xml"}
	jsonHeaders = map[string]string{"Accept": "application/json"}
	feedHeaders = map[string]string{"Accept": "application/rss+xml, application/xml;q=0.9"}
)

// strategies maps a source kind to its strategy.
var strategies = map[string]Strategy{
	"linkedin": {
		Kind:      "linkedin",
		SiteURL:   "https://www.linkedin.com",
		Paginated: true,
		Headers:   htmlHeaders,
		Fields:    cardFields,
		PageURL:   searchPageURL("https://www.linkedin.com/jobs/search", 25, linkedinQuery),
		Parse:     parseLinkedIn,
	},
	"indeed": {
		Kind:      "indeed",
		SiteURL:   "https://www.indeed.com",
		Paginated: true,
		Headers:   htmlHeaders,
		Fields:    cardFields,
		PageURL:   searchPageURL("https://www.indeed.com/jobs", 10, indeedQuery),
		Parse:     parseIndeed,
	},
	"remoteok": {
		Kind:    "remoteok",
		SiteURL: "https://remoteok.com",
		Headers: jsonHeaders,
		Fields:  remoteOKFields,
		PageURL: fixedPageURL("https://remoteok.com/api"),
		Parse:   parseRemoteOK,
	},
	"greenhouse": {
		Kind:    "greenhouse",
		SiteURL: "https://boards.greenhouse.io",
		Headers: jsonHeaders,
		Fields:  greenhouseFields,
		PageURL: boardPageURL("https://boards-api.greenhouse.io/v1/boards", "%s/%s/jobs?content=true"),
		Parse:   parseGreenhouse,
	},
	"lever": {
		Kind:    "lever",
		SiteURL: "https://jobs.lever.co",
		Headers: jsonHeaders,
		Fields:  leverFields,
		PageURL: boardPageURL("https://api.lever.co/v0/postings", "%s/%s?mode=json"),
		Parse:   parseLever,
	},
	"ashby": {
		Kind:    "ashby",
		SiteURL: "https://jobs.ashbyhq.com",
		Headers: jsonHeaders,
		Fields:  ashbyFields,
		PageURL: boardPageURL("https://api.ashbyhq.com/posting-api/job-board", "%s/%s"),
		Parse:   parseAshby,
	},
	"gem": {
		Kind:    "gem",
		SiteURL: "https://jobs.gem.com",
		Headers: jsonHeaders,
		Fields:  gemFields,
		PageURL: boardPageURL("https://api.gem.com/job_board/v0", "%s/%s/job_posts/"),
		Parse:   parseGem,
	},
	"weworkremotely": {
		Kind:    "weworkremotely",
		SiteURL: "https://weworkremotely.com",
		Headers: feedHeaders,
		Fields:  feedFields,
		PageURL: fixedPageURL("https://weworkremotely.com/categories/remote-programming-jobs.rss"),
		Parse:   parseWeWorkRemotely,
	},
}

// Lookup returns the strategy for kind.
func Lookup(kind string) (Strategy, bool) {
	s, ok := strategies[kind]
	return s, ok
}

// Kinds returns the supported source kinds in sorted order.
func Kinds() []string {
	return slices.Sorted(maps.Keys(strategies))
}

var errNoBoard = errors.New("board token is required")

func baseOr(src Source, def string) string {
	if src.BaseURL != "" {
		return strings.TrimRight(src.BaseURL, "/")
	}
	return def
}

func fixedPageURL(def string) func(Source, model.SearchSpec, int) (string, error) {
	return func(src Source, _ model.SearchSpec, _ int) (string, error) {
		return withParams(baseOr(src, def), src.Params, nil)
	}
}

func boardPageURL(def, format string) func(Source, model.SearchSpec, int) (string, error) {
	return func(src Source, _ model.SearchSpec, _ int) (string, error) {
		if src.Board == "" {
			return "", errNoBoard
		}
		return withParams(fmt.Sprintf(format, baseOr(src, def), url.PathEscape(src.Board)), src.Params, nil)
	}
}

// searchPageURL builds paginated search URLs; the offset parameter is
// start=page*perPage.
func searchPageURL(def string, perPage int, query func(model.SearchSpec) url.Values) func(Source, model.SearchSpec, int) (string, error) {
	return func(src Source, spec model.SearchSpec, page int) (string, error) {
		q := query(spec)
		if page > 0 {
			q.Set("start", strconv.Itoa(page*perPage))
		}
		return withParams(baseOr(src, def), src.Params, q)
	}
}

func withParams(base string, params map[string]string, q url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	merged := u.Query()
	for k, vs := range q {
		merged[k] = vs
	}
	for k, v := range params {
		merged.Set(k, v)
	}
	u.RawQuery = merged.Encode()
	return u.String(), nil
}

func linkedinQuery(spec model.SearchSpec) url.Values {
	q := url.Values{}
	q.Set("keywords", strings.Join(spec.Keywords, " "))
	q.Set("location", spec.Filters["location"])
	q.Set("f_TPR", filterOr(spec.Filters, "date_posted", "r86400"))
	if v := spec.Filters["experience"]; v != "" {
		q.Set("f_E", v)
	}
	return q
}

func indeedQuery(spec model.SearchSpec) url.Values {
	q := url.Values{}
	q.Set("q", strings.Join(spec.Keywords, " "))
	q.Set("l", spec.Filters["location"])
	if v := spec.Filters["fromage"]; v != "" {
		q.Set("fromage", v)
	}
	return q
}

func filterOr(filters map[string]string, key, def string) string {
	if v := filters[key]; v != "" {
		return v
	}
	return def
}
