package adapter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/normalize"
)

// cardFields maps the raw keys produced by the HTML card parsers.
var cardFields = normalize.FieldTable{
	normalize.FieldTitle:       {Keys: []string{"title"}},
	normalize.FieldCompany:     {Keys: []string{"company"}},
	normalize.FieldLocation:    {Keys: []string{"location"}},
	normalize.FieldURL:         {Keys: []string{"link"}},
	normalize.FieldPostedAt:    {Keys: []string{"posted_date"}},
	normalize.FieldDescription: {Keys: []string{"snippet"}},
	normalize.FieldSalary:      {Keys: []string{"salary"}},
}

var errEmptyPage = errors.New("empty page body")

func parseHTML(body []byte) (*goquery.Document, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errEmptyPage
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.First().Text()), " ")
}

// firstText returns the text of the first selector that matches inside s.
func firstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if t := text(s.Find(sel)); t != "" {
			return t
		}
	}
	return ""
}

// parseLinkedIn extracts job cards from a LinkedIn public search page.
func parseLinkedIn(body []byte) (Page, error) {
	doc, err := parseHTML(body)
	if err != nil {
		return Page{}, err
	}

	var records []model.RawRecord
	doc.Find("div.job-search-card").Each(func(_ int, card *goquery.Selection) {
		link, _ := card.Find("a.base-card__full-link").First().Attr("href")
		posted, _ := card.Find("time").First().Attr("datetime")
		rec := model.RawRecord{
			"title":       text(card.Find("h3.base-search-card__title")),
			"company":     text(card.Find("h4.base-search-card__subtitle")),
			"location":    text(card.Find("span.job-search-card__location")),
			"link":        strings.TrimSpace(link),
			"posted_date": posted,
		}
		if salary := text(card.Find("span.job-search-card__salary-info")); salary != "" {
			rec["salary"] = salary
		}
		records = append(records, rec)
	})
	return Page{Records: records}, nil
}

// parseIndeed extracts result cards from an Indeed search page.
func parseIndeed(body []byte) (Page, error) {
	doc, err := parseHTML(body)
	if err != nil {
		return Page{}, err
	}

	var records []model.RawRecord
	doc.Find("div.job_seen_beacon").Each(func(_ int, card *goquery.Selection) {
		titleLink := card.Find("h2.jobTitle a").First()
		link, _ := titleLink.Attr("href")
		title := firstText(card, "h2.jobTitle span[title]", "h2.jobTitle")

		rec := model.RawRecord{
			"title":       title,
			"company":     firstText(card, "[data-testid='company-name']", "span.companyName"),
			"location":    firstText(card, "[data-testid='text-location']", "div.companyLocation"),
			"link":        strings.TrimSpace(link),
			"posted_date": strings.TrimPrefix(firstText(card, "span.date"), "Posted"),
			"snippet":     firstText(card, "div.job-snippet", "[data-testid='jobsnippet_footer']"),
		}
		if salary := firstText(card, "div.salary-snippet-container", "[data-testid='attribute_snippet_testid']"); salary != "" {
			rec["salary"] = salary
		}
		records = append(records, rec)
	})

	// The last page has no "next" control.
	done := len(records) > 0 && doc.Find("a[data-testid='pagination-page-next']").Length() == 0 &&
		doc.Find("nav[role='navigation']").Length() > 0
	return Page{Records: records, Done: done}, nil
}
