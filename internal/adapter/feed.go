package adapter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/normalize"
)

var feedFields = normalize.FieldTable{
	normalize.FieldTitle:       {Keys: []string{"title"}},
	normalize.FieldCompany:     {Keys: []string{"company"}},
	normalize.FieldLocation:    {Keys: []string{"region"}, Default: "Remote"},
	normalize.FieldURL:         {Keys: []string{"link"}},
	normalize.FieldPostedAt:    {Keys: []string{"published"}},
	normalize.FieldDescription: {Keys: []string{"description"}},
	normalize.FieldWorkMode:    {Default: "remote"},
}

// parseWeWorkRemotely parses the We Work Remotely RSS feed. Item titles have
// the form "Company: Role".
func parseWeWorkRemotely(body []byte) (Page, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("parse feed: %w", err)
	}

	records := make([]model.RawRecord, 0, len(feed.Items))
	for _, item := range feed.Items {
		company, role := splitFeedTitle(item.Title)
		rec := model.RawRecord{
			"title":       role,
			"link":        item.Link,
			"published":   item.Published,
			"description": item.Description,
		}
		if company != "" {
			rec["company"] = company
		}
		if region := feedExtension(item, "region"); region != "" {
			rec["region"] = region
		}
		records = append(records, rec)
	}
	return Page{Records: records, Done: true}, nil
}

func splitFeedTitle(title string) (company, role string) {
	title = strings.TrimSpace(title)
	if c, r, ok := strings.Cut(title, ": "); ok && strings.TrimSpace(r) != "" {
		return strings.TrimSpace(c), strings.TrimSpace(r)
	}
	return "", title
}

// feedExtension returns the text of an unprefixed custom element, such as
// <region>, that gofeed keeps in the item's custom map.
func feedExtension(item *gofeed.Item, name string) string {
	if item.Custom != nil {
		if v := strings.TrimSpace(item.Custom[name]); v != "" {
			return v
		}
	}
	return ""
}
