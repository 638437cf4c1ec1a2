package adapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/normalize"
)

var remoteOKFields = normalize.FieldTable{
	normalize.FieldTitle:       {Keys: []string{"position", "title"}},
	normalize.FieldCompany:     {Keys: []string{"company"}},
	normalize.FieldLocation:    {Keys: []string{"location"}, Default: "Remote"},
	normalize.FieldURL:         {Keys: []string{"apply_url", "url"}},
	normalize.FieldPostedAt:    {Keys: []string{"date", "epoch"}},
	normalize.FieldDescription: {Keys: []string{"description"}},
	normalize.FieldTags:        {Keys: []string{"tags"}},
	normalize.FieldWorkMode:    {Default: "remote"},
}

// parseRemoteOK decodes the RemoteOK API array. The first element is a legal
// notice, not a job.
func parseRemoteOK(body []byte) (Page, error) {
	var items []map[string]any
	if err := json.Unmarshal(body, &items); err != nil {
		return Page{}, fmt.Errorf("decode remoteok feed: %w", err)
	}

	records := make([]model.RawRecord, 0, len(items))
	for _, item := range items {
		if _, legal := item["legal"]; legal {
			continue
		}
		if _, ok := item["position"]; !ok {
			continue
		}
		records = append(records, model.RawRecord(item))
	}
	return Page{Records: records, Done: true}, nil
}

var greenhouseFields = normalize.FieldTable{
	normalize.FieldTitle:       {Keys: []string{"title"}},
	normalize.FieldCompany:     {Keys: []string{"company", "company_name"}},
	normalize.FieldLocation:    {Keys: []string{"location"}},
	normalize.FieldURL:         {Keys: []string{"absolute_url"}},
	normalize.FieldPostedAt:    {Keys: []string{"first_published", "updated_at"}},
	normalize.FieldDescription: {Keys: []string{"content"}},
}

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID             int64              `json:"id"`
	Title          string             `json:"title"`
	CompanyName    string             `json:"company_name"`
	Location       greenhouseLocation `json:"location"`
	AbsoluteURL    string             `json:"absolute_url"`
	UpdatedAt      string             `json:"updated_at"`
	FirstPublished string             `json:"first_published"`
	Content        string             `json:"content"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

func parseGreenhouse(body []byte) (Page, error) {
	var resp greenhouseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Page{}, fmt.Errorf("decode greenhouse board: %w", err)
	}

	records := make([]model.RawRecord, 0, len(resp.Jobs))
	for _, gj := range resp.Jobs {
		rec := model.RawRecord{
			"id":              gj.ID,
			"title":           gj.Title,
			"location":        gj.Location.Name,
			"absolute_url":    gj.AbsoluteURL,
			"updated_at":      gj.UpdatedAt,
			"first_published": gj.FirstPublished,
			"content":         gj.Content,
		}
		if gj.CompanyName != "" {
			rec["company_name"] = gj.CompanyName
		}
		records = append(records, rec)
	}
	return Page{Records: records, Done: true}, nil
}

var leverFields = normalize.FieldTable{
	normalize.FieldTitle:       {Keys: []string{"text"}},
	normalize.FieldCompany:     {Keys: []string{"company"}},
	normalize.FieldLocation:    {Keys: []string{"location"}},
	normalize.FieldURL:         {Keys: []string{"hostedUrl", "applyUrl"}},
	normalize.FieldPostedAt:    {Keys: []string{"createdAt"}},
	normalize.FieldDescription: {Keys: []string{"descriptionPlain", "description"}},
	normalize.FieldWorkMode:    {Keys: []string{"workplaceType"}},
}

// leverCategories represents the categories object in a Lever job.
type leverCategories struct {
	Team         string   `json:"team"`
	Department   string   `json:"department"`
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

// leverJob represents a single job in the Lever API response.
type leverJob struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	Description      string          `json:"description"`
	DescriptionPlain string          `json:"descriptionPlain"`
	Categories       leverCategories `json:"categories"`
	CreatedAt        int64           `json:"createdAt"`
	WorkplaceType    string          `json:"workplaceType"`
	HostedURL        string          `json:"hostedUrl"`
	ApplyURL         string          `json:"applyUrl"`
}

func parseLever(body []byte) (Page, error) {
	var jobs []leverJob
	if err := json.Unmarshal(body, &jobs); err != nil {
		return Page{}, fmt.Errorf("decode lever postings: %w", err)
	}

	records := make([]model.RawRecord, 0, len(jobs))
	for _, lj := range jobs {
		// Prefer allLocations when present.
		location := lj.Categories.Location
		if len(lj.Categories.AllLocations) > 0 {
			location = strings.Join(lj.Categories.AllLocations, " / ")
		}

		rec := model.RawRecord{
			"id":               lj.ID,
			"text":             lj.Text,
			"location":         location,
			"hostedUrl":        lj.HostedURL,
			"applyUrl":         lj.ApplyURL,
			"description":      lj.Description,
			"descriptionPlain": lj.DescriptionPlain,
			"workplaceType":    lj.WorkplaceType,
			"team":             lj.Categories.Team,
		}
		if lj.CreatedAt > 0 {
			rec["createdAt"] = lj.CreatedAt
		}
		records = append(records, rec)
	}
	return Page{Records: records, Done: true}, nil
}

var ashbyFields = normalize.FieldTable{
	normalize.FieldTitle:       {Keys: []string{"title"}},
	normalize.FieldCompany:     {Keys: []string{"company"}},
	normalize.FieldLocation:    {Keys: []string{"location"}},
	normalize.FieldURL:         {Keys: []string{"jobUrl"}},
	normalize.FieldPostedAt:    {Keys: []string{"publishedAt"}},
	normalize.FieldDescription: {Keys: []string{"descriptionPlain"}},
	normalize.FieldWorkMode:    {Keys: []string{"workplaceType"}},
}

type ashbyJob struct {
	Title            string `json:"title"`
	Location         string `json:"location"`
	JobURL           string `json:"jobUrl"`
	PublishedAt      string `json:"publishedAt"`
	IsListed         bool   `json:"isListed"`
	IsRemote         bool   `json:"isRemote"`
	WorkplaceType    string `json:"workplaceType"`
	DescriptionPlain string `json:"descriptionPlain"`
}

type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

// parseAshby keeps listed postings only.
func parseAshby(body []byte) (Page, error) {
	var resp ashbyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Page{}, fmt.Errorf("decode ashby board: %w", err)
	}

	records := make([]model.RawRecord, 0, len(resp.Jobs))
	for _, aj := range resp.Jobs {
		if !aj.IsListed {
			continue
		}
		workplace := aj.WorkplaceType
		if workplace == "" && aj.IsRemote {
			workplace = "remote"
		}
		records = append(records, model.RawRecord{
			"title":            aj.Title,
			"location":         aj.Location,
			"jobUrl":           aj.JobURL,
			"publishedAt":      aj.PublishedAt,
			"descriptionPlain": aj.DescriptionPlain,
			"workplaceType":    workplace,
		})
	}
	return Page{Records: records, Done: true}, nil
}

var gemFields = normalize.FieldTable{
	normalize.FieldTitle:       {Keys: []string{"title"}},
	normalize.FieldCompany:     {Keys: []string{"company"}},
	normalize.FieldLocation:    {Keys: []string{"location"}},
	normalize.FieldURL:         {Keys: []string{"absolute_url"}},
	normalize.FieldPostedAt:    {Keys: []string{"first_published_at", "updated_at"}},
	normalize.FieldDescription: {Keys: []string{"content_plain", "content"}},
}

type gemJob struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	Location       greenhouseLocation `json:"location"`
	AbsoluteURL    string             `json:"absolute_url"`
	FirstPublished string             `json:"first_published_at"`
	UpdatedAt      string             `json:"updated_at"`
	Content        string             `json:"content"`
	ContentPlain   string             `json:"content_plain"`
}

func parseGem(body []byte) (Page, error) {
	var jobs []gemJob
	if err := json.Unmarshal(body, &jobs); err != nil {
		return Page{}, fmt.Errorf("decode gem board: %w", err)
	}

	records := make([]model.RawRecord, 0, len(jobs))
	for _, gj := range jobs {
		records = append(records, model.RawRecord{
			"id":                 gj.ID,
			"title":              gj.Title,
			"location":           gj.Location.Name,
			"absolute_url":       gj.AbsoluteURL,
			"first_published_at": gj.FirstPublished,
			"updated_at":         gj.UpdatedAt,
			"content":            gj.Content,
			"content_plain":      gj.ContentPlain,
		})
	}
	return Page{Records: records, Done: true}, nil
}
