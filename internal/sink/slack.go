package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobsieve/internal/model"
	"github.com/amishk599/jobsieve/internal/normalize"
)

// Ensure SlackSink implements model.Sink.
var _ model.Sink = (*SlackSink)(nil)

// SlackSink posts each record to a Slack channel via Incoming Webhooks.
type SlackSink struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
	pause      time.Duration // between messages
}

func NewSlackSink(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackSink {
	return &SlackSink{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
		pause:      500 * time.Millisecond,
	}
}

func (s *SlackSink) Name() string { return "slack" }

// Write sends each record as a separate Block Kit message. It returns an
// error only if all messages fail; individual failures are logged.
func (s *SlackSink) Write(ctx context.Context, records []model.JobRecord) error {
	if len(records) == 0 {
		return nil
	}

	failures := 0
	for i, r := range records {
		if i > 0 && s.pause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.pause):
			}
		}
		if err := s.send(ctx, r); err != nil {
			s.logger.Error("slack message failed", "company", r.Company, "title", r.Title, "error", err)
			failures++
		}
	}

	if failures == len(records) {
		return fmt.Errorf("all %d slack messages failed", failures)
	}
	s.logger.Info("slack messages complete", "sent", len(records)-failures, "failed", failures)
	return nil
}

func (s *SlackSink) Close() error { return nil }

func (s *SlackSink) send(ctx context.Context, r model.JobRecord) error {
	body, err := json.Marshal(buildPayload(r))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryAfter):
		}
		status, _, err = s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("retry: %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", status)
		}
		return nil
	}
	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	return nil
}

func (s *SlackSink) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

func buildPayload(r model.JobRecord) slackPayload {
	posted := "Just detected"
	if t, ok := normalize.ParseDate(r.PostedAt); ok {
		posted = t.Format("Jan 2, 2006")
	} else if r.PostedAt != "" {
		posted = r.PostedAt
	}

	category := r.Category
	if category == "" {
		category = "Unclassified"
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "🚀 " + r.Company + ": " + r.Title},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Company:*\n" + r.Company},
				{Type: "mrkdwn", Text: "*Location:*\n" + r.Location},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Posted:*\n" + posted},
				{Type: "mrkdwn", Text: "*Source:*\n" + r.Source},
				{Type: "mrkdwn", Text: "*Relevance:*\n" + scoreString(r)},
				{Type: "mrkdwn", Text: "*Category:*\n" + category},
			},
		},
	}

	if len(r.Tags) > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Tags:* " + strings.Join(r.Tags, ", ")},
		})
	}

	blocks = append(blocks,
		slackBlock{
			Type: "actions",
			Elements: []slackElement{
				{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: "Apply Now"},
					URL:   r.URL,
					Style: "primary",
				},
			},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}

// SendTestMessage posts a sample record to verify the webhook works.
func SendTestMessage(ctx context.Context, s model.Sink) error {
	score := 0.9
	return s.Write(ctx, []model.JobRecord{{
		Company:        "jobsieve",
		Title:          "Test Notification",
		Location:       "Everywhere",
		URL:            "https://example.com/jobs/test",
		Source:         "test",
		Tags:           []string{"AI"},
		RelevanceScore: &score,
		Category:       "Engineering",
		FirstSeen:      time.Now(),
	}})
}
