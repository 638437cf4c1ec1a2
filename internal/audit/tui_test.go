package audit

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amishk599/jobsieve/internal/model"
)

func scored(title, posted string, score float64) model.JobRecord {
	return model.JobRecord{
		Title:          title,
		Company:        "Acme",
		Location:       "Remote",
		URL:            "https://example.com/" + title,
		PostedAt:       posted,
		RelevanceScore: &score,
		Fingerprint:    title,
	}
}

func TestNewAuditModel_SplitsByThreshold(t *testing.T) {
	unclassified := scored("none", "", 0)
	unclassified.RelevanceScore = nil
	records := []model.JobRecord{
		scored("low", "2026-01-01T00:00:00Z", 0.2),
		scored("high", "2026-01-03T00:00:00Z", 0.9),
		scored("edge", "2026-01-02T00:00:00Z", 0.7),
		unclassified,
	}

	m := newAuditModel(records, 0.7)

	var all []string
	for _, r := range m.allRecords {
		all = append(all, r.Title)
	}
	if got := strings.Join(all, ","); got != "high,edge,low,none" {
		t.Errorf("all records order = %s, want newest first with undated last", got)
	}

	var kept []string
	for _, r := range m.keptRecords {
		kept = append(kept, r.Title)
	}
	if got := strings.Join(kept, ","); got != "high,edge" {
		t.Errorf("kept = %s, want high,edge (score order, threshold inclusive)", got)
	}
	if records[0].Title != "low" {
		t.Error("input slice should not be reordered")
	}
}

func TestAuditModel_NavigationAndDetail(t *testing.T) {
	m := newAuditModel([]model.JobRecord{
		scored("a", "2026-01-02T00:00:00Z", 0.9),
		scored("b", "2026-01-01T00:00:00Z", 0.1),
	}, 0.5)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(auditModel)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(auditModel)
	if m.leftCursor != 1 {
		t.Fatalf("leftCursor = %d, want 1", m.leftCursor)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(auditModel)
	if m.leftCursor != 1 {
		t.Errorf("cursor should clamp at the last record, got %d", m.leftCursor)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(auditModel)
	if m.view != viewDetail || m.detail.Title != "b" {
		t.Fatalf("expected detail view of b, got view=%d title=%q", m.view, m.detail.Title)
	}
	if !strings.Contains(m.renderDetail(), "0.10") {
		t.Errorf("detail should show the score:\n%s", m.renderDetail())
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(auditModel)
	if m.view != viewList {
		t.Error("esc should return to the list")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(auditModel)
	if m.activePane != 1 || len(m.activeRecords()) != 1 {
		t.Errorf("tab should switch to the kept pane, pane=%d records=%d", m.activePane, len(m.activeRecords()))
	}
}

func TestPostedLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2026-03-04T10:00:00Z", "2026-03-04"},
		{"3 days ago", "3 days ago"},
		{"", "n/a"},
	}
	for _, tt := range tests {
		if got := postedLabel(tt.in, "2006-01-02"); got != tt.want {
			t.Errorf("postedLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWordWrap(t *testing.T) {
	got := wordWrap("one two three four", 9)
	if got != "one two\nthree\nfour" {
		t.Errorf("wordWrap = %q", got)
	}
}
