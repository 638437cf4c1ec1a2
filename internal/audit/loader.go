package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobsieve/internal/model"
)

// CrawlFunc crawls one source without persisting and returns every record
// it produced, classified.
type CrawlFunc func(ctx context.Context) ([]model.JobRecord, error)

type crawlDoneMsg struct {
	records []model.JobRecord
	err     error
}

type loaderModel struct {
	sourceName string
	crawl      CrawlFunc
	ctx        context.Context
	cancel     context.CancelFunc
	spinner    spinner.Model
	result     []model.JobRecord
	err        error
	done       bool
}

func newLoader(sourceName string, crawl CrawlFunc, timeout time.Duration) loaderModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return loaderModel{
		sourceName: sourceName,
		crawl:      crawl,
		ctx:        ctx,
		cancel:     cancel,
		spinner:    s,
	}
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doCrawl(), m.spinner.Tick)
}

func (m loaderModel) doCrawl() tea.Cmd {
	crawl, ctx := m.crawl, m.ctx
	return func() tea.Msg {
		records, err := crawl(ctx)
		return crawlDoneMsg{records: records, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case crawlDoneMsg:
		m.result = msg.records
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			m.done = true
			m.err = fmt.Errorf("cancelled")
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Crawling %s...\n", m.spinner.View(), m.sourceName)
}

// RunLoader shows a spinner while crawling. It renders inline (no alt screen).
func RunLoader(sourceName string, crawl CrawlFunc, timeout time.Duration) ([]model.JobRecord, error) {
	m := newLoader(sourceName, crawl, timeout)
	defer m.cancel()

	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
