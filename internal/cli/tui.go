package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/metaxime/pathview/pkg/backend"
	"github.com/metaxime/pathview/pkg/errors"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listErrorStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// browseSource is the part of the backend the picker reads.
type browseSource interface {
	ListJobs(ctx context.Context) ([]backend.JobSummary, error)
	ListResults(ctx context.Context, jobID string) ([]backend.Result, error)
}

// Selection is the result picked in the browser.
type Selection struct {
	JobID    string
	ResultID string
}

type browseStage int

const (
	stageJobs browseStage = iota
	stageResults
)

type jobsLoadedMsg struct {
	jobs []backend.JobSummary
	err  error
}

type resultsLoadedMsg struct {
	jobID   string
	results []backend.Result
	err     error
}

// resultSortColumns maps the number keys of the results list to sort
// fields.
var resultSortColumns = map[string]backend.SortField{
	"1": backend.SortByID,
	"2": backend.SortBySteps,
	"3": backend.SortByMeanScore,
	"4": backend.SortByStdScore,
}

// BrowseModel is the bubbletea model of the job and result picker. Jobs
// load on start; entering a completed job loads its results; entering a
// result selects it and quits.
type BrowseModel struct {
	ctx    context.Context
	source browseSource

	Stage    browseStage
	Jobs     []backend.JobSummary
	JobID    string
	Results  []backend.Result
	Keys     []backend.SortKey
	Cursor   int
	Offset   int
	Height   int
	Loading  bool
	Err      error
	Selected *Selection
}

// NewBrowseModel creates a picker reading from source.
func NewBrowseModel(ctx context.Context, source browseSource) BrowseModel {
	return BrowseModel{ctx: ctx, source: source, Height: 15, Loading: true}
}

func (m BrowseModel) Init() tea.Cmd {
	return m.loadJobs()
}

func (m BrowseModel) loadJobs() tea.Cmd {
	return func() tea.Msg {
		jobs, err := m.source.ListJobs(m.ctx)
		return jobsLoadedMsg{jobs: jobs, err: err}
	}
}

func (m BrowseModel) loadResults(jobID string) tea.Cmd {
	return func() tea.Msg {
		results, err := m.source.ListResults(m.ctx, jobID)
		return resultsLoadedMsg{jobID: jobID, results: results, err: err}
	}
}

func (m BrowseModel) rows() int {
	if m.Stage == stageResults {
		return len(m.Results)
	}
	return len(m.Jobs)
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case jobsLoadedMsg:
		m.Loading, m.Err = false, msg.err
		m.Jobs = msg.jobs
		m.Cursor, m.Offset = 0, 0
	case resultsLoadedMsg:
		if m.Stage != stageResults || msg.jobID != m.JobID {
			return m, nil
		}
		m.Loading, m.Err = false, msg.err
		m.Results = backend.SortResults(msg.results, m.Keys...)
		m.Cursor, m.Offset = 0, 0
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	case tea.KeyMsg:
		return m.key(msg.String())
	}
	return m, nil
}

func (m BrowseModel) key(k string) (tea.Model, tea.Cmd) {
	switch k {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		if m.Stage == stageResults {
			m.Stage, m.JobID, m.Results, m.Err = stageJobs, "", nil, nil
			m.Cursor, m.Offset, m.Loading = 0, 0, false
			return m, nil
		}
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
			m.Offset = min(m.Offset, m.Cursor)
		}
	case "down", "j":
		if m.Cursor < m.rows()-1 {
			m.Cursor++
			if m.Cursor >= m.Offset+m.Height {
				m.Offset = m.Cursor - m.Height + 1
			}
		}
	case "r":
		if m.Stage == stageJobs {
			m.Loading = true
			return m, m.loadJobs()
		}
	case "enter":
		if m.Loading || m.Cursor >= m.rows() {
			return m, nil
		}
		if m.Stage == stageJobs {
			job := m.Jobs[m.Cursor]
			if job.Status != backend.StateCompleted {
				return m, nil
			}
			m.Stage, m.JobID, m.Loading, m.Err = stageResults, job.ID, true, nil
			return m, m.loadResults(job.ID)
		}
		m.Selected = &Selection{JobID: m.JobID, ResultID: m.Results[m.Cursor].ID}
		return m, tea.Quit
	default:
		if field, ok := resultSortColumns[k]; ok && m.Stage == stageResults {
			m.Keys = backend.Toggle(m.Keys, field)
			m.Results = backend.SortResults(m.Results, m.Keys...)
			m.Cursor, m.Offset = 0, 0
		}
	}
	return m, nil
}

func (m BrowseModel) View() string {
	var b strings.Builder

	if m.Stage == stageJobs {
		b.WriteString(StyleTitle.Render("Jobs"))
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ open  r reload  q quit"))
	} else {
		b.WriteString(StyleTitle.Render("Results of " + shortID(m.JobID)))
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ render  1-4 sort  esc back  q quit"))
	}
	b.WriteString("\n\n")

	switch {
	case m.Loading:
		b.WriteString(listDimStyle.Render("  loading…"))
		return b.String()
	case m.Err != nil:
		b.WriteString(listErrorStyle.Render("  " + errors.UserMessage(m.Err)))
		return b.String()
	case m.rows() == 0:
		b.WriteString(listDimStyle.Render("  nothing here"))
		return b.String()
	}

	end := min(m.Offset+m.Height, m.rows())
	now := time.Now()
	for i := m.Offset; i < end; i++ {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		var line string
		style := listNormalStyle
		if m.Stage == stageJobs {
			j := m.Jobs[i]
			line = fmt.Sprintf("%s%-38s %s  %s", cursor, j.ID,
				stateStyle(j.Status).Render(fmt.Sprintf("%-9s", j.Status)), listDimStyle.Render(formatTime(j.CreatedAt, now)))
			if j.Status != backend.StateCompleted {
				style = listDimStyle
			}
		} else {
			r := m.Results[i]
			line = fmt.Sprintf("%s%-16s %3d steps  mean %s  std %s", cursor, r.ID, r.Steps, formatScore(r.MeanScore), formatScore(r.StdScore))
		}
		if i == m.Cursor {
			style = listSelectedStyle
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	if m.Stage == stageResults && len(m.Keys) > 0 {
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("  sorted by " + backend.FormatSortKeys(m.Keys)))
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, m.rows())))
	return b.String()
}

// browseCommand runs the picker and renders the selected result.
func (c *CLI) browseCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Pick a job and result interactively and render it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, c.Config.RenderOptions())
			if err != nil {
				return err
			}
			client, err := c.newClient()
			if err != nil {
				return err
			}

			final, err := tea.NewProgram(NewBrowseModel(cmd.Context(), client), tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return err
			}
			sel := final.(BrowseModel).Selected
			if sel == nil {
				return nil
			}
			opts.JobID, opts.ResultID = sel.JobID, sel.ResultID
			if err := c.runRenderRemote(cmd.Context(), opts, &flags); err != nil {
				printError("Could not render %s: %v", sel.ResultID, err)
				return err
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
