package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/gracie007-cloud/claude-supermemory/internal/observability"
	"github.com/gracie007-cloud/claude-supermemory/pkg/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Dashboard panel indices.
const (
	panelCaptures = iota
	panelMetrics
	panelActivity
	panelCount
)

const (
	dashboardRecentCaptures = 8
	dashboardRecentEvents   = 8
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	statusCounts map[models.CaptureStatus]int
	recent       []captureSnapshot
	metricsData  *metricsSnapshot
	activity     []activitySnapshot

	// State.
	loading bool
	err     error
}

type captureSnapshot struct {
	id      string
	status  models.CaptureStatus
	mode    models.CaptureMode
	session string
	length  int
	when    time.Time
}

type metricsSnapshot struct {
	capturesSaved     int
	capturesFailed    int
	signalTurns       int
	promptsSaved      int
	observationsSaved int
	contextInjections int
	sessions          int
	eventCount        int
}

type activitySnapshot struct {
	level   string
	kind    string
	message string
	time    string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	statusCounts map[models.CaptureStatus]int
	recent       []captureSnapshot
	metrics      *metricsSnapshot
	activity     []activitySnapshot
	err          error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	statusSent    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusPending = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	levelError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	levelWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	levelInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel:  panelCaptures,
		loading:      true,
		statusCounts: make(map[models.CaptureStatus]int),
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statusCounts = msg.statusCounts
		m.recent = msg.recent
		m.metricsData = msg.metrics
		m.activity = msg.activity
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" Supermemory Dashboard ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	capturesPanel := m.renderCapturesPanel()
	metricsPanel := m.renderMetricsPanel()
	activityPanel := m.renderActivityPanel()

	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		capturesPanel = m.applyPanelStyle(panelCaptures, capturesPanel, colWidth-4)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, colWidth-4)
		activityPanel = m.applyPanelStyle(panelActivity, activityPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, capturesPanel, metricsPanel, activityPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		capturesPanel = m.applyPanelStyle(panelCaptures, capturesPanel, panelWidth)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, panelWidth)
		activityPanel = m.applyPanelStyle(panelActivity, activityPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, capturesPanel, metricsPanel, activityPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderCapturesPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Captures"))
	b.WriteString("\n")

	total := 0
	for _, c := range m.statusCounts {
		total += c
	}
	if total == 0 {
		b.WriteString("  No captures recorded.")
		return b.String()
	}

	for _, status := range []models.CaptureStatus{models.CaptureStatusSent, models.CaptureStatusPending, models.CaptureStatusFailed} {
		count := m.statusCounts[status]
		if count == 0 {
			continue
		}
		b.WriteString(styleForCaptureStatus(status).Render(fmt.Sprintf("  %-10s %d", status, count)))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("\n  Total: %d\n", total))

	if len(m.recent) > 0 {
		b.WriteString("\n  Recent:\n")
		for _, c := range m.recent {
			status := styleForCaptureStatus(c.status).Render(fmt.Sprintf("%-7s", c.status))
			b.WriteString(fmt.Sprintf("  %s %s %-6s %6d  %s\n", c.id, status, c.mode, c.length, c.when.Local().Format("01-02 15:04")))
		}
	}

	return b.String()
}

func (m dashboardModel) renderMetricsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Metrics (7d)"))
	b.WriteString("\n")

	if m.metricsData == nil {
		b.WriteString("  No metrics available.")
		return b.String()
	}

	md := m.metricsData
	lines := []struct {
		label string
		value int
	}{
		{"Events", md.eventCount},
		{"Sessions", md.sessions},
		{"Captured", md.capturesSaved},
		{"Failed", md.capturesFailed},
		{"Signal turns", md.signalTurns},
		{"Prompts", md.promptsSaved},
		{"Observations", md.observationsSaved},
		{"Injections", md.contextInjections},
	}

	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-14s %d\n", l.label, l.value))
	}

	return b.String()
}

func (m dashboardModel) renderActivityPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Activity"))
	b.WriteString("\n")

	if len(m.activity) == 0 {
		b.WriteString("  No recent activity.")
		return b.String()
	}

	for _, a := range m.activity {
		lvl := styleForLevel(a.level).Render(fmt.Sprintf("[%s]", a.level))
		b.WriteString(fmt.Sprintf("  %s %s %s\n", a.time, lvl, a.kind))
		if a.message != "" {
			b.WriteString("      " + a.message + "\n")
		}
	}

	return b.String()
}

func styleForCaptureStatus(status models.CaptureStatus) lipgloss.Style {
	switch status {
	case models.CaptureStatusSent:
		return statusSent
	case models.CaptureStatusPending:
		return statusPending
	case models.CaptureStatusFailed:
		return statusFailed
	default:
		return lipgloss.NewStyle()
	}
}

func styleForLevel(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case observability.LevelError:
		return levelError
	case observability.LevelWarn:
		return levelWarn
	case observability.LevelInfo:
		return levelInfo
	default:
		return lipgloss.NewStyle()
	}
}

// styleForSimilarity colors a match percentage by strength.
func styleForSimilarity(pct int) lipgloss.Style {
	switch {
	case pct >= 80:
		return statusSent
	case pct >= 50:
		return statusPending
	default:
		return helpStyle
	}
}

func loadData() tea.Msg {
	result := dataLoadedMsg{
		statusCounts: make(map[models.CaptureStatus]int),
	}

	if Journal != nil {
		if err := Journal.Load(); err != nil {
			result.err = fmt.Errorf("loading capture journal: %w", err)
			return result
		}
		captures, err := Journal.ListCaptures(models.CaptureFilter{})
		if err != nil {
			result.err = fmt.Errorf("listing captures: %w", err)
			return result
		}
		for i, c := range captures {
			result.statusCounts[c.Status]++
			if i < dashboardRecentCaptures {
				result.recent = append(result.recent, captureSnapshot{
					id:      c.ID,
					status:  c.Status,
					mode:    c.Mode,
					session: c.SessionID,
					length:  c.Length,
					when:    c.CapturedAt,
				})
			}
		}
	}

	since := time.Now().UTC().AddDate(0, 0, -7)

	if MetricsCalc != nil {
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.metrics = &metricsSnapshot{
			capturesSaved:     metrics.CapturesSaved,
			capturesFailed:    metrics.CapturesFailed,
			signalTurns:       metrics.SignalTurns,
			promptsSaved:      metrics.PromptsSaved,
			observationsSaved: metrics.ObservationsSaved,
			contextInjections: metrics.ContextInjections,
			sessions:          metrics.Sessions,
			eventCount:        metrics.EventCount,
		}
	}

	if EventLog != nil {
		events, err := EventLog.Read(observability.EventFilter{Since: &since})
		if err != nil {
			result.err = fmt.Errorf("loading events: %w", err)
			return result
		}
		// Newest first.
		for i := len(events) - 1; i >= 0 && len(result.activity) < dashboardRecentEvents; i-- {
			e := events[i]
			result.activity = append(result.activity, activitySnapshot{
				level:   e.Level,
				kind:    e.Type,
				message: e.Message,
				time:    e.Time.Local().Format("01-02 15:04"),
			})
		}
	}

	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for captures and memory activity",
	Long: `Launch an interactive terminal dashboard showing the capture journal,
capture metrics for the last seven days, and recent hook activity.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
