// Package tui implements the spmtop terminal monitor: a live view of the
// partition manager's services and request journal, polled over the
// inspection API.
package tui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// --- Styles ---

var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD"))

	statusOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	statusBusy   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
	statusFailed = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1)
)

// --- Types ---

type serviceRow struct {
	SID          uint32 `json:"sid"`
	Name         string `json:"name"`
	MinorVersion uint32 `json:"minor_version"`
	NonSecure    bool   `json:"non_secure"`
	Pending      int    `json:"pending"`
	OpenHandles  int    `json:"open_handles"`
}

type journalRow struct {
	SID       uint32    `json:"sid"`
	Kind      string    `json:"kind"`
	Trust     string    `json:"trust"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

type statusMsg struct {
	FrameworkVersion string         `json:"framework_version"`
	UptimeSeconds    int64          `json:"uptime_seconds"`
	InFlight         int            `json:"in_flight"`
	Outcomes         map[string]int `json:"outcomes"`
	Services         []serviceRow   `json:"services"`
}

type journalMsg struct {
	Entries []journalRow `json:"entries"`
}

type errMsg error

type Model struct {
	apiURL string
	apiKey string

	width  int
	height int

	status  statusMsg
	entries []journalRow

	serviceTable table.Model
	viewport     viewport.Model

	connected bool
	lastError string
}

// --- Init ---

func NewMonitor(apiURL, apiKey string) *Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "SID", Width: 10},
			{Title: "Service", Width: 20},
			{Title: "Ver", Width: 5},
			{Title: "NS", Width: 3},
			{Title: "Pending", Width: 8},
			{Title: "Handles", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return &Model{
		apiURL:       apiURL,
		apiKey:       apiKey,
		serviceTable: t,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.pollStatus(),
		m.pollJournal(),
		tea.EnterAltScreen,
	)
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.serviceTable.SetWidth(m.width - 6)
		m.viewport.Width = m.width - 6
		m.viewport.Height = m.height / 3

	case statusMsg:
		m.status = msg
		m.connected = true
		m.lastError = ""
		m.updateTable()
		return m, tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
			return m.fetchStatus()
		})

	case journalMsg:
		m.entries = msg.Entries
		return m, tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
			return m.fetchJournal()
		})

	case errMsg:
		m.connected = false
		m.lastError = msg.Error()
		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return m.fetchStatus()
		})
	}

	m.serviceTable, cmd = m.serviceTable.Update(msg)
	return m, cmd
}

func (m *Model) updateTable() {
	rows := make([]table.Row, 0, len(m.status.Services))
	for _, s := range m.status.Services {
		ns := "-"
		if s.NonSecure {
			ns = "✓"
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%#x", s.SID),
			s.Name,
			fmt.Sprintf("1.%d", s.MinorVersion),
			ns,
			fmt.Sprintf("%d", s.Pending),
			fmt.Sprintf("%d", s.OpenHandles),
		})
	}
	m.serviceTable.SetRows(rows)
}

// --- View ---

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	header := m.renderHeader()
	services := borderStyle.Width(m.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Services"),
			m.serviceTable.View(),
		),
	)

	journalView := borderStyle.Width(m.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Request Journal"),
			m.renderJournal(),
		),
	)

	help := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(" [q] Quit • [↑/↓] Scroll Services")

	parts := []string{header, services, journalView}
	if m.lastError != "" {
		parts = append(parts, statusFailed.Render(fmt.Sprintf(" ⚠ %s", m.lastError)))
	}
	parts = append(parts, help)

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) renderHeader() string {
	status := statusOK.Render("RUNNING")
	if !m.connected {
		status = statusFailed.Render("OFFLINE")
	}

	uptime := time.Duration(m.status.UptimeSeconds) * time.Second
	faults := m.status.Outcomes["fault"]
	faultStr := fmt.Sprintf("Faults: %d", faults)
	if faults > 0 {
		faultStr = statusFailed.Render(faultStr)
	}

	items := []string{
		fmt.Sprintf("Status: %s", status),
		fmt.Sprintf("Framework: %s", m.status.FrameworkVersion),
		fmt.Sprintf("Uptime: %s", uptime.String()),
		fmt.Sprintf("In-flight: %d", m.status.InFlight),
		faultStr,
	}

	cols := make([]string, 0, len(items))
	colWidth := (m.width - 4) / len(items)
	for _, item := range items {
		cols = append(cols, lipgloss.NewStyle().Width(colWidth).Render(item))
	}

	return borderStyle.Width(m.width - 4).Render(
		lipgloss.JoinHorizontal(lipgloss.Top, cols...),
	)
}

func (m Model) renderJournal() string {
	var lines []string
	for i, e := range m.entries {
		if i >= 10 {
			break
		}
		ts := e.CreatedAt.Format("15:04:05")
		outcome := e.Outcome
		switch e.Outcome {
		case "enqueued":
			outcome = statusOK.Render(outcome)
		case "busy":
			outcome = statusBusy.Render(outcome)
		case "fault":
			outcome = statusFailed.Render(outcome)
		}
		line := fmt.Sprintf("%s | %#10x | %-9s | %-10s | %s", ts, e.SID, e.Kind, outcome, e.Trust)
		if e.Detail != "" {
			line += " | " + e.Detail
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return "  No journal entries yet..."
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
}

// --- Commands ---

func (m Model) pollStatus() tea.Cmd {
	return func() tea.Msg {
		return m.fetchStatus()
	}
}

func (m Model) pollJournal() tea.Cmd {
	return func() tea.Msg {
		return m.fetchJournal()
	}
}

func (m Model) fetchStatus() tea.Msg {
	var s statusMsg
	if err := m.fetchJSON("/v1/status", &s); err != nil {
		return errMsg(err)
	}
	return s
}

func (m Model) fetchJournal() tea.Msg {
	var j journalMsg
	if err := m.fetchJSON("/v1/journal?limit=10", &j); err != nil {
		return errMsg(err)
	}
	return j
}

func (m Model) fetchJSON(path string, out any) error {
	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest("GET", m.apiURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
