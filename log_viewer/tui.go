package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jamestexas/apex-log-parsin/internal/apexlog"
)

var (
	// Colors
	highlightColor  = lipgloss.Color("39")  // Blue
	normalColor     = lipgloss.Color("252") // Light gray
	headerColor     = lipgloss.Color("105") // Light purple
	errorColor      = lipgloss.Color("196") // Red
	warnColor       = lipgloss.Color("214") // Orange
	infoColor       = lipgloss.Color("83")  // Green
	jsonKeyColor    = lipgloss.Color("105") // Purple for field names
	jsonStringColor = lipgloss.Color("83")  // Green for values
	jsonNullColor   = lipgloss.Color("245") // Gray for missing values

	// Header style
	headerStyle = lipgloss.NewStyle().
			Foreground(headerColor).
			Bold(true).
			PaddingLeft(1).
			PaddingRight(1).
			MarginBottom(1)

	// Event list styles
	logStyle = lipgloss.NewStyle().
			Foreground(normalColor)

	selectedLogStyle = lipgloss.NewStyle().
				Foreground(highlightColor).
				Bold(true).
				Background(lipgloss.Color("236"))

	// Search overlay style
	searchStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			MarginTop(1)

	// Error style
	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true).
			Padding(1)

	// Detail field styles
	jsonKeyStyle = lipgloss.NewStyle().
			Foreground(jsonKeyColor).
			Bold(true)

	jsonStringStyle = lipgloss.NewStyle().
			Foreground(jsonStringColor)

	jsonNullStyle = lipgloss.NewStyle().
			Foreground(jsonNullColor).
			Italic(true)
)

type Model struct {
	logs             []*apexlog.ParsedLog
	events           []apexlog.Event
	filteredEvents   []apexlog.Event
	types            []apexlog.NodeType // types present in events, for the t cycle
	typeFilter       int                // index into types, -1 for all
	searchTerm       string             // applied search
	selectedLogIndex int
	searchMode       bool
	jumpMode         bool
	searchQuery      string // text being typed
	width            int
	height           int
}

// NewModel builds a browser over the flattened events of every log.
func NewModel(logs []*apexlog.ParsedLog) Model {
	var events []apexlog.Event
	present := map[apexlog.NodeType]bool{}
	for _, log := range logs {
		for _, ev := range log.Events {
			events = append(events, ev)
			present[ev.Type] = true
		}
	}

	var types []apexlog.NodeType
	for t := range present {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return Model{
		logs:           logs,
		events:         events,
		filteredEvents: events,
		types:          types,
		typeFilter:     -1,
	}
}

func filterEvents(events []apexlog.Event, query string) []apexlog.Event {
	if query == "" {
		return events
	}

	var filtered []apexlog.Event
	lowerQuery := strings.ToLower(query)
	for _, ev := range events {
		if strings.Contains(strings.ToLower(searchText(ev)), lowerQuery) {
			filtered = append(filtered, ev)
		}
	}
	return filtered
}

// searchText is everything an event can be found by.
func searchText(ev apexlog.Event) string {
	return strings.Join([]string{
		ev.ID, ev.Type.String(), ev.Name, ev.ElementType, ev.Query, ev.Object, ev.Operation,
		ev.Request, ev.Response, ev.Message, ev.Namespace, ev.Source,
	}, " ")
}

func (m Model) currentType() (apexlog.NodeType, bool) {
	if m.typeFilter < 0 || m.typeFilter >= len(m.types) {
		return 0, false
	}
	return m.types[m.typeFilter], true
}

func (m Model) refilter() Model {
	events := m.events
	if t, ok := m.currentType(); ok {
		events = nil
		for _, log := range m.logs {
			events = append(events, log.Filter(t)...)
		}
	}
	m.filteredEvents = filterEvents(events, m.searchTerm)
	m.selectedLogIndex = 0
	return m
}

// parentOf describes the event's parent as "TYPE label (id)". The root is
// not a flattened event, so it is shown by id alone.
func (m Model) parentOf(ev apexlog.Event) string {
	for _, log := range m.logs {
		if log.Meta.Filename != ev.Source {
			continue
		}
		if parent, ok := log.Find(ev.ParentID); ok {
			if label := parent.Label(); label != "" {
				return fmt.Sprintf("%s %s (%s)", parent.Type, label, parent.ID)
			}
			return fmt.Sprintf("%s (%s)", parent.Type, parent.ID)
		}
	}
	return ev.ParentID
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if (m.searchMode || m.jumpMode) && msg.Type == tea.KeyRunes {
			m.searchQuery += string(msg.Runes)
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.selectedLogIndex > 0 {
				m.selectedLogIndex--
			}
		case "down", "j":
			if m.selectedLogIndex < len(m.filteredEvents)-1 {
				m.selectedLogIndex++
			}
		case "/":
			m.jumpMode = true
			m.searchMode = false
			m.searchQuery = ""
		case "s":
			m.searchMode = true
			m.jumpMode = false
			m.searchQuery = ""
		case "t":
			if len(m.types) > 0 {
				m.typeFilter++
				if m.typeFilter >= len(m.types) {
					m.typeFilter = -1
				}
				m = m.refilter()
			}
		case "esc":
			if !m.searchMode && !m.jumpMode {
				m.searchTerm = ""
				m.typeFilter = -1
				m = m.refilter()
			}
			m.searchMode = false
			m.jumpMode = false
			m.searchQuery = ""
		case "enter":
			if m.jumpMode {
				if num, err := strconv.Atoi(m.searchQuery); err == nil {
					// Convert from 1-based (user input) to 0-based (internal index)
					targetIdx := num - 1
					if targetIdx >= 0 && targetIdx < len(m.filteredEvents) {
						m.selectedLogIndex = targetIdx
					}
				}
				m.jumpMode = false
				m.searchQuery = ""
			} else if m.searchMode {
				m.searchTerm = m.searchQuery
				m = m.refilter()
				m.searchMode = false
				m.searchQuery = ""
			}
		case "backspace":
			if len(m.searchQuery) > 0 {
				m.searchQuery = m.searchQuery[:len(m.searchQuery)-1]
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m Model) View() string {
	if len(m.filteredEvents) == 0 {
		if len(m.events) > 0 {
			return errorStyle.Render("No events match. Press 'esc' to clear filters or 'q' to quit.")
		}
		return errorStyle.Render("No events found. Press 'q' to quit.")
	}

	filter := "all"
	if t, ok := m.currentType(); ok {
		filter = t.String()
	}
	if m.searchTerm != "" {
		filter += fmt.Sprintf(" matching %q", m.searchTerm)
	}
	header := headerStyle.Render(fmt.Sprintf(
		"Event %d of %d (%s) | Press 's' to search, '/' to jump, 't' to filter by type, 'q' to quit",
		m.selectedLogIndex+1,
		len(m.filteredEvents),
		filter,
	))

	// Reserve space for the header; the list gets 40%, details the rest.
	mainHeight := m.height - 4
	if mainHeight < 0 {
		mainHeight = 0
	}
	listHeight := (mainHeight * 40) / 100
	detailHeight := mainHeight - listHeight

	// Ensure minimum heights
	if listHeight < 5 {
		listHeight = 5
	}
	if detailHeight < 10 {
		detailHeight = 10
	}

	eventList := renderEventList(m.filteredEvents, m.selectedLogIndex, m.width, listHeight)
	selected := m.filteredEvents[m.selectedLogIndex]
	detailView := renderDetailView(selected, m.parentOf(selected), m.width, detailHeight)

	mainContent := lipgloss.JoinVertical(lipgloss.Left, eventList, detailView)

	if m.searchMode || m.jumpMode {
		mode := "Search"
		if m.jumpMode {
			mode = "Jump to event"
		}
		overlay := searchStyle.Render(fmt.Sprintf("%s: %s", mode, m.searchQuery))
		return lipgloss.JoinVertical(lipgloss.Left, header, mainContent, overlay)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, mainContent)
}

func renderEventList(events []apexlog.Event, selectedIdx, width, height int) string {
	if len(events) == 0 {
		return ""
	}

	var builder strings.Builder
	listStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(normalColor).
		Width(width - 2).
		Height(height).
		BorderBottom(true)

	builder.WriteString(headerStyle.Render("Events (use ↑↓ to navigate)") + "\n")

	// Calculate available lines for events
	availableLines := height - 4 // Account for border, title, and padding
	if availableLines < 0 {
		availableLines = 0
	}

	// Calculate visible range
	startIdx := selectedIdx - (availableLines / 2)
	if startIdx < 0 {
		startIdx = 0
	}
	endIdx := startIdx + availableLines
	if endIdx > len(events) {
		endIdx = len(events)
		startIdx = endIdx - availableLines
		if startIdx < 0 {
			startIdx = 0
		}
	}

	for i := startIdx; i < endIdx && i < len(events); i++ {
		ev := events[i]

		cursor := "  "
		if i == selectedIdx {
			cursor = "▶ "
		}
		prefix := fmt.Sprintf("%s%4d:", cursor, i+1)
		line := fmt.Sprintf("%s %s", prefix, formatEventPreview(ev, width-len(prefix)-6))

		style := logStyle
		if i == selectedIdx {
			style = selectedLogStyle
		}
		switch {
		case ev.Type == apexlog.NodeException:
			style = style.Foreground(errorColor)
		case !ev.Closed():
			style = style.Foreground(warnColor)
		case ev.Type == apexlog.NodeSOQL || ev.Type == apexlog.NodeDML:
			style = style.Foreground(infoColor)
		}

		builder.WriteString(style.Render(line) + "\n")
	}

	return listStyle.Render(builder.String())
}

func formatEventPreview(ev apexlog.Event, maxWidth int) string {
	parts := []string{fmt.Sprintf("%-20s", ev.Type)}
	if ev.Closed() {
		parts = append(parts, fmt.Sprintf("%9.3fms", ev.Duration()))
	} else {
		parts = append(parts, fmt.Sprintf("%11s", "open"))
	}
	if label := strings.Join(strings.Fields(ev.Label()), " "); label != "" {
		parts = append(parts, label)
	}
	return truncate(strings.Join(parts, " "), maxWidth)
}

func renderDetailView(ev apexlog.Event, parent string, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	detailStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(normalColor).
		Padding(0, 1).
		Width(width - 2).
		Height(height). // Does not include border
		BorderTop(false)

	var builder strings.Builder
	builder.WriteString(headerStyle.Render("Event Details") + "\n\n")

	for _, group := range detailGroups(ev, parent) {
		builder.WriteString(lipgloss.NewStyle().
			Bold(true).
			Foreground(headerColor).
			Render(group.name) + "\n")

		hasData := false
		for _, f := range group.fields {
			if f.value != "-" {
				hasData = true
			}
			fieldStr := jsonKeyStyle.Render(fmt.Sprintf("%-30s", f.name))
			builder.WriteString(fmt.Sprintf("%s: %s\n", fieldStr, formatFieldValue(f.value)))
		}
		if !hasData {
			builder.WriteString(jsonNullStyle.Render("No data available\n"))
		}
		builder.WriteString("\n")
	}

	return detailStyle.Render(builder.String())
}

type detailField struct {
	name  string
	value string
}

type detailGroup struct {
	name   string
	fields []detailField
}

func detailGroups(ev apexlog.Event, parent string) []detailGroup {
	groups := []detailGroup{
		{"Event", []detailField{
			{"id", orDash(ev.ID)},
			{"parent", orDash(parent)},
			{"type", ev.Type.String()},
			{"name", orDash(ev.Name)},
			{"line", intOrDash(ev.LineNumber)},
			{"source", orDash(ev.Source)},
		}},
		{"Timing", []detailField{
			{"start (ns)", strconv.FormatInt(ev.TimeStart, 10)},
			{"end (ns)", endOrDash(ev.TimeEnd)},
			{"duration", durationOrDash(ev.DurationMs)},
		}},
	}

	switch ev.Type {
	case apexlog.NodeSOQL, apexlog.NodeDML:
		groups = append(groups, detailGroup{"Database", []detailField{
			{"operation", orDash(ev.Operation)},
			{"object", orDash(ev.Object)},
			{"rows", rowsOrDash(ev.Rows)},
			{"query", orDash(ev.Query)},
		}})
	case apexlog.NodeCallout:
		groups = append(groups, detailGroup{"Callout", []detailField{
			{"request", orDash(ev.Request)},
			{"response", orDash(ev.Response)},
			{"named credential request", orDash(ev.NamedCredentialRequest)},
			{"named credential response", orDash(ev.NamedCredentialResponse)},
			{"named credential detail", orDash(ev.NamedCredentialResponseDetail)},
		}})
	case apexlog.NodeException:
		groups = append(groups, detailGroup{"Exception", []detailField{
			{"message", orDash(ev.Message)},
		}})
	case apexlog.NodeFlowElement, apexlog.NodeFlowBulkElement:
		groups = append(groups, detailGroup{"Flow", []detailField{
			{"element type", orDash(ev.ElementType)},
		}})
	case apexlog.NodeLimit:
		groups = append(groups, limitGroup(ev))
	}
	return groups
}

func limitGroup(ev apexlog.Event) detailGroup {
	group := detailGroup{name: "Limits " + ev.Namespace}
	if ev.Limits == nil {
		return group
	}
	l := ev.Limits
	for _, row := range []struct {
		name  string
		usage apexlog.LimitUsage
	}{
		{"SOQL queries", l.SOQLQueries},
		{"query rows", l.QueryRows},
		{"SOSL queries", l.SOSLQueries},
		{"DML statements", l.DMLStatements},
		{"DML rows", l.DMLRows},
		{"CPU time", l.CPUTime},
		{"heap size", l.HeapSize},
		{"callouts", l.Callouts},
		{"email invocations", l.EmailInvocations},
		{"future calls", l.FutureCalls},
		{"queueable jobs", l.QueueableJobs},
		{"mobile push calls", l.MobilePushCalls},
	} {
		value := fmt.Sprintf("%d / %d (%d%%)", row.usage.Current, row.usage.Max, row.usage.UsagePercentage)
		group.fields = append(group.fields, detailField{row.name, value})
	}
	return group
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func intOrDash(n int) string {
	if n == 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

func rowsOrDash(rows *int) string {
	if rows == nil {
		return "-"
	}
	return strconv.Itoa(*rows)
}

func endOrDash(end *int64) string {
	if end == nil {
		return "-"
	}
	return strconv.FormatInt(*end, 10)
}

func durationOrDash(d *float64) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%.3fms", *d)
}

func formatFieldValue(value string) string {
	if value == "-" {
		return jsonNullStyle.Render("-")
	}
	return jsonStringStyle.Render(value)
}

func truncate(input string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	inputRunes := []rune(input)
	if len(inputRunes) <= maxLen {
		return input
	}

	if maxLen <= 3 {
		return strings.Repeat(".", maxLen)
	}

	return string(inputRunes[:maxLen-3]) + "..."
}
