package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamestexas/apex-log-parsin/internal/apexlog"
)

// DefaultBarWidth is the width of a bar for a node as long as the whole log.
const DefaultBarWidth = 20

var (
	guideStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	durationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	barStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("105")).Bold(true)
	openStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)

	typeStyles = map[apexlog.NodeType]lipgloss.Style{
		apexlog.NodeExecution:          lipgloss.NewStyle().Foreground(lipgloss.Color("105")).Bold(true),
		apexlog.NodeCodeUnit:           lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		apexlog.NodeMethod:             lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		apexlog.NodeSOQL:               lipgloss.NewStyle().Foreground(lipgloss.Color("83")),
		apexlog.NodeDML:                lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		apexlog.NodeException:          lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		apexlog.NodeFlow:               lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		apexlog.NodeFlowStartInterview: lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		apexlog.NodeFlowElement:        lipgloss.NewStyle().Foreground(lipgloss.Color("177")),
		apexlog.NodeFlowBulkElement:    lipgloss.NewStyle().Foreground(lipgloss.Color("177")),
		apexlog.NodeManagedPkg:         lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		apexlog.NodeCallout:            lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		apexlog.NodeLimit:              lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	}
)

// TreePrinter draws a parsed log as an indented tree with a duration bar per
// node, scaled to the log's total duration.
type TreePrinter struct {
	BarWidth      int
	Color         bool
	MinDurationMs float64
	MaxLabelWidth int
}

// NewTreePrinter returns a colored TreePrinter with default widths.
func NewTreePrinter() *TreePrinter {
	return &TreePrinter{BarWidth: DefaultBarWidth, Color: true, MaxLabelWidth: 80}
}

// Print writes the tree of log to w.
func (p *TreePrinter) Print(w io.Writer, log *apexlog.ParsedLog) error {
	var sb strings.Builder
	header := fmt.Sprintf("%s  %.3fms  %.3fMB", log.Meta.Filename, log.Meta.DurationMs, log.Meta.SizeMb)
	if log.User != "" {
		header += "  " + log.User
	}
	sb.WriteString(p.style(headerStyle, header) + "\n")

	if log.Tree != nil {
		p.children(&sb, log.Tree, "", log.Meta.DurationMs)
	}
	for _, a := range log.Anomalies {
		sb.WriteString(p.style(openStyle, fmt.Sprintf("! line %d %s: %s", a.Line, a.Event, a.Reason)) + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (p *TreePrinter) children(sb *strings.Builder, n *apexlog.TreeNode, prefix string, total float64) {
	shown := make([]*apexlog.TreeNode, 0, len(n.Children))
	hidden := 0
	for _, child := range n.Children {
		if p.MinDurationMs > 0 && child.Closed() && child.Duration() < p.MinDurationMs {
			hidden++
			continue
		}
		shown = append(shown, child)
	}

	for i, child := range shown {
		last := i == len(shown)-1 && hidden == 0
		branch, indent := "├─ ", "│  "
		if last {
			branch, indent = "└─ ", "   "
		}
		sb.WriteString(p.style(guideStyle, prefix+branch) + p.line(child, total) + "\n")
		p.children(sb, child, prefix+indent, total)
	}
	if hidden > 0 {
		note := fmt.Sprintf("%d faster than %.3fms", hidden, p.MinDurationMs)
		sb.WriteString(p.style(guideStyle, prefix+"└─ ") + p.style(openStyle, note) + "\n")
	}
}

func (p *TreePrinter) line(n *apexlog.TreeNode, total float64) string {
	parts := []string{p.style(typeStyles[n.Type], n.Type.String())}
	if label := p.label(n); label != "" {
		parts = append(parts, label)
	}

	if !n.Closed() {
		parts = append(parts, p.style(openStyle, "(open)"))
		return strings.Join(parts, " ")
	}
	parts = append(parts, p.style(durationStyle, fmt.Sprintf("%.3fms", n.Duration())))
	if bar := p.bar(n.Duration(), total); bar != "" {
		parts = append(parts, p.style(barStyle, bar))
	}
	return strings.Join(parts, " ")
}

func (p *TreePrinter) label(n *apexlog.TreeNode) string {
	label := strings.Join(strings.Fields(n.Label()), " ")
	if n.Type == apexlog.NodeSOQL && n.Rows != nil {
		label += fmt.Sprintf(" [%d rows]", *n.Rows)
	}
	if n.Type == apexlog.NodeLimit && n.Limits != nil {
		label += fmt.Sprintf(" soql %d%% dml %d%% cpu %d%% heap %d%%",
			n.Limits.SOQLQueries.UsagePercentage, n.Limits.DMLStatements.UsagePercentage,
			n.Limits.CPUTime.UsagePercentage, n.Limits.HeapSize.UsagePercentage)
	}
	if p.MaxLabelWidth > 3 && len([]rune(label)) > p.MaxLabelWidth {
		label = string([]rune(label)[:p.MaxLabelWidth-3]) + "..."
	}
	return strings.TrimSpace(label)
}

// bar returns a run of block characters proportional to d/total. Any
// non-zero duration gets at least one block.
func (p *TreePrinter) bar(d, total float64) string {
	if p.BarWidth <= 0 || total <= 0 || d <= 0 {
		return ""
	}
	n := int(d / total * float64(p.BarWidth))
	if n < 1 {
		n = 1
	}
	if n > p.BarWidth {
		n = p.BarWidth
	}
	return strings.Repeat("█", n)
}

func (p *TreePrinter) style(s lipgloss.Style, text string) string {
	if !p.Color {
		return text
	}
	return s.Render(text)
}

// Summary is a one-line description of log: its top-level nodes, total
// duration and the number of anomalies.
func Summary(log *apexlog.ParsedLog) string {
	var top []string
	if log.Tree != nil {
		for _, child := range log.Tree.Children {
			top = append(top, fmt.Sprintf("%s(%.3fms)", child.Type, child.Duration()))
		}
	}
	s := fmt.Sprintf("%s: %d events, %.3fms", log.Meta.Filename, len(log.Events), log.Meta.DurationMs)
	if len(top) > 0 {
		s += " [" + strings.Join(top, " ") + "]"
	}
	if len(log.Anomalies) > 0 {
		s += fmt.Sprintf(", %d anomalies", len(log.Anomalies))
	}
	return s
}
