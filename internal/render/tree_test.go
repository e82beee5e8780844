package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamestexas/apex-log-parsin/internal/apexlog"
)

func printTree(t *testing.T, p *TreePrinter, log *apexlog.ParsedLog) []string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, p.Print(&buf, log))
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func TestTreePrinter(t *testing.T) {
	p := &TreePrinter{BarWidth: 10}

	lines := printTree(t, p, apexlog.Parse(sampleLog, "sample.log"))

	assert.Equal(t, []string{
		"sample.log  10.000ms  0.000MB",
		"└─ EXECUTION 10.000ms ██████████",
		"   └─ CODE_UNIT Foo 8.000ms ████████",
		"      └─ SOQL SELECT Id FROM Account [3 rows] 2.000ms ██",
	}, lines)
}

func TestTreePrinterMinDuration(t *testing.T) {
	text := `64.0 APEX_CODE,FINEST
12:00:00.000 (0)|CODE_UNIT_STARTED|[EXTERNAL]|Foo
12:00:00.000 (100)|METHOD_ENTRY|[1]|Foo.fast()
12:00:00.000 (200)|METHOD_EXIT|[1]|Foo.fast()
12:00:00.001 (1000000)|METHOD_ENTRY|[2]|Foo.slow()
12:00:00.005 (5000000)|METHOD_EXIT|[2]|Foo.slow()
12:00:00.006 (6000000)|CODE_UNIT_FINISHED|Foo`
	p := &TreePrinter{MinDurationMs: 1}

	lines := printTree(t, p, apexlog.Parse(text, "min.log"))

	assert.Equal(t, []string{
		"min.log  6.000ms  0.000MB",
		"└─ CODE_UNIT Foo 6.000ms",
		"   ├─ METHOD Foo.slow() 4.000ms",
		"   └─ 1 faster than 1.000ms",
	}, lines)
}

func TestTreePrinterOpenNodesAndAnomalies(t *testing.T) {
	text := "64.0 APEX_CODE,FINEST\n12:00:00.000 (0)|EXECUTION_STARTED"
	p := &TreePrinter{BarWidth: 10}

	lines := printTree(t, p, apexlog.Parse(text, "cut.log"))

	require.Len(t, lines, 3)
	assert.Equal(t, "└─ EXECUTION (open)", lines[1])
	assert.Contains(t, lines[2], "EOF")
}

func TestTreePrinterTruncatesLabels(t *testing.T) {
	p := &TreePrinter{MaxLabelWidth: 10}
	n := &apexlog.TreeNode{Node: apexlog.Node{Type: apexlog.NodeMethod, Name: "VeryLongClassName.method()"}}

	assert.Equal(t, "VeryLon...", p.label(n))
}

func TestBar(t *testing.T) {
	p := &TreePrinter{BarWidth: 20}

	assert.Equal(t, "", p.bar(5, 0))
	assert.Equal(t, "", p.bar(0, 10))
	assert.Equal(t, "█", p.bar(0.01, 10))
	assert.Equal(t, strings.Repeat("█", 10), p.bar(5, 10))
	assert.Equal(t, strings.Repeat("█", 20), p.bar(50, 10))
}

func TestSummary(t *testing.T) {
	s := Summary(apexlog.Parse(sampleLog, "sample.log"))

	assert.Equal(t, "sample.log: 3 events, 10.000ms [EXECUTION(10.000ms)]", s)
}
