package apexlog

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Option configures a Parser.
type Option func(*Parser)

// WithIDWidth sets the number of digits in generated node ids.
func WithIDWidth(width int) Option {
	return func(p *Parser) {
		p.idWidth = width
	}
}

// Parser turns debug log text into a ParsedLog. Builders are pooled and
// reset between calls, so one Parser may be shared by concurrent callers.
type Parser struct {
	idWidth  int
	builders sync.Pool
}

// NewParser returns a Parser with the given options applied.
func NewParser(opts ...Option) *Parser {
	p := &Parser{idWidth: DefaultIDWidth}
	for _, opt := range opts {
		opt(p)
	}
	p.builders.New = func() any {
		return newBuilder(p.idWidth)
	}
	return p
}

// Parse parses one debug log with the default options.
func Parse(text, filename string) *ParsedLog {
	return NewParser().Parse(text, filename)
}

// Parse builds the call tree for text. It never fails: malformed records
// are skipped, bad fields default to zero and unbalanced markers are
// recovered from, with each recovery listed in ParsedLog.Anomalies.
func (p *Parser) Parse(text, filename string) *ParsedLog {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	levels := []LogLevel{}
	start := 0
	if len(lines) > 0 && !isRecordStart(lines[0]) {
		if declaresLevels(lines[0]) {
			levels = ParseLogLevels(lines[0])
		}
		start = 1
	}

	b := p.builder()
	defer p.builders.Put(b)
	for _, rec := range segment(lines, start) {
		b.feed(rec)
	}
	b.finish()

	return &ParsedLog{
		Meta: Meta{
			Filename:   filename,
			DurationMs: round3(totalDuration(b.root)),
			SizeMb:     round3(float64(len(text)) / (1024 * 1024)),
		},
		LogLevel:  levels,
		User:      b.user,
		Tree:      b.root,
		Events:    Flatten(b.root, filename),
		Anomalies: b.anomalies,
		Stats:     b.stats,
	}
}

// builder takes a pooled builder and resets it for a new log.
func (p *Parser) builder() *builder {
	b, ok := p.builders.Get().(*builder)
	if !ok {
		b = newBuilder(p.idWidth)
	}
	b.reset()
	return b
}

// chunk is the raw text of one event record and the 1-based line it starts on.
type chunk struct {
	line int
	text string
}

// segment groups lines into records. A record runs from a line carrying a
// timing field up to the next such line, so multi-line payloads (limit
// blocks, wrapped debug output) stay with the record they belong to.
func segment(lines []string, start int) []chunk {
	var chunks []chunk
	open := false
	for i := start; i < len(lines); i++ {
		line := lines[i]
		if isRecordStart(line) || !open {
			chunks = append(chunks, chunk{line: i + 1, text: line})
			open = isRecordStart(line)
			continue
		}
		chunks[len(chunks)-1].text += "\n" + line
	}
	return chunks
}

// record is one decoded event record.
type record struct {
	line    int
	time    int64
	tag     string
	event   EventType
	payload []string
}

// builder owns the tree being built and the stack of open frames. The bottom
// of the stack is always the root.
type builder struct {
	ids       *IDGenerator
	root      *TreeNode
	stack     []*TreeNode
	user      string
	anomalies []Anomaly
	stats     Stats
}

func newBuilder(idWidth int) *builder {
	b := &builder{ids: NewIDGenerator(idWidth)}
	b.reset()
	return b
}

// reset starts a new tree. Everything handed out by the previous log is
// left to its ParsedLog; only the stack's backing array is reused.
func (b *builder) reset() {
	b.ids.Reset()
	b.user = ""
	b.anomalies = nil
	b.stats = Stats{Nodes: map[NodeType]int{}}
	b.root = &TreeNode{Node: Node{ID: b.ids.Next(), Type: NodeRoot}, Children: []*TreeNode{}}
	b.stats.Nodes[NodeRoot]++
	clear(b.stack)
	b.stack = append(b.stack[:0], b.root)
}

func (b *builder) current() *TreeNode {
	return b.stack[len(b.stack)-1]
}

// feed decodes one record and applies it.
func (b *builder) feed(c chunk) {
	fields := strings.Split(c.text, "|")
	if len(fields) < 2 {
		b.stats.Skipped++
		return
	}
	b.stats.Records++

	tag := strings.TrimSpace(fields[1])
	if i := strings.IndexByte(tag, '\n'); i >= 0 {
		tag = strings.TrimSpace(tag[:i])
	}
	rec := record{
		line:    c.line,
		time:    ParseTimestamp(fields[0]),
		tag:     tag,
		event:   ParseEventType(tag),
		payload: fields[2:],
	}
	if rec.event == EventUnknown {
		b.stats.UnknownTags++
	}
	b.apply(rec)
}

// apply is the transition function: it mutates the stack and tree for one
// record.
func (b *builder) apply(rec record) {
	top := b.current()
	if top.Type == NodeManagedPkg {
		if rec.event == EventEnteringManagedPkg && lastField(rec.payload) == top.Name {
			return
		}
		b.pop(rec.time)
	}

	if typ, ok := rec.event.Opens(); ok {
		node := b.open(rec, typ)
		fillNode(&node.Node, rec)
		return
	}

	if target, ok := rec.event.Closes(); ok {
		top := b.current()
		switch {
		case rec.event == EventSOQLExecuteEnd && top.Type == NodeSOQL:
			rows := ParseRowCount(lastField(rec.payload))
			top.Rows = &rows
		case rec.event == EventCalloutResponse && top.Type == NodeCallout:
			top.Response = lastField(rec.payload)
		}
		b.close(rec, target)
		return
	}

	switch rec.event {
	case EventUserInfo:
		if len(rec.payload) >= 3 {
			b.user = strings.TrimSpace(rec.payload[2])
		} else {
			b.user = lastField(rec.payload)
		}
	case EventLimitUsageForNS:
		node := b.leaf(rec, NodeLimit)
		if len(rec.payload) > 0 {
			node.Namespace = strings.TrimSpace(rec.payload[0])
		}
		limits := ParseLimits(joinFrom(rec.payload, 1))
		node.Limits = &limits
	case EventNamedCredentialRequest, EventNamedCredentialResponse, EventNamedCredentialResponseDetail:
		top := b.current()
		if top.Type != NodeCallout {
			return
		}
		value := joinFrom(rec.payload, 0)
		switch rec.event {
		case EventNamedCredentialRequest:
			top.NamedCredentialRequest = value
		case EventNamedCredentialResponse:
			top.NamedCredentialResponse = value
		default:
			top.NamedCredentialResponseDetail = value
		}
	case EventFatalError:
		node := b.leaf(rec, NodeException)
		node.Message = joinFrom(rec.payload, 0)
		b.unwindFatal(rec.time)
	}
}

// open creates a node under the current frame and pushes it.
func (b *builder) open(rec record, typ NodeType) *TreeNode {
	parent := b.current()
	node := &TreeNode{
		Node: Node{
			ID:        b.ids.Next(),
			ParentID:  parent.ID,
			Type:      typ,
			TimeStart: rec.time,
		},
		Children: []*TreeNode{},
	}
	parent.Children = append(parent.Children, node)
	b.stack = append(b.stack, node)
	b.stats.Nodes[typ]++
	return node
}

// leaf creates a node under the current frame that is closed immediately.
func (b *builder) leaf(rec record, typ NodeType) *TreeNode {
	node := b.open(rec, typ)
	b.pop(rec.time)
	return node
}

// close finalizes the nearest open frame of the target variant, along with
// every frame opened after it. Frames above the target were abandoned by
// the log (truncation, lost events) and are reported. When no frame of the
// target variant is open, every frame above the root is finalized and the
// close itself is reported.
func (b *builder) close(rec record, target NodeType) {
	idx := -1
	for i := len(b.stack) - 1; i > 0; i-- {
		if b.stack[i].Type == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.anomaly(rec.line, rec.tag, fmt.Sprintf("no open %s to close", target))
		for len(b.stack) > 1 {
			b.pop(rec.time)
		}
		return
	}
	for len(b.stack)-1 > idx {
		abandoned := b.current()
		if abandoned.Type != NodeManagedPkg {
			b.anomaly(rec.line, rec.tag, fmt.Sprintf("%s %s closed without its end event", abandoned.Type, abandoned.ID))
		}
		b.pop(rec.time)
	}
	b.pop(rec.time)
}

// unwindFatal closes every frame up to and including the nearest code unit.
// The root is never closed.
func (b *builder) unwindFatal(at int64) {
	for len(b.stack) > 1 {
		closed := b.pop(at)
		if closed.Type == NodeCodeUnit {
			return
		}
	}
}

// pop finalizes the top frame and returns it. The root is never popped.
func (b *builder) pop(at int64) *TreeNode {
	if len(b.stack) <= 1 {
		return b.root
	}
	node := b.current()
	b.stack = b.stack[:len(b.stack)-1]
	end := at
	duration := round3(float64(end-node.TimeStart) / 1e6)
	node.TimeEnd = &end
	node.DurationMs = &duration
	return node
}

// finish reports frames the log never closed. They keep no end time.
func (b *builder) finish() {
	for i := len(b.stack) - 1; i > 0; i-- {
		n := b.stack[i]
		b.anomaly(0, "EOF", fmt.Sprintf("%s %s still open at end of log", n.Type, n.ID))
	}
}

func (b *builder) anomaly(line int, event, reason string) {
	b.anomalies = append(b.anomalies, Anomaly{Line: line, Event: event, Reason: reason})
}

// fillNode copies the payload of an opening record onto its node.
func fillNode(n *Node, rec record) {
	p := rec.payload
	switch rec.event {
	case EventCodeUnitStarted, EventFlowStartInterviewBegin, EventFlowStartInterviewsBegin, EventEnteringManagedPkg:
		n.Name = lastField(p)
	case EventMethodEntry:
		n.LineNumber = ParseLineNumber(firstField(p))
		n.Name = lastField(p)
	case EventSOQLExecuteBegin:
		n.LineNumber = ParseLineNumber(firstField(p))
		if len(p) >= 3 {
			n.Query = joinFrom(p, 2)
		} else {
			n.Query = lastField(p)
		}
		n.Object = ParseSOQLObject(n.Query)
	case EventDMLBegin:
		n.LineNumber = ParseLineNumber(firstField(p))
		n.Operation, _ = lookupField(p, "Op")
		n.Object, _ = lookupField(p, "Type")
		if v, ok := lookupField(p, "Rows"); ok {
			rows := ParseRowCount(v)
			n.Rows = &rows
		}
	case EventFlowElementBegin, EventFlowBulkElementBegin:
		n.Name = lastField(p)
		if len(p) >= 2 {
			n.ElementType = strings.TrimSpace(p[len(p)-2])
		}
	case EventCalloutRequest:
		n.LineNumber = ParseLineNumber(firstField(p))
		n.Request = lastField(p)
	}
}

func firstField(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimSpace(fields[0])
}

func lastField(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimSpace(fields[len(fields)-1])
}

// joinFrom rejoins payload fields from index i on, restoring any '|' that
// belonged to free text.
func joinFrom(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(strings.Join(fields[i:], "|"))
}

func totalDuration(root *TreeNode) float64 {
	var total float64
	for _, child := range root.Children {
		total += child.Duration()
	}
	return total
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
