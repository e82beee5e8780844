// Package apexlog reconstructs the call tree of a Salesforce Apex debug log.
package apexlog

import (
	"fmt"
	"strings"
)

// NodeType is the variant of a TreeNode.
type NodeType int

const (
	NodeRoot NodeType = iota
	NodeCodeUnit
	NodeMethod
	NodeSOQL
	NodeDML
	NodeException
	NodeExecution
	NodeFlow
	NodeFlowElement
	NodeFlowStartInterview
	NodeFlowBulkElement
	NodeManagedPkg
	NodeCallout
	NodeLimit
)

var nodeTypeNames = [...]string{
	NodeRoot:               "ROOT",
	NodeCodeUnit:           "CODE_UNIT",
	NodeMethod:             "METHOD",
	NodeSOQL:               "SOQL",
	NodeDML:                "DML",
	NodeException:          "EXCEPTION",
	NodeExecution:          "EXECUTION",
	NodeFlow:               "FLOW",
	NodeFlowElement:        "FLOW_ELEMENT",
	NodeFlowStartInterview: "FLOW_START_INTERVIEW",
	NodeFlowBulkElement:    "FLOW_BULK_ELEMENT",
	NodeManagedPkg:         "MANAGED_PKG",
	NodeCallout:            "CALLOUT",
	NodeLimit:              "LIMIT",
}

// NodeTypes lists every variant in declaration order.
func NodeTypes() []NodeType {
	types := make([]NodeType, len(nodeTypeNames))
	for i := range nodeTypeNames {
		types[i] = NodeType(i)
	}
	return types
}

func (t NodeType) String() string {
	if t < 0 || int(t) >= len(nodeTypeNames) {
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
	return nodeTypeNames[t]
}

// ParseNodeType maps a variant name such as "SOQL" back to its NodeType.
func ParseNodeType(s string) (NodeType, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range nodeTypeNames {
		if name == s {
			return NodeType(i), true
		}
	}
	return 0, false
}

func (t NodeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *NodeType) UnmarshalText(b []byte) error {
	parsed, ok := ParseNodeType(string(b))
	if !ok {
		return fmt.Errorf("unknown node type %q", string(b))
	}
	*t = parsed
	return nil
}

// Node holds the fields of a single observed operation. TimeEnd and
// DurationMs stay nil while the node is open; only the close protocol sets them.
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	ParentID string   `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	Type     NodeType `json:"type" yaml:"type"`

	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	ElementType string `json:"elementType,omitempty" yaml:"elementType,omitempty"`
	LineNumber  int    `json:"lineNumber,omitempty" yaml:"lineNumber,omitempty"`

	Query     string `json:"query,omitempty" yaml:"query,omitempty"`
	Object    string `json:"object,omitempty" yaml:"object,omitempty"`
	Operation string `json:"operation,omitempty" yaml:"operation,omitempty"`
	Rows      *int   `json:"rows,omitempty" yaml:"rows,omitempty"`

	Request                       string `json:"request,omitempty" yaml:"request,omitempty"`
	Response                      string `json:"response,omitempty" yaml:"response,omitempty"`
	NamedCredentialRequest        string `json:"namedCredentialRequest,omitempty" yaml:"namedCredentialRequest,omitempty"`
	NamedCredentialResponse       string `json:"namedCredentialResponse,omitempty" yaml:"namedCredentialResponse,omitempty"`
	NamedCredentialResponseDetail string `json:"namedCredentialResponseDetail,omitempty" yaml:"namedCredentialResponseDetail,omitempty"`

	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	Namespace string  `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Limits    *Limits `json:"limits,omitempty" yaml:"limits,omitempty"`

	TimeStart  int64    `json:"timeStart" yaml:"timeStart"`
	TimeEnd    *int64   `json:"timeEnd,omitempty" yaml:"timeEnd,omitempty"`
	DurationMs *float64 `json:"durationMs,omitempty" yaml:"durationMs,omitempty"`
}

// Closed reports whether the node has been finalized.
func (n *Node) Closed() bool {
	return n.TimeEnd != nil
}

// Duration returns the node's duration in milliseconds, or 0 while it is open.
func (n *Node) Duration() float64 {
	if n.DurationMs == nil {
		return 0
	}
	return *n.DurationMs
}

// Label is a short human readable description used by renderers.
func (n *Node) Label() string {
	switch n.Type {
	case NodeSOQL:
		if n.Query != "" {
			return n.Query
		}
	case NodeDML:
		if n.Operation != "" || n.Object != "" {
			return strings.TrimSpace(n.Operation + " " + n.Object)
		}
	case NodeCallout:
		if n.Request != "" {
			return n.Request
		}
	case NodeException:
		return n.Message
	case NodeLimit:
		return n.Namespace
	case NodeFlowElement, NodeFlowBulkElement:
		if n.ElementType != "" {
			return n.ElementType + ": " + n.Name
		}
	}
	return n.Name
}

// TreeNode is a Node plus the children it exclusively owns, in the order
// they were opened.
type TreeNode struct {
	Node     `yaml:",inline"`
	Children []*TreeNode `json:"children" yaml:"children"`
}

// Walk visits n and its descendants depth-first, pre-order. Returning false
// from fn skips the node's children.
func (n *TreeNode) Walk(fn func(node *TreeNode, depth int) bool) {
	n.walk(fn, 0)
}

func (n *TreeNode) walk(fn func(*TreeNode, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// Event is a flattened, source-annotated node.
type Event struct {
	Node   `yaml:",inline"`
	Source string `json:"source" yaml:"source"`
}

// LogLevel is one Category,Level declaration from the log header.
type LogLevel struct {
	Category string `json:"category" yaml:"category"`
	Level    string `json:"level" yaml:"level"`
}

// Meta summarizes a parsed log.
type Meta struct {
	Filename   string  `json:"filename" yaml:"filename"`
	DurationMs float64 `json:"durationMs" yaml:"durationMs"`
	SizeMb     float64 `json:"sizeMb" yaml:"sizeMb"`
}

// Anomaly records input the parser recovered from without changing the tree.
type Anomaly struct {
	Line   int    `json:"line" yaml:"line"`
	Event  string `json:"event" yaml:"event"`
	Reason string `json:"reason" yaml:"reason"`
}

// Stats counts what the parser saw while building the tree.
type Stats struct {
	Records     int              `json:"records" yaml:"records"`
	Skipped     int              `json:"skipped" yaml:"skipped"`
	UnknownTags int              `json:"unknownTags" yaml:"unknownTags"`
	Nodes       map[NodeType]int `json:"nodes" yaml:"nodes"`
}

// ParsedLog is the result of parsing one debug log.
type ParsedLog struct {
	Meta      Meta       `json:"meta" yaml:"meta"`
	LogLevel  []LogLevel `json:"logLevel" yaml:"logLevel"`
	User      string     `json:"user,omitempty" yaml:"user,omitempty"`
	Tree      *TreeNode  `json:"tree" yaml:"tree"`
	Events    []Event    `json:"events" yaml:"events"`
	Anomalies []Anomaly  `json:"anomalies,omitempty" yaml:"anomalies,omitempty"`
	Stats     Stats      `json:"stats" yaml:"stats"`
}

// Find returns the flattened event with the given id.
func (p *ParsedLog) Find(id string) (Event, bool) {
	for _, ev := range p.Events {
		if ev.ID == id {
			return ev, true
		}
	}
	return Event{}, false
}

// Filter returns the events whose type is one of types, in flattened order.
func (p *ParsedLog) Filter(types ...NodeType) []Event {
	want := make(map[NodeType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []Event
	for _, ev := range p.Events {
		if want[ev.Type] {
			out = append(out, ev)
		}
	}
	return out
}
