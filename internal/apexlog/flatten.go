package apexlog

// Flatten lists every node below root depth-first, pre-order, so events
// appear in the order they were opened. The root itself is left out.
func Flatten(root *TreeNode, source string) []Event {
	events := []Event{}
	if root == nil {
		return events
	}
	root.Walk(func(n *TreeNode, depth int) bool {
		if depth > 0 {
			events = append(events, Event{Node: n.Node, Source: source})
		}
		return true
	})
	return events
}
