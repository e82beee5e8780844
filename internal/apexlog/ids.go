package apexlog

import "fmt"

// DefaultIDWidth is the number of digits in a generated node id.
const DefaultIDWidth = 5

// IDGenerator hands out sequential, zero-padded node ids.
type IDGenerator struct {
	width int
	n     int
}

// NewIDGenerator returns a generator producing ids of the given width.
// Widths below 1 fall back to DefaultIDWidth.
func NewIDGenerator(width int) *IDGenerator {
	if width < 1 {
		width = DefaultIDWidth
	}
	return &IDGenerator{width: width}
}

// Next returns the next id: "00001", "00002", ...
func (g *IDGenerator) Next() string {
	g.n++
	return fmt.Sprintf("%0*d", g.width, g.n)
}

// Reset starts the sequence over.
func (g *IDGenerator) Reset() {
	g.n = 0
}
