// internal/display/history.go
package display

import "time"

// Point is one timestamped value in a trend history.
type Point struct {
	At    time.Time
	Value float64
}

// History is a fixed-capacity trend buffer. When full, pushing a new point
// evicts the oldest one.
type History struct {
	points []Point
	cap    int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{
		points: make([]Point, 0, capacity),
		cap:    capacity,
	}
}

func (h *History) Push(p Point) {
	if len(h.points) == h.cap {
		copy(h.points, h.points[1:])
		h.points = h.points[:h.cap-1]
	}
	h.points = append(h.points, p)
}

// Points returns the buffered points, oldest first. The slice is a copy.
func (h *History) Points() []Point {
	out := make([]Point, len(h.points))
	copy(out, h.points)
	return out
}

func (h *History) Len() int {
	return len(h.points)
}

// Latest returns the most recent point, if any.
func (h *History) Latest() (Point, bool) {
	if len(h.points) == 0 {
		return Point{}, false
	}
	return h.points[len(h.points)-1], true
}
