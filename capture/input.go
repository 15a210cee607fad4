package capture

// EventKind identifies a phase of a pointing gesture.
type EventKind int

const (
	Press EventKind = iota
	Move
	Release
	Leave
)

func (k EventKind) String() string {
	switch k {
	case Press:
		return "press"
	case Move:
		return "move"
	case Release:
		return "release"
	case Leave:
		return "leave"
	default:
		return "unknown"
	}
}

// Input is the source of an event's location, in the same client
// coordinates as the surface origin.
type Input interface {
	location() (Point, bool)
}

// PointerInput is a mouse or pen location.
type PointerInput struct {
	X, Y float64
}

func (p PointerInput) location() (Point, bool) {
	return Point{X: p.X, Y: p.Y}, true
}

// TouchInput carries the active touch points. Only the first is used.
type TouchInput struct {
	Touches []Point
}

func (t TouchInput) location() (Point, bool) {
	if len(t.Touches) == 0 {
		return Point{}, false
	}
	return t.Touches[0], true
}

// Event is a single input event delivered to Engine.Handle.
type Event struct {
	Kind  EventKind
	Input Input
}
