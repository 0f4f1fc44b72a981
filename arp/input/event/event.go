package event

// Type represents the type of input event
type Type int

const (
	Press   Type = iota // Key pressed down (debounced for controls)
	Release             // Key released
	Hold                // Continuous while pressed (not debounced)
)

func (t Type) String() string {
	switch t {
	case Press:
		return "press"
	case Release:
		return "release"
	case Hold:
		return "hold"
	}
	return "unknown"
}
