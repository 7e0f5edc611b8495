package richtext

// MouseButton identifies a mouse button in platform events.
type MouseButton int

// MouseButtonPrimary is the button that places the cursor and drags
// selections.
const MouseButtonPrimary MouseButton = 0

// Action is the state transition of a button or key event.
type Action uint8

const (
	ActionRelease Action = iota
	ActionPress
	ActionRepeat
)

// Mods is a bitmask of modifier keys held during an event.
type Mods uint8

const (
	ModShift Mods = 1 << iota
	ModControl
)

// Key is an abstract key code. The embedding platform maps its own codes
// onto these before dispatching.
type Key int

const (
	KeyUnknown Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyBackspace
	KeyDelete
	KeyEnter
	KeyA
	KeyC
	KeyV
	KeyX
)
