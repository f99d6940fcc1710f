package core

// Key code definitions
type KeyCode uint16

const (
	KEY_ENTER  KeyCode = 0x0D
	KEY_TAB    KeyCode = 0x09
	KEY_ESCAPE KeyCode = 0x1B
	KEY_SPACE  KeyCode = 0x20
	KEY_LEFT   KeyCode = 0x25
	KEY_UP     KeyCode = 0x26
	KEY_RIGHT  KeyCode = 0x27
	KEY_DOWN   KeyCode = 0x28
	KEY_A      KeyCode = 0x41
	KEY_D      KeyCode = 0x44
	KEY_P      KeyCode = 0x50
	KEY_R      KeyCode = 0x52
	KEY_S      KeyCode = 0x53
	KEY_W      KeyCode = 0x57
	KEY_F1     KeyCode = 0x70

	KEYS_MAX_KEYS KeyCode = 0xFF
)

// Keyboard state structure
type KeyboardState struct {
	Keys [256]bool
}

// Input holds the current and previous keyboard state and fires key events
// on the bus it was created with.
type Input struct {
	bus      *EventBus
	current  KeyboardState
	previous KeyboardState
}

func NewInput(bus *EventBus) *Input {
	LogInfo("Input subsystem initialized.")
	return &Input{bus: bus}
}

// Update copies the current state into the previous one. Call once per frame.
func (in *Input) Update() {
	in.previous = in.current
}

func (in *Input) IsKeyDown(key KeyCode) bool {
	return in.current.Keys[key&KEYS_MAX_KEYS]
}

func (in *Input) IsKeyUp(key KeyCode) bool {
	return !in.current.Keys[key&KEYS_MAX_KEYS]
}

func (in *Input) WasKeyDown(key KeyCode) bool {
	return in.previous.Keys[key&KEYS_MAX_KEYS]
}

// KeyPressed reports a transition from up to down since the last Update.
func (in *Input) KeyPressed(key KeyCode) bool {
	return in.IsKeyDown(key) && !in.WasKeyDown(key)
}

func (in *Input) ProcessKey(key KeyCode, pressed bool) {
	key &= KEYS_MAX_KEYS
	// Only handle this if the state actually changed.
	if in.current.Keys[key] == pressed {
		return
	}
	in.current.Keys[key] = pressed

	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}

	// Fire off an event for immediate processing.
	ctx := EventContext{}
	ctx.Data.U16[0] = uint16(key)
	if in.bus != nil {
		in.bus.Fire(code, in, ctx)
	}
}
