package main

import "strings"

// KeyStroke is one injectable key: a Linux key code, optionally wrapped in
// a shift press for characters that need it.
type KeyStroke struct {
	Code  uint16
	Shift bool
}

// keyNames maps the user-facing key names accepted in a macro string to
// key codes. Lookups are case-insensitive. Unqualified modifier names
// resolve to their left-hand variant.
var keyNames = map[string]uint16{
	"alt":    KEY_LEFTALT,
	"alt_l":  KEY_LEFTALT,
	"alt_r":  KEY_RIGHTALT,
	"alt_gr": KEY_RIGHTALT,

	"ctrl":   KEY_LEFTCTRL,
	"ctrl_l": KEY_LEFTCTRL,
	"ctrl_r": KEY_RIGHTCTRL,

	"shift":   KEY_LEFTSHIFT,
	"shift_l": KEY_LEFTSHIFT,
	"shift_r": KEY_RIGHTSHIFT,

	"cmd":   KEY_LEFTMETA,
	"cmd_l": KEY_LEFTMETA,
	"cmd_r": KEY_RIGHTMETA,

	"backspace":    KEY_BACKSPACE,
	"caps_lock":    KEY_CAPSLOCK,
	"delete":       KEY_DELETE,
	"down":         KEY_DOWN,
	"end":          KEY_END,
	"enter":        KEY_ENTER,
	"esc":          KEY_ESC,
	"home":         KEY_HOME,
	"insert":       KEY_INSERT,
	"left":         KEY_LEFT,
	"menu":         KEY_COMPOSE,
	"num_lock":     KEY_NUMLOCK,
	"page_down":    KEY_PAGEDOWN,
	"page_up":      KEY_PAGEUP,
	"pause":        KEY_PAUSE,
	"print_screen": KEY_SYSRQ,
	"right":        KEY_RIGHT,
	"scroll_lock":  KEY_SCROLLLOCK,
	"space":        KEY_SPACE,
	"tab":          KEY_TAB,
	"up":           KEY_UP,

	"media_next":        KEY_NEXTSONG,
	"media_play_pause":  KEY_PLAYPAUSE,
	"media_previous":    KEY_PREVIOUSSONG,
	"media_volume_down": KEY_VOLUMEDOWN,
	"media_volume_mute": KEY_MUTE,
	"media_volume_up":   KEY_VOLUMEUP,

	"f1":  KEY_F1,
	"f2":  KEY_F2,
	"f3":  KEY_F3,
	"f4":  KEY_F4,
	"f5":  KEY_F5,
	"f6":  KEY_F6,
	"f7":  KEY_F7,
	"f8":  KEY_F8,
	"f9":  KEY_F9,
	"f10": KEY_F10,
	"f11": KEY_F11,
	"f12": KEY_F12,
	"f13": KEY_F13,
	"f14": KEY_F14,
	"f15": KEY_F15,
	"f16": KEY_F16,
	"f17": KEY_F17,
	"f18": KEY_F18,
	"f19": KEY_F19,
	"f20": KEY_F20,
}

// lookupKeyName resolves a named key from the static table.
func lookupKeyName(name string) (uint16, bool) {
	code, ok := keyNames[strings.ToLower(name)]
	return code, ok
}

// charStrokes maps printable characters to strokes on a US layout. Used
// for literal pass-through keys in macros and for best-effort text typing.
var charStrokes = map[rune]KeyStroke{
	'a': {KEY_A, false}, 'b': {KEY_B, false}, 'c': {KEY_C, false},
	'd': {KEY_D, false}, 'e': {KEY_E, false}, 'f': {KEY_F, false},
	'g': {KEY_G, false}, 'h': {KEY_H, false}, 'i': {KEY_I, false},
	'j': {KEY_J, false}, 'k': {KEY_K, false}, 'l': {KEY_L, false},
	'm': {KEY_M, false}, 'n': {KEY_N, false}, 'o': {KEY_O, false},
	'p': {KEY_P, false}, 'q': {KEY_Q, false}, 'r': {KEY_R, false},
	's': {KEY_S, false}, 't': {KEY_T, false}, 'u': {KEY_U, false},
	'v': {KEY_V, false}, 'w': {KEY_W, false}, 'x': {KEY_X, false},
	'y': {KEY_Y, false}, 'z': {KEY_Z, false},

	'A': {KEY_A, true}, 'B': {KEY_B, true}, 'C': {KEY_C, true},
	'D': {KEY_D, true}, 'E': {KEY_E, true}, 'F': {KEY_F, true},
	'G': {KEY_G, true}, 'H': {KEY_H, true}, 'I': {KEY_I, true},
	'J': {KEY_J, true}, 'K': {KEY_K, true}, 'L': {KEY_L, true},
	'M': {KEY_M, true}, 'N': {KEY_N, true}, 'O': {KEY_O, true},
	'P': {KEY_P, true}, 'Q': {KEY_Q, true}, 'R': {KEY_R, true},
	'S': {KEY_S, true}, 'T': {KEY_T, true}, 'U': {KEY_U, true},
	'V': {KEY_V, true}, 'W': {KEY_W, true}, 'X': {KEY_X, true},
	'Y': {KEY_Y, true}, 'Z': {KEY_Z, true},

	'1': {KEY_1, false}, '2': {KEY_2, false}, '3': {KEY_3, false},
	'4': {KEY_4, false}, '5': {KEY_5, false}, '6': {KEY_6, false},
	'7': {KEY_7, false}, '8': {KEY_8, false}, '9': {KEY_9, false},
	'0': {KEY_0, false},

	'!': {KEY_1, true}, '@': {KEY_2, true}, '#': {KEY_3, true},
	'$': {KEY_4, true}, '%': {KEY_5, true}, '^': {KEY_6, true},
	'&': {KEY_7, true}, '*': {KEY_8, true}, '(': {KEY_9, true},
	')': {KEY_0, true},

	'-':  {KEY_MINUS, false},
	'_':  {KEY_MINUS, true},
	'=':  {KEY_EQUAL, false},
	'+':  {KEY_EQUAL, true},
	'[':  {KEY_LEFTBRACE, false},
	'{':  {KEY_LEFTBRACE, true},
	']':  {KEY_RIGHTBRACE, false},
	'}':  {KEY_RIGHTBRACE, true},
	'\\': {KEY_BACKSLASH, false},
	'|':  {KEY_BACKSLASH, true},
	';':  {KEY_SEMICOLON, false},
	':':  {KEY_SEMICOLON, true},
	'\'': {KEY_APOSTROPHE, false},
	'"':  {KEY_APOSTROPHE, true},
	'`':  {KEY_GRAVE, false},
	'~':  {KEY_GRAVE, true},
	',':  {KEY_COMMA, false},
	'<':  {KEY_COMMA, true},
	'.':  {KEY_DOT, false},
	'>':  {KEY_DOT, true},
	'/':  {KEY_SLASH, false},
	'?':  {KEY_SLASH, true},

	' ':  {KEY_SPACE, false},
	'\t': {KEY_TAB, false},
	'\n': {KEY_ENTER, false},
}

// charStroke resolves a single printable character to a stroke.
func charStroke(r rune) (KeyStroke, bool) {
	st, ok := charStrokes[r]
	return st, ok
}
