package wsinput

import (
	"fmt"

	"github.com/holoplot/go-evdev"
)

// keyNames maps evdev key codes to the lower case key names used by key
// mapping profiles.
var keyNames = map[evdev.EvCode]string{
	evdev.KEY_A: "a", evdev.KEY_B: "b", evdev.KEY_C: "c", evdev.KEY_D: "d",
	evdev.KEY_E: "e", evdev.KEY_F: "f", evdev.KEY_G: "g", evdev.KEY_H: "h",
	evdev.KEY_I: "i", evdev.KEY_J: "j", evdev.KEY_K: "k", evdev.KEY_L: "l",
	evdev.KEY_M: "m", evdev.KEY_N: "n", evdev.KEY_O: "o", evdev.KEY_P: "p",
	evdev.KEY_Q: "q", evdev.KEY_R: "r", evdev.KEY_S: "s", evdev.KEY_T: "t",
	evdev.KEY_U: "u", evdev.KEY_V: "v", evdev.KEY_W: "w", evdev.KEY_X: "x",
	evdev.KEY_Y: "y", evdev.KEY_Z: "z",

	evdev.KEY_0: "0", evdev.KEY_1: "1", evdev.KEY_2: "2", evdev.KEY_3: "3",
	evdev.KEY_4: "4", evdev.KEY_5: "5", evdev.KEY_6: "6", evdev.KEY_7: "7",
	evdev.KEY_8: "8", evdev.KEY_9: "9",

	evdev.KEY_F1: "f1", evdev.KEY_F2: "f2", evdev.KEY_F3: "f3", evdev.KEY_F4: "f4",
	evdev.KEY_F5: "f5", evdev.KEY_F6: "f6", evdev.KEY_F7: "f7", evdev.KEY_F8: "f8",
	evdev.KEY_F9: "f9", evdev.KEY_F10: "f10", evdev.KEY_F11: "f11", evdev.KEY_F12: "f12",

	evdev.KEY_SPACE:     "space",
	evdev.KEY_ESC:       "escape",
	evdev.KEY_ENTER:     "return",
	evdev.KEY_TAB:       "tab",
	evdev.KEY_BACKSPACE: "backspace",
	evdev.KEY_DELETE:    "delete",
	evdev.KEY_INSERT:    "insert",
	evdev.KEY_HOME:      "home",
	evdev.KEY_END:       "end",
	evdev.KEY_PAGEUP:    "page_up",
	evdev.KEY_PAGEDOWN:  "page_down",

	evdev.KEY_UP:    "up",
	evdev.KEY_DOWN:  "down",
	evdev.KEY_LEFT:  "left",
	evdev.KEY_RIGHT: "right",

	evdev.KEY_LEFTSHIFT:  "shift_l",
	evdev.KEY_RIGHTSHIFT: "shift_r",
	evdev.KEY_LEFTCTRL:   "control_l",
	evdev.KEY_RIGHTCTRL:  "control_r",
	evdev.KEY_LEFTALT:    "alt_l",
	evdev.KEY_RIGHTALT:   "alt_r",
	evdev.KEY_LEFTMETA:   "super_l",
	evdev.KEY_RIGHTMETA:  "super_r",

	evdev.KEY_MINUS:      "minus",
	evdev.KEY_EQUAL:      "equal",
	evdev.KEY_COMMA:      "comma",
	evdev.KEY_DOT:        "period",
	evdev.KEY_SLASH:      "slash",
	evdev.KEY_BACKSLASH:  "backslash",
	evdev.KEY_SEMICOLON:  "semicolon",
	evdev.KEY_APOSTROPHE: "apostrophe",
	evdev.KEY_GRAVE:      "grave",
	evdev.KEY_LEFTBRACE:  "bracketleft",
	evdev.KEY_RIGHTBRACE: "bracketright",
}

// KeyName returns the profile key name for an evdev key code. Unnamed codes
// get a stable "keycode_<n>" name so they can still be bound.
func KeyName(code evdev.EvCode) string {
	if name, ok := keyNames[code]; ok {
		return name
	}
	return fmt.Sprintf("keycode_%d", code)
}
