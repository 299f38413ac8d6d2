package handler

import (
	"fmt"
	"strconv"
	"strings"
)

// Android KeyEvent keycodes by lower case name.
var androidKeycodes = map[string]uint32{
	"home":        3,
	"back":        4,
	"call":        5,
	"endcall":     6,
	"dpad_up":     19,
	"dpad_down":   20,
	"dpad_left":   21,
	"dpad_right":  22,
	"dpad_center": 23,
	"volume_up":   24,
	"volume_down": 25,
	"power":       26,
	"camera":      27,
	"comma":       55,
	"period":      56,
	"tab":         61,
	"space":       62,
	"enter":       66,
	"del":         67,
	"menu":        82,
	"search":      84,
	"page_up":     92,
	"page_down":   93,
	"escape":      111,
	"forward_del": 112,
	"app_switch":  187,
}

func init() { //nolint:gochecknoinits
	for i := 0; i < 10; i++ {
		androidKeycodes[strconv.Itoa(i)] = uint32(7 + i)
	}
	for c := 'a'; c <= 'z'; c++ {
		androidKeycodes[string(c)] = uint32(29 + c - 'a')
	}
}

// ParseKeycode accepts an Android key name ("home", "KEYCODE_HOME") or a
// decimal keycode.
func ParseKeycode(s string) (uint32, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "keycode_")
	if code, ok := androidKeycodes[name]; ok {
		return code, nil
	}
	n, err := strconv.ParseUint(name, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown android keycode %q", s)
	}
	return uint32(n), nil
}
