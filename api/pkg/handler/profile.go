package handler

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type BindingAction string

const (
	// BindingTouch holds a finger at (X, Y) while the key is down.
	BindingTouch BindingAction = "touch"
	// BindingKeycode sends an Android key press and release.
	BindingKeycode BindingAction = "keycode"
	// BindingBack sends BACK_OR_SCREEN_ON.
	BindingBack BindingAction = "back"
)

// Profile is a key mapping layout, read from YAML:
//
//	name: shooter
//	bindings:
//	  - key: space
//	    action: touch
//	    x: 1700
//	    y: 900
//	  - key: escape
//	    action: back
//	  - key: h
//	    action: keycode
//	    keycode: home
type Profile struct {
	Name     string    `yaml:"name"`
	Bindings []Binding `yaml:"bindings"`
}

type Binding struct {
	Key     string        `yaml:"key"`
	Action  BindingAction `yaml:"action"`
	X       float64       `yaml:"x,omitempty"`
	Y       float64       `yaml:"y,omitempty"`
	Keycode string        `yaml:"keycode,omitempty"`

	keycode uint32
}

func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse key mapping profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key mapping profile %s: %w", path, err)
	}
	return ParseProfile(data)
}

// Validate normalizes key names and resolves keycodes. It reports every
// problem found, not just the first.
func (p *Profile) Validate() error {
	var errs []error
	seen := map[string]bool{}
	for i := range p.Bindings {
		b := &p.Bindings[i]
		b.Key = strings.ToLower(strings.TrimSpace(b.Key))
		if b.Key == "" {
			errs = append(errs, fmt.Errorf("binding %d: key is required", i))
			continue
		}
		if seen[b.Key] {
			errs = append(errs, fmt.Errorf("binding %d: key %q bound twice", i, b.Key))
		}
		seen[b.Key] = true

		switch b.Action {
		case BindingTouch:
			if b.X < 0 || b.Y < 0 {
				errs = append(errs, fmt.Errorf("binding %d (%s): negative touch position", i, b.Key))
			}
		case BindingKeycode:
			code, err := ParseKeycode(b.Keycode)
			if err != nil {
				errs = append(errs, fmt.Errorf("binding %d (%s): %w", i, b.Key, err))
			}
			b.keycode = code
		case BindingBack:
		default:
			errs = append(errs, fmt.Errorf("binding %d (%s): unknown action %q", i, b.Key, b.Action))
		}
	}
	return errors.Join(errs...)
}
