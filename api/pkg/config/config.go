package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type BridgeConfig struct {
	Server      Server
	Screen      Screen
	Pointer     Pointer
	Gesture     Gesture
	Gamepad     Gamepad
	PointerLock PointerLock
	KeyMap      KeyMap
	WSInput     WSInput
	Log         Log
}

// LoadBridgeConfig reads the environment, after loading a .env file from the
// working directory if there is one.
func LoadBridgeConfig() (BridgeConfig, error) {
	_ = godotenv.Load()

	var cfg BridgeConfig
	err := envconfig.Process("", &cfg)
	if err != nil {
		return BridgeConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return BridgeConfig{}, err
	}
	return cfg, nil
}

func (c BridgeConfig) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("CONTROL_PORT %d out of range", c.Server.Port)
	}
	if c.Screen.HostWidth <= 0 || c.Screen.HostHeight <= 0 {
		return fmt.Errorf("SCREEN_HOST_WIDTH and SCREEN_HOST_HEIGHT must be positive, got %dx%d", c.Screen.HostWidth, c.Screen.HostHeight)
	}
	if c.Screen.TargetWidth < 0 || c.Screen.TargetHeight < 0 {
		return fmt.Errorf("SCREEN_TARGET_WIDTH and SCREEN_TARGET_HEIGHT must not be negative")
	}
	if c.Pointer.Capacity <= 0 {
		return fmt.Errorf("POINTER_CAPACITY must be positive, got %d", c.Pointer.Capacity)
	}
	if c.Gesture.StickDeadzone < 0 || c.Gesture.StickDeadzone >= 1 {
		return fmt.Errorf("GESTURE_STICK_DEADZONE must be in [0, 1), got %g", c.Gesture.StickDeadzone)
	}
	if c.PointerLock.Scale <= 0 {
		return fmt.Errorf("POINTER_LOCK_SCALE must be positive, got %g", c.PointerLock.Scale)
	}
	return nil
}

type Server struct {
	Host             string        `envconfig:"CONTROL_HOST" default:"0.0.0.0" description:"The host the control server binds to."`
	Port             int           `envconfig:"CONTROL_PORT" default:"10721" description:"The port the Android daemon connects to."`
	QueueCapacity    int           `envconfig:"CONTROL_QUEUE_CAPACITY" default:"256" description:"Outbound messages kept while the peer is slow or absent."`
	HandshakeTimeout time.Duration `envconfig:"CONTROL_HANDSHAKE_TIMEOUT" default:"5s"`
	WriteTimeout     time.Duration `envconfig:"CONTROL_WRITE_TIMEOUT" default:"5s"`
}

type Screen struct {
	HostWidth  int `envconfig:"SCREEN_HOST_WIDTH" default:"1920" description:"Width of the window the input arrives in."`
	HostHeight int `envconfig:"SCREEN_HOST_HEIGHT" default:"1080"`
	// Zero means same as the host.
	TargetWidth  int `envconfig:"SCREEN_TARGET_WIDTH" default:"0" description:"Width of the Android display."`
	TargetHeight int `envconfig:"SCREEN_TARGET_HEIGHT" default:"0"`
}

type Pointer struct {
	Capacity int `envconfig:"POINTER_CAPACITY" default:"10" description:"Simultaneous touch pointers handed to sticks and key bindings."`
}

type Gesture struct {
	NaturalScroll bool `envconfig:"GESTURE_NATURAL_SCROLL" default:"false"`
	MouseHover    bool `envconfig:"GESTURE_MOUSE_HOVER" default:"false" description:"Forward motion without buttons as HOVER_MOVE."`

	ZoomInInitLength  float64       `envconfig:"GESTURE_ZOOM_IN_INIT_LENGTH" default:"20"`
	ZoomOutInitLength float64       `envconfig:"GESTURE_ZOOM_OUT_INIT_LENGTH" default:"100"`
	ZoomTimeout       time.Duration `envconfig:"GESTURE_ZOOM_TIMEOUT" default:"500ms" description:"Idle time after which a Ctrl+scroll zoom lifts its fingers."`

	StickX        float64 `envconfig:"GESTURE_STICK_X" default:"100"`
	StickY        float64 `envconfig:"GESTURE_STICK_Y" default:"680"`
	StickWidth    float64 `envconfig:"GESTURE_STICK_WIDTH" default:"300"`
	StickHeight   float64 `envconfig:"GESTURE_STICK_HEIGHT" default:"300"`
	StickDeadzone float64 `envconfig:"GESTURE_STICK_DEADZONE" default:"0.15"`
	// Initial value; SWIPEHOLD_RADIUS events change it at runtime.
	SwipeHoldRadius float64 `envconfig:"GESTURE_SWIPEHOLD_RADIUS" default:"1"`
}

type Gamepad struct {
	Enabled      bool          `envconfig:"GAMEPAD_ENABLED" default:"true"`
	ScanInterval time.Duration `envconfig:"GAMEPAD_SCAN_INTERVAL" default:"3s"`
	NameFilters  []string      `envconfig:"GAMEPAD_NAME_FILTERS" default:"Xbox,Gamepad,Controller,Sony,Microsoft"`
}

type PointerLock struct {
	// One of auto, x11 or none.
	Backend       string        `envconfig:"POINTER_LOCK_BACKEND" default:"auto"`
	Mode          string        `envconfig:"POINTER_LOCK_MODE" default:"warp" description:"warp or event-poll."`
	Display       string        `envconfig:"POINTER_LOCK_DISPLAY" description:"X display, defaults to $DISPLAY."`
	Window        uint32        `envconfig:"POINTER_LOCK_WINDOW" description:"X window id to confine the pointer to."`
	Scale         float64       `envconfig:"POINTER_LOCK_SCALE" default:"1"`
	WarpThreshold float64       `envconfig:"POINTER_LOCK_WARP_THRESHOLD" default:"50"`
	JoinTimeout   time.Duration `envconfig:"POINTER_LOCK_JOIN_TIMEOUT" default:"100ms"`
	// Lock as soon as the bridge starts.
	LockOnStart bool `envconfig:"POINTER_LOCK_ON_START" default:"false"`
}

type KeyMap struct {
	Profile string `envconfig:"KEYMAP_PROFILE" description:"Path to a YAML key mapping profile."`
	Watch   bool   `envconfig:"KEYMAP_WATCH" default:"true" description:"Reload the profile when the file changes."`
	// default or mapping
	Mode string `envconfig:"INPUT_MODE" default:"default"`
}

type WSInput struct {
	Enabled bool   `envconfig:"WSINPUT_ENABLED" default:"false"`
	Address string `envconfig:"WSINPUT_ADDRESS" default:":10722"`
	Path    string `envconfig:"WSINPUT_PATH" default:"/ws/input"`
}

type Log struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}
