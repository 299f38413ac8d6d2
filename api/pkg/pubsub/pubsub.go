package pubsub

// Topic names an in-process event stream.
type Topic string

const (
	// TopicControlMsg carries a controlmsg.Message bound for the daemon.
	TopicControlMsg Topic = "control-msg"
	// TopicSwipeHoldRadius carries the new radius factor (float64) for sticks.
	TopicSwipeHoldRadius Topic = "swipehold-radius"

	TopicDeviceConnected    Topic = "device-connected"
	TopicDeviceDisconnected Topic = "device-disconnected"
	TopicPointerLockChanged Topic = "pointer-lock-changed"
	TopicModeChanged        Topic = "mode-changed"
	TopicServerState        Topic = "server-state"
	TopicKeyMapReloaded     Topic = "keymap-reloaded"
)

// Event is what subscribers receive.
type Event struct {
	Topic  Topic
	Source any
	Data   any
}

type Handler func(ev Event)

type Publisher interface {
	// Emit delivers data to every live subscriber of topic before returning.
	Emit(topic Topic, source any, data any)
}

type PubSub interface {
	Publisher
	Subscribe(topic Topic, owner any, handler Handler) *Subscription
	ReleaseOwner(owner any) int
}
