package pubsub

// NoopPubSub discards everything. Subscriptions it returns are born inactive.
type NoopPubSub struct{}

var _ PubSub = &NoopPubSub{}

func NewNoop() *NoopPubSub {
	return &NoopPubSub{}
}

func (n *NoopPubSub) Emit(_ Topic, _ any, _ any) {}

func (n *NoopPubSub) Subscribe(topic Topic, owner any, handler Handler) *Subscription {
	return &Subscription{Topic: topic, owner: owner, handler: handler, bus: New()}
}

func (n *NoopPubSub) ReleaseOwner(_ any) int {
	return 0
}
