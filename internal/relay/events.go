package relay

// Event types published on the bus.
const (
	EventStaged          = "relay.staged"
	EventApproved        = "relay.approved"
	EventRejected        = "relay.rejected"
	EventExpired         = "relay.expired"
	EventDeliveryFailed  = "relay.delivery_failed"
	EventRegistryChanged = "relay.registry.changed"
)

// DecisionEvent is the payload of EventApproved and EventRejected.
type DecisionEvent struct {
	Key       Key
	ActorID   int64
	Via       string // "reply" or "button"
	Delivered int
	Failed    int
}

// RegistryEvent is the payload of EventRegistryChanged.
type RegistryEvent struct {
	Staging      int64
	Destinations int
}
