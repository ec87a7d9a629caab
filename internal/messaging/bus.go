package messaging

// Bus delivers encoded frames to the sessions subscribed on it.
type Bus interface {
	// Subscribe registers handler for frames addressed to session id.
	// The returned function removes the subscription.
	Subscribe(id int, handler func(data []byte)) (unsubscribe func(), err error)

	// Publish sends data to every target except exclude. Pass a
	// non-positive exclude to reach all targets.
	Publish(targets []int, exclude int, data []byte) error

	// Ready is closed once the bus can accept subscriptions.
	Ready() <-chan struct{}
}
