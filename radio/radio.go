// Package radio defines the outbound link contract the delivery thread
// transmits over, and its BLE implementation. Connection establishment
// and advertising management stay inside the link; the pipeline only
// sees MTU, Send and the ready gate.
package radio

// Link is one short-range radio connection.
type Link interface {
	// MTU returns the transmission unit currently negotiated for the
	// connection: the largest payload Send accepts per message.
	MTU() int

	// Send transmits one chunk. Failures are terminal for the chunk;
	// the link never retries internally.
	Send(p []byte) error

	// Ready is closed once the link can carry data. Delivery blocks on
	// it before entering its loop.
	Ready() <-chan struct{}
}
