// Package transport declares the contract Manager consumes but never
// implements: a best-effort, unreliable carrier for encoded frames. The
// concrete network transport (UDP, QUIC, a test loopback, …) is a host
// concern; see internal/udptransport for a conforming reference
// implementation used by the demo binary and integration tests.
package transport

// EncodedMessage is a single encoded frame ready for the wire, stamped
// with the author id of whoever produced it.
type EncodedMessage struct {
	Bytes  []byte
	Author uint32
}

// Transport is the abstract carrier Manager sends frames through and
// receives frames from. Implementations may drop messages silently; the
// core never assumes delivery or ordering across messages.
type Transport interface {
	// Send best-effort transmits msg. A returned error is logged by
	// Manager and never propagated back to a transceiver.
	Send(msg EncodedMessage) error

	// LocalIdentifier returns the author id this transport stamps on
	// frames originated locally.
	LocalIdentifier() uint32
}

// ArrivalHandler is invoked by a Transport implementation whenever a frame
// arrives. The byte slice is only valid for the duration of the call.
type ArrivalHandler func(msg EncodedMessage)
