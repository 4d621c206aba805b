package server

// Peer is the transport half of a bound connection as a room sees it. The
// websocket session implements it; tests substitute in-memory fakes.
type Peer interface {
	// Send writes one complete text message. Implementations must be safe
	// for concurrent use; the room and the read loop both call it.
	Send(data []byte) error
	Close() error
}
