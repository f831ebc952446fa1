// Package frames defines the carrier event model: every text frame read
// from the media WebSocket is deserialized into exactly one of the
// tagged variants below.
package frames

// Event is implemented by all inbound carrier events.
type Event interface {
	// Event returns the wire-level event name ("start", "media", ...).
	Event() string
}

// Connected is the carrier's informational handshake event; no payload.
type Connected struct{}

func (Connected) Event() string { return "connected" }

// Start carries the identifiers fixing a call leg. SequenceNumber is
// the carrier's starting sequence, zero when absent.
type Start struct {
	StreamSID      string
	CallSID        string
	AccountSID     string
	SequenceNumber int64
	MediaFormat    map[string]string
}

func (Start) Event() string { return "start" }

// Media carries one inbound audio chunk. Payload has already been
// base64-decoded; it is carrier audio in the negotiated codec, not
// necessarily PCM16 yet.
type Media struct {
	Chunk     int64
	Timestamp string
	Payload   []byte
}

func (Media) Event() string { return "media" }

// DTMF reports a keypad press during the call.
type DTMF struct {
	Digit    string
	Duration int64
}

func (DTMF) Event() string { return "dtmf" }

// Mark acknowledges a playback milestone previously sent by the bridge.
type Mark struct {
	Name string
}

func (Mark) Event() string { return "mark" }

// Stop signals the end of the media stream.
type Stop struct {
	Reason string
}

func (Stop) Event() string { return "stop" }
