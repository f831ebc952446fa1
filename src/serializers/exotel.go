// Package serializers converts between carrier wire messages and the
// internal frame model. The Exotel bidirectional-stream protocol is
// JSON text frames with snake_case fields over a single WebSocket.
package serializers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/square-key-labs/exobridge/src/frames"
)

// ErrMalformed marks frames the carrier sent that cannot be parsed: bad
// JSON, an unknown event name, or an undecodable payload. The transport
// answers these with a "clear" and keeps the session alive.
var ErrMalformed = errors.New("malformed carrier frame")

// Exotel wire structures. Numbers arrive as JSON numbers or quoted
// strings depending on carrier firmware, hence flexInt throughout.
type exotelMessage struct {
	Event          string       `json:"event"`
	StreamSID      string       `json:"stream_sid,omitempty"`
	SequenceNumber flexInt      `json:"sequence_number,omitempty"`
	Start          *exotelStart `json:"start,omitempty"`
	Media          *exotelMedia `json:"media,omitempty"`
	DTMF           *exotelDTMF  `json:"dtmf,omitempty"`
	Mark           *exotelMark  `json:"mark,omitempty"`
	Stop           *exotelStop  `json:"stop,omitempty"`
}

type exotelStart struct {
	StreamSID   string            `json:"stream_sid"`
	CallSID     string            `json:"call_sid"`
	AccountSID  string            `json:"account_sid"`
	MediaFormat map[string]string `json:"media_format,omitempty"`
}

type exotelMedia struct {
	Chunk     flexInt `json:"chunk,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
	Payload   string  `json:"payload"`
}

type exotelDTMF struct {
	Digit    string  `json:"digit"`
	Duration flexInt `json:"duration,omitempty"`
}

type exotelMark struct {
	Name string `json:"name"`
}

type exotelStop struct {
	CallSID string `json:"call_sid,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// outbound shapes carry explicit sequence numbers
type outboundMedia struct {
	Event          string       `json:"event"`
	SequenceNumber int64        `json:"sequence_number"`
	StreamSID      string       `json:"stream_sid"`
	Media          mediaPayload `json:"media"`
}

type mediaPayload struct {
	Chunk     int64  `json:"chunk"`
	Timestamp int64  `json:"timestamp"`
	Payload   string `json:"payload"`
}

type outboundMark struct {
	Event          string     `json:"event"`
	SequenceNumber int64      `json:"sequence_number"`
	StreamSID      string     `json:"stream_sid"`
	Mark           exotelMark `json:"mark"`
}

type outboundSimple struct {
	Event     string `json:"event"`
	StreamSID string `json:"stream_sid,omitempty"`
}

// ExotelSerializer tracks the stream identifiers of one call leg and
// converts wire messages to and from frames. It is owned by a single
// connection's read loop and is not safe for concurrent use.
type ExotelSerializer struct {
	streamSID string
	callSID   string
}

func NewExotelSerializer() *ExotelSerializer { return &ExotelSerializer{} }

// StreamSID returns the carrier-assigned stream id, empty before start.
func (s *ExotelSerializer) StreamSID() string { return s.streamSID }

// CallSID returns the carrier-assigned call id, empty before start.
func (s *ExotelSerializer) CallSID() string { return s.callSID }

// SetStreamSID overrides the tracked stream id. Used when the carrier's
// start event carried no id and the session synthesized one.
func (s *ExotelSerializer) SetStreamSID(sid string) { s.streamSID = sid }

// Deserialize parses one inbound text frame into a tagged event.
// Malformed input returns an error wrapping ErrMalformed; a single bad
// frame must never terminate the session, so callers recover from it.
func (s *ExotelSerializer) Deserialize(data []byte) (frames.Event, error) {
	var msg exotelMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch msg.Event {
	case "connected":
		return frames.Connected{}, nil

	case "start":
		start := frames.Start{SequenceNumber: numberOrZero(msg.SequenceNumber)}
		if msg.Start != nil {
			start.StreamSID = msg.Start.StreamSID
			start.CallSID = msg.Start.CallSID
			start.AccountSID = msg.Start.AccountSID
			start.MediaFormat = msg.Start.MediaFormat
		}
		// top-level stream_sid wins; nested start.stream_sid is the fallback
		if msg.StreamSID != "" {
			start.StreamSID = msg.StreamSID
		}
		s.streamSID = start.StreamSID
		s.callSID = start.CallSID
		return start, nil

	case "media":
		if msg.Media == nil {
			return nil, fmt.Errorf("%w: media event without media body", ErrMalformed)
		}
		payload, err := base64.StdEncoding.DecodeString(msg.Media.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: bad media payload: %v", ErrMalformed, err)
		}
		return frames.Media{
			Chunk:     numberOrZero(msg.Media.Chunk),
			Timestamp: msg.Media.Timestamp,
			Payload:   payload,
		}, nil

	case "dtmf":
		if msg.DTMF == nil {
			return nil, fmt.Errorf("%w: dtmf event without dtmf body", ErrMalformed)
		}
		return frames.DTMF{
			Digit:    msg.DTMF.Digit,
			Duration: numberOrZero(msg.DTMF.Duration),
		}, nil

	case "mark":
		if msg.Mark == nil {
			return nil, fmt.Errorf("%w: mark event without mark body", ErrMalformed)
		}
		return frames.Mark{Name: msg.Mark.Name}, nil

	case "stop":
		stop := frames.Stop{}
		if msg.Stop != nil {
			stop.Reason = msg.Stop.Reason
		}
		return stop, nil

	default:
		return nil, fmt.Errorf("%w: unknown event %q", ErrMalformed, msg.Event)
	}
}

// ConnectedMessage builds the acknowledgment sent right after upgrade.
func (s *ExotelSerializer) ConnectedMessage() []byte {
	b, _ := json.Marshal(outboundSimple{Event: "connected"})
	return b
}

// ClearMessage builds the frame instructing the carrier to discard any
// queued playback.
func (s *ExotelSerializer) ClearMessage() []byte {
	b, _ := json.Marshal(outboundSimple{Event: "clear", StreamSID: s.streamSID})
	return b
}

// MediaMessage builds one outbound audio frame. The payload is
// base64-encoded here; seq and chunk come from the session counters.
func (s *ExotelSerializer) MediaMessage(seq, chunk, timestampMs int64, payload []byte) []byte {
	b, _ := json.Marshal(outboundMedia{
		Event:          "media",
		SequenceNumber: seq,
		StreamSID:      s.streamSID,
		Media: mediaPayload{
			Chunk:     chunk,
			Timestamp: timestampMs,
			Payload:   base64.StdEncoding.EncodeToString(payload),
		},
	})
	return b
}

// MarkMessage builds a playback-milestone frame.
func (s *ExotelSerializer) MarkMessage(seq int64, name string) []byte {
	b, _ := json.Marshal(outboundMark{
		Event:          "mark",
		SequenceNumber: seq,
		StreamSID:      s.streamSID,
		Mark:           exotelMark{Name: name},
	})
	return b
}

// flexInt unmarshals from either a JSON number or a quoted string;
// Exotel firmware is inconsistent about sequence and chunk numbers.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// tolerate fractional timestamps
		fv, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return err
		}
		v = int64(fv)
	}
	*f = flexInt(v)
	return nil
}

func numberOrZero(n flexInt) int64 { return int64(n) }
