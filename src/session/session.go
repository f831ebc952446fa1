// Package session holds the per-connection state of one call leg. A
// Session is created on WebSocket upgrade, fixed on the carrier's start
// event and destroyed when the socket closes; nothing here survives the
// connection.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/square-key-labs/exobridge/src/audio"
)

// State models the connection lifecycle:
// Upgrading -> Connected -> Started -> (Processing) -> Closed.
type State int32

const (
	StateUpgrading State = iota
	StateConnected
	StateStarted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUpgrading:
		return "upgrading"
	case StateConnected:
		return "connected"
	case StateStarted:
		return "started"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Turn is one utterance of the conversation, kept as bounded history
// for prompt formatting. Never persisted.
type Turn struct {
	Role string // "user" or "assistant"
	Text string
}

// Session is exclusively owned by its connection's handling goroutine;
// the orchestrator goroutine touches only the atomic counters, the
// processing gate and the history, all of which are safe concurrently.
type Session struct {
	ID         string // short id for log prefixes
	SampleRate int
	Buffer     *audio.Buffer

	mu        sync.Mutex
	streamSID string
	callSID   string
	history   []Turn

	state      atomic.Int32
	seq        atomic.Int64
	lastChunk  atomic.Int64
	processing atomic.Bool
}

// New creates a session in the Upgrading state.
func New(id string, sampleRate int) *Session {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &Session{
		ID:         id,
		SampleRate: sampleRate,
		Buffer:     audio.NewBuffer(sampleRate),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Connected marks the protocol upgrade complete.
func (s *Session) Connected() { s.state.Store(int32(StateConnected)) }

// Start fixes the call identifiers. An empty streamSID gets a
// synthesized exotel_<timestamp> id so outbound frames are always
// attributable. seqBase resets the sequence counter from the carrier's
// numbering; subsequent outbound frames continue from there.
func (s *Session) Start(streamSID, callSID string, seqBase int64) string {
	if streamSID == "" {
		streamSID = fmt.Sprintf("exotel_%d", time.Now().UnixMilli())
	}
	s.mu.Lock()
	s.streamSID = streamSID
	s.callSID = callSID
	s.mu.Unlock()
	s.seq.Store(seqBase)
	s.state.Store(int32(StateStarted))
	return streamSID
}

// StreamSID returns the stream id, empty before Start.
func (s *Session) StreamSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSID
}

// CallSID returns the call id, empty before Start.
func (s *Session) CallSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callSID
}

// NextSeq increments and returns the outbound sequence number. It is
// strictly increasing for the lifetime of the session, across media and
// mark frames alike.
func (s *Session) NextSeq() int64 { return s.seq.Add(1) }

// ObserveChunk records the carrier's media chunk numbering so outbound
// chunks continue past it.
func (s *Session) ObserveChunk(chunk int64) {
	for {
		cur := s.lastChunk.Load()
		if chunk <= cur || s.lastChunk.CompareAndSwap(cur, chunk) {
			return
		}
	}
}

// NextChunk increments and returns the outbound chunk number.
func (s *Session) NextChunk() int64 { return s.lastChunk.Add(1) }

// TryBeginProcessing acquires the per-session pipeline gate without
// blocking. At most one pipeline run executes per session; a second
// trigger while one is in flight is simply skipped and the audio keeps
// accumulating for the next flush.
func (s *Session) TryBeginProcessing() bool {
	return s.processing.CompareAndSwap(false, true)
}

// EndProcessing releases the pipeline gate.
func (s *Session) EndProcessing() { s.processing.Store(false) }

// Processing reports whether a pipeline run is in flight.
func (s *Session) Processing() bool { return s.processing.Load() }

// AppendTurns records a completed user/assistant exchange.
func (s *Session) AppendTurns(turns ...Turn) {
	s.mu.Lock()
	s.history = append(s.history, turns...)
	s.mu.Unlock()
}

// History returns a snapshot of the conversation so far, oldest first.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Close marks the session closed and drops any pending audio. Safe to
// call more than once.
func (s *Session) Close() {
	s.state.Store(int32(StateClosed))
	s.Buffer.Reset()
}

// Closed reports whether the session reached its terminal state.
func (s *Session) Closed() bool { return s.State() == StateClosed }
