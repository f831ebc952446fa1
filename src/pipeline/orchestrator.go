// Package pipeline drives one utterance through STT -> LLM -> TTS. A
// run is triggered by the transport when the accumulation buffer
// flushes; every collaborator failure is scoped to that utterance and
// the session stays live for the next one.
package pipeline

import (
	"context"
	"time"

	"github.com/square-key-labs/exobridge/src/audio"
	"github.com/square-key-labs/exobridge/src/logger"
	"github.com/square-key-labs/exobridge/src/services/llm"
	"github.com/square-key-labs/exobridge/src/services/tts"
	"github.com/square-key-labs/exobridge/src/session"
)

// minUtteranceBytes is the too-small guard: anything under 320 bytes
// (20ms at 16kHz) carries no usable speech.
const minUtteranceBytes = 320

// Transcriber converts one WAV utterance to text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// Synthesizer converts reply text to carrier-playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (tts.Synthesis, error)
}

// AudioSink receives the synthesized audio for outbound streaming.
type AudioSink interface {
	StreamBase64WAV(ctx context.Context, audioB64 string) error
}

// Config wires the orchestrator's collaborators and policy.
type Config struct {
	STT          Transcriber
	TTS          Synthesizer
	Models       []llm.Factory // tried in order per utterance
	SystemPrompt string
	MaxHistory   int           // conversation window, default 20
	CallTimeout  time.Duration // per external call, default 20s
	Log          *logger.Logger
}

type Orchestrator struct {
	stt          Transcriber
	tts          Synthesizer
	models       []llm.Factory
	systemPrompt string
	maxHistory   int
	callTimeout  time.Duration
	log          *logger.Logger
}

func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 20 * time.Second
	}
	if cfg.Log == nil {
		cfg.Log = logger.GetDefault()
	}
	return &Orchestrator{
		stt:          cfg.STT,
		tts:          cfg.TTS,
		models:       cfg.Models,
		systemPrompt: cfg.SystemPrompt,
		maxHistory:   cfg.MaxHistory,
		callTimeout:  cfg.CallTimeout,
		log:          cfg.Log,
	}
}

// ProcessUtterance runs the full pipeline for one buffered utterance.
// It is a no-op when a run is already in flight for the session: no
// queueing, no stacking; the next threshold flush picks up whatever
// accumulated meanwhile. The gate is released on every path. The caller
// on the phone hears silence for a failed turn; no error frame is ever
// sent.
func (o *Orchestrator) ProcessUtterance(ctx context.Context, sess *session.Session, sink AudioSink, pcm []byte) {
	if !sess.TryBeginProcessing() {
		o.log.Debug("pipeline busy, skipping flush of %d bytes", len(pcm))
		return
	}
	defer sess.EndProcessing()

	if len(pcm) < minUtteranceBytes {
		o.log.Debug("utterance too small (%d bytes), skipping", len(pcm))
		return
	}

	transcript, ok := o.transcribe(ctx, sess, pcm)
	if !ok {
		return
	}

	reply, ok := o.generate(ctx, sess, transcript)
	if !ok {
		return
	}
	o.log.Info("assistant: %s", reply)

	syn, err := o.synthesize(ctx, reply)
	if err != nil {
		o.log.Error("tts failed: %v", err)
		return
	}

	sess.AppendTurns(
		session.Turn{Role: "user", Text: transcript},
		session.Turn{Role: "assistant", Text: reply},
	)

	if err := sink.StreamBase64WAV(ctx, syn.AudioData); err != nil {
		o.log.Warn("outbound stream aborted: %v", err)
	}
}

func (o *Orchestrator) transcribe(ctx context.Context, sess *session.Session, pcm []byte) (string, bool) {
	wav := audio.WAVFromPCM16(pcm, sess.SampleRate)

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	transcript, err := o.stt.Transcribe(callCtx, wav)
	if err != nil {
		o.log.Error("stt failed: %v", err)
		return "", false
	}
	if transcript == "" {
		o.log.Debug("empty transcript, skipping turn")
		return "", false
	}
	o.log.Info("heard: %s", transcript)
	return transcript, true
}

// generate formats the prompt, acquires a model through the tier
// fallback, invokes it and extracts the reply text. Every error here
// aborts this turn only; nothing propagates to the socket layer.
func (o *Orchestrator) generate(ctx context.Context, sess *session.Session, userText string) (string, bool) {
	prompt, err := FormatPrompt(sess.History(), o.systemPrompt, userText, o.maxHistory)
	if err != nil {
		o.log.Error("prompt formatting failed: %v", err)
		return "", false
	}

	model, err := llm.Acquire(ctx, o.models...)
	if err != nil {
		o.log.Error("%v", err)
		return "", false
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	result, err := llm.Invoke(callCtx, model, prompt)
	if err != nil {
		o.log.Error("llm invocation failed: %v", err)
		return "", false
	}

	reply, err := llm.ExtractText(result)
	if err != nil {
		o.log.Error("%v", err)
		return "", false
	}
	return reply, true
}

func (o *Orchestrator) synthesize(ctx context.Context, text string) (tts.Synthesis, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return o.tts.Synthesize(callCtx, text)
}
