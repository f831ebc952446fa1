package transports

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/square-key-labs/exobridge/src/audio"
	"github.com/square-key-labs/exobridge/src/logger"
	"github.com/square-key-labs/exobridge/src/serializers"
	"github.com/square-key-labs/exobridge/src/session"
)

// Conn is the bidirectional message channel the bridge runs on. It is
// the subset of *websocket.Conn the transport needs, which keeps tests
// off the network.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// connWriter serializes all writes to one connection. The read loop
// (clear, final mark) and the streamer goroutine write concurrently.
type connWriter struct {
	mu   sync.Mutex
	conn Conn
}

func (w *connWriter) WriteText(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *connWriter) WriteClose(code int, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}

// Streamer converts one synthesized reply into paced outbound media
// frames followed by a completion mark. One Streamer exists per
// connection and is driven by at most one pipeline run at a time.
type Streamer struct {
	w          *connWriter
	sess       *session.Session
	ser        *serializers.ExotelSerializer
	frameBytes int
	frameDelay time.Duration
	log        *logger.Logger
}

// defaults: ~100ms of PCM16 at 16kHz per frame, 20ms between frames so
// the carrier's playback buffer is never overrun.
const (
	defaultFrameBytes = 3200
	defaultFrameDelay = 20 * time.Millisecond
)

// StreamBase64WAV decodes the TTS payload, resamples it to the session
// rate when needed, splits it into carrier-legal frames and sends them
// in order with the pacing delay. Cancelling ctx (socket closed)
// abandons the pacing loop; no frame is sent after that.
func (st *Streamer) StreamBase64WAV(ctx context.Context, audioB64 string) error {
	raw, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		return fmt.Errorf("decode tts audio: %w", err)
	}

	pcm, rate := audio.PCM16FromWAV(raw)
	if len(pcm) == 0 {
		st.log.Warn("tts returned no playable audio")
		return nil
	}
	if rate != st.sess.SampleRate {
		st.log.Debug("resampling tts audio %d -> %d Hz", rate, st.sess.SampleRate)
		pcm = audio.ResampleBytes(pcm, rate, st.sess.SampleRate)
	}

	frames := audio.SplitFrames(pcm, st.frameBytes)
	for i, frame := range frames {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg := st.ser.MediaMessage(st.sess.NextSeq(), st.sess.NextChunk(), time.Now().UnixMilli(), frame)
		if err := st.w.WriteText(msg); err != nil {
			return fmt.Errorf("send media frame: %w", err)
		}

		if i < len(frames)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(st.frameDelay):
			}
		}
	}

	name := "bot-tts-" + uuid.NewString()[:8]
	if err := st.w.WriteText(st.ser.MarkMessage(st.sess.NextSeq(), name)); err != nil {
		return fmt.Errorf("send mark: %w", err)
	}
	st.log.Debug("streamed %d frames (%d bytes), mark=%s", len(frames), len(pcm), name)
	return nil
}
