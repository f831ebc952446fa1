// Package transports owns the carrier-facing WebSocket: upgrade,
// inbound read loop, event dispatch and the paced outbound streamer.
// One goroutine per connection reads frames in arrival order; pipeline
// runs execute asynchronously and never block ingestion.
package transports

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/square-key-labs/exobridge/src/audio"
	"github.com/square-key-labs/exobridge/src/frames"
	"github.com/square-key-labs/exobridge/src/logger"
	"github.com/square-key-labs/exobridge/src/pipeline"
	"github.com/square-key-labs/exobridge/src/serializers"
	"github.com/square-key-labs/exobridge/src/session"
)

// BridgeConfig wires the bridge's collaborators and pacing policy.
type BridgeConfig struct {
	Orchestrator      *pipeline.Orchestrator
	DefaultSampleRate int           // used when no sample-rate query param arrives
	ReadTimeout       time.Duration // per-frame read deadline, default 60s
	FrameBytes        int           // preferred outbound frame size
	FrameDelay        time.Duration // inter-frame pacing delay
	Log               *logger.Logger
}

// Bridge accepts carrier media streams and runs one session per
// connection.
type Bridge struct {
	orch        *pipeline.Orchestrator
	upgrader    websocket.Upgrader
	defaultRate int
	readTimeout time.Duration
	frameBytes  int
	frameDelay  time.Duration
	log         *logger.Logger
}

func NewBridge(cfg BridgeConfig) *Bridge {
	if cfg.DefaultSampleRate <= 0 {
		cfg.DefaultSampleRate = 16000
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.FrameBytes <= 0 {
		cfg.FrameBytes = defaultFrameBytes
	}
	if cfg.FrameDelay <= 0 {
		cfg.FrameDelay = defaultFrameDelay
	}
	if cfg.Log == nil {
		cfg.Log = logger.GetDefault()
	}
	return &Bridge{
		orch: cfg.Orchestrator,
		upgrader: websocket.Upgrader{
			// carriers do not send Origin headers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		defaultRate: cfg.DefaultSampleRate,
		readTimeout: cfg.ReadTimeout,
		frameBytes:  cfg.FrameBytes,
		frameDelay:  cfg.FrameDelay,
		log:         cfg.Log,
	}
}

// Handler returns the echo route handler for one bridge variant. The
// sample-rate query parameter overrides defaultRate; the codec query
// parameter ("linear16", "mulaw", "alaw") overrides the payload codec,
// default linear16 base64 PCM.
func (b *Bridge) Handler(defaultRate int) echo.HandlerFunc {
	if defaultRate <= 0 {
		defaultRate = b.defaultRate
	}
	return func(c echo.Context) error {
		rate := defaultRate
		if v := c.QueryParam("sample-rate"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rate = n
			}
		}
		codec := c.QueryParam("codec")

		conn, err := b.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			b.log.Error("websocket upgrade failed: %v", err)
			return err
		}

		b.Serve(conn, rate, codec)
		return nil
	}
}

// Serve runs one connection to completion. Exported so tests can drive
// the bridge over a fake Conn.
func (b *Bridge) Serve(conn Conn, sampleRate int, codec string) {
	id := uuid.NewString()[:8]
	log := b.log.WithPrefix(id)

	sess := session.New(id, sampleRate)
	ser := serializers.NewExotelSerializer()
	w := &connWriter{conn: conn}

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		sess.Close()
		_ = conn.Close()
		log.Info("session closed")
	}()

	// best-effort handshake ack; a send failure here is not fatal
	if err := w.WriteText(ser.ConnectedMessage()); err != nil {
		log.Warn("connected ack failed: %v", err)
	}
	sess.Connected()
	log.Info("connection established, rate=%d codec=%s", sampleRate, orDefault(codec, "linear16"))

	streamer := &Streamer{
		w:          w,
		sess:       sess,
		ser:        ser,
		frameBytes: b.frameBytes,
		frameDelay: b.frameDelay,
		log:        log,
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(b.readTimeout))

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("read error: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			// the Exotel protocol is text-only; binary frames are noise
			log.Debug("ignoring non-text frame (%d bytes)", len(data))
			continue
		}

		ev, err := ser.Deserialize(data)
		if err != nil {
			// a single bad frame must never end the call: tell the
			// carrier to drop queued playback and keep reading
			log.Warn("dropping frame: %v", err)
			if werr := w.WriteText(ser.ClearMessage()); werr != nil {
				log.Warn("clear failed: %v", werr)
			}
			continue
		}

		switch f := ev.(type) {
		case frames.Connected:
			// informational only

		case frames.Start:
			sid := sess.Start(f.StreamSID, f.CallSID, f.SequenceNumber)
			ser.SetStreamSID(sid)
			if codec == "" && f.MediaFormat != nil {
				codec = f.MediaFormat["encoding"]
			}
			log.Info("stream started sid=%s call=%s seq=%d", sid, f.CallSID, f.SequenceNumber)

		case frames.Media:
			sess.ObserveChunk(f.Chunk)
			sess.Buffer.Append(decodePayload(f.Payload, codec))
			if utterance := sess.Buffer.FlushIfReady(); utterance != nil {
				// fire-and-forget: the read loop never waits on the
				// pipeline; the session gate keeps runs single-flight
				go b.orch.ProcessUtterance(ctx, sess, streamer, utterance)
			}

		case frames.DTMF:
			// extension hook: surfaced but no pipeline effect
			log.Info("dtmf digit=%s duration=%dms", f.Digit, f.Duration)

		case frames.Mark:
			log.Debug("mark acknowledged: %s", f.Name)

		case frames.Stop:
			log.Info("stop received, reason=%s", orDefault(f.Reason, "none"))
			if err := w.WriteText(ser.MarkMessage(sess.NextSeq(), "call-complete")); err != nil {
				log.Warn("final mark failed: %v", err)
			}
			_ = w.WriteClose(websocket.CloseNormalClosure, "")
			return
		}
	}
}

// decodePayload converts a carrier media payload to PCM16LE according
// to the negotiated codec.
func decodePayload(payload []byte, codec string) []byte {
	switch codec {
	case "mulaw", "ulaw", "PCMU":
		return audio.MulawToPCM16(payload)
	case "alaw", "PCMA":
		return audio.AlawToPCM16(payload)
	default:
		return payload
	}
}

func orDefault(s, d string) string {
	if s == "" {
		return d
	}
	return s
}
