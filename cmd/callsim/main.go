// Command callsim dials a running bridge and plays a WAV file at it the
// way a carrier would: start, paced media frames, then stop. Frames the
// bridge sends back are printed as they arrive.
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/square-key-labs/exobridge/src/audio"
	"github.com/square-key-labs/exobridge/src/logger"
)

func main() {
	var (
		target = flag.String("url", "ws://localhost:8080/media", "bridge websocket URL")
		file   = flag.String("file", "", "path to a PCM16 WAV file to stream")
		rate   = flag.Int("rate", 0, "override sample rate (default: WAV header rate)")
	)
	flag.Parse()
	logger.Init()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: callsim -file call.wav [-url ws://host/media]")
		os.Exit(2)
	}

	wav, err := os.ReadFile(*file)
	if err != nil {
		logger.Error("read %s: %v", *file, err)
		os.Exit(1)
	}
	pcm, wavRate := audio.PCM16FromWAV(wav)
	if pcm == nil {
		logger.Error("%s contains no PCM data", *file)
		os.Exit(1)
	}
	if *rate > 0 {
		wavRate = *rate
	}

	url := *target + "?sample-rate=" + strconv.Itoa(wavRate)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		logger.Error("dial %s: %v", url, err)
		os.Exit(1)
	}
	defer conn.Close()
	logger.Info("connected to %s", url)

	done := make(chan struct{})
	go readLoop(conn, done)

	streamSID := "sim_" + uuid.NewString()[:8]
	send(conn, map[string]any{
		"event":           "start",
		"sequence_number": 1,
		"stream_sid":      streamSID,
		"start": map[string]any{
			"stream_sid":   streamSID,
			"call_sid":     "callsim",
			"account_sid":  "callsim",
			"media_format": map[string]string{"encoding": "linear16"},
		},
	})

	frames := audio.SplitFrames(pcm, 3200)
	seq := int64(1)
	for i, frame := range frames {
		seq++
		send(conn, map[string]any{
			"event":           "media",
			"sequence_number": seq,
			"stream_sid":      streamSID,
			"media": map[string]any{
				"chunk":     i + 1,
				"timestamp": strconv.FormatInt(time.Now().UnixMilli(), 10),
				"payload":   base64.StdEncoding.EncodeToString(frame),
			},
		})
		time.Sleep(20 * time.Millisecond)
	}
	logger.Info("streamed %d frames (%d bytes pcm)", len(frames), len(pcm))

	// give the bridge a moment to answer before hanging up
	select {
	case <-done:
	case <-time.After(30 * time.Second):
	}

	seq++
	send(conn, map[string]any{
		"event":           "stop",
		"sequence_number": seq,
		"stream_sid":      streamSID,
		"stop":            map[string]any{"reason": "callsim done"},
	})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(200 * time.Millisecond)
}

func send(conn *websocket.Conn, msg map[string]any) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("marshal: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logger.Error("write: %v", err)
	}
}

// readLoop prints inbound frames and closes done after the first full
// bot reply (a mark following media).
func readLoop(conn *websocket.Conn, done chan struct{}) {
	sawMedia := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg struct {
			Event string `json:"event"`
			Media struct {
				Chunk   int64  `json:"chunk"`
				Payload string `json:"payload"`
			} `json:"media"`
			Mark struct {
				Name string `json:"name"`
			} `json:"mark"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("unparseable frame: %s", data)
			continue
		}
		switch msg.Event {
		case "media":
			sawMedia = true
			logger.Info("<- media chunk=%d payload=%d bytes", msg.Media.Chunk, len(msg.Media.Payload))
		case "mark":
			logger.Info("<- mark %s", msg.Mark.Name)
			if sawMedia {
				select {
				case <-done:
				default:
					close(done)
				}
				sawMedia = false
			}
		default:
			logger.Info("<- %s", msg.Event)
		}
	}
}
