package transports

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/square-key-labs/exobridge/src/audio"
	"github.com/square-key-labs/exobridge/src/logger"
	"github.com/square-key-labs/exobridge/src/serializers"
	"github.com/square-key-labs/exobridge/src/session"
)

func newTestStreamer(conn *fakeConn, sampleRate int) (*Streamer, *session.Session) {
	sess := session.New("t1", sampleRate)
	sess.Start("sid1", "call1", 0)
	ser := serializers.NewExotelSerializer()
	ser.SetStreamSID("sid1")
	return &Streamer{
		w:          &connWriter{conn: conn},
		sess:       sess,
		ser:        ser,
		frameBytes: 3200,
		frameDelay: time.Millisecond,
		log:        logger.GetDefault(),
	}, sess
}

func TestStreamBase64WAV(t *testing.T) {
	conn := newFakeConn()
	st, _ := newTestStreamer(conn, 8000)

	pcm := make([]byte, 8000)
	wav := base64.StdEncoding.EncodeToString(audio.WAVFromPCM16(pcm, 8000))
	if err := st.StreamBase64WAV(context.Background(), wav); err != nil {
		t.Fatal(err)
	}

	evs := conn.events()
	// 8000 bytes at 3200 per frame is 3 media frames plus the mark
	if len(evs) != 4 {
		t.Fatalf("wrote %d frames, want 4", len(evs))
	}
	var total int
	for i, ev := range evs[:3] {
		if ev["event"] != "media" {
			t.Fatalf("frame %d event = %v", i, ev["event"])
		}
		media := ev["media"].(map[string]any)
		payload, err := base64.StdEncoding.DecodeString(media["payload"].(string))
		if err != nil {
			t.Fatal(err)
		}
		total += len(payload)
		if chunk := int64(media["chunk"].(float64)); chunk != int64(i+1) {
			t.Fatalf("frame %d chunk = %d", i, chunk)
		}
	}
	if total != len(pcm) {
		t.Fatalf("streamed %d payload bytes, want %d", total, len(pcm))
	}

	last := evs[3]
	if last["event"] != "mark" {
		t.Fatalf("last event = %v", last["event"])
	}
	name := last["mark"].(map[string]any)["name"].(string)
	if !strings.HasPrefix(name, "bot-tts-") {
		t.Fatalf("mark name = %q", name)
	}
}

func TestStreamSequenceStrictlyIncreasing(t *testing.T) {
	conn := newFakeConn()
	st, _ := newTestStreamer(conn, 8000)

	wav := base64.StdEncoding.EncodeToString(audio.WAVFromPCM16(make([]byte, 12800), 8000))
	if err := st.StreamBase64WAV(context.Background(), wav); err != nil {
		t.Fatal(err)
	}

	prev := int64(0)
	for i, ev := range conn.events() {
		seq := int64(ev["sequence_number"].(float64))
		if seq <= prev {
			t.Fatalf("frame %d seq %d not greater than %d", i, seq, prev)
		}
		prev = seq
	}
}

func TestStreamResamplesToSessionRate(t *testing.T) {
	conn := newFakeConn()
	st, _ := newTestStreamer(conn, 8000)

	// 16kHz reply into an 8kHz session halves the payload
	wav := base64.StdEncoding.EncodeToString(audio.WAVFromPCM16(make([]byte, 6400), 16000))
	if err := st.StreamBase64WAV(context.Background(), wav); err != nil {
		t.Fatal(err)
	}

	var total int
	for _, ev := range conn.events() {
		if ev["event"] != "media" {
			continue
		}
		payload, _ := base64.StdEncoding.DecodeString(ev["media"].(map[string]any)["payload"].(string))
		total += len(payload)
	}
	if total != 3200 {
		t.Fatalf("streamed %d bytes, want 3200", total)
	}
}

func TestStreamCancelledContext(t *testing.T) {
	conn := newFakeConn()
	st, _ := newTestStreamer(conn, 8000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wav := base64.StdEncoding.EncodeToString(audio.WAVFromPCM16(make([]byte, 8000), 8000))
	if err := st.StreamBase64WAV(ctx, wav); err == nil {
		t.Fatal("expected context error")
	}
	for _, ev := range conn.events() {
		if ev["event"] == "media" {
			t.Fatal("media sent on a cancelled context")
		}
	}
}

func TestStreamBadBase64(t *testing.T) {
	conn := newFakeConn()
	st, _ := newTestStreamer(conn, 8000)
	if err := st.StreamBase64WAV(context.Background(), "***"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestStreamEmptyAudioIsNoop(t *testing.T) {
	conn := newFakeConn()
	st, _ := newTestStreamer(conn, 8000)
	wav := base64.StdEncoding.EncodeToString(audio.WAVFromPCM16(nil, 8000))
	if err := st.StreamBase64WAV(context.Background(), wav); err != nil {
		t.Fatal(err)
	}
	if len(conn.events()) != 0 {
		t.Fatalf("wrote %d frames for empty audio", len(conn.events()))
	}
}
