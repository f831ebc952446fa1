package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWAVRoundTrip(t *testing.T) {
	pcm := make([]byte, 6400)
	for i := range pcm {
		pcm[i] = byte(i % 251)
	}
	wav := WAVFromPCM16(pcm, 16000)
	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("bad header magic: %q %q", wav[0:4], wav[8:12])
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Fatalf("sample rate in header = %d", rate)
	}

	got, rate := PCM16FromWAV(wav)
	if rate != 16000 {
		t.Fatalf("parsed rate = %d, want 16000", rate)
	}
	if !bytes.Equal(got, pcm) {
		t.Fatalf("pcm not recovered: got %d bytes", len(got))
	}
}

func TestWAVSkipsUnknownChunks(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	wav := WAVFromPCM16(pcm, 8000)

	// splice a LIST chunk between fmt and data
	extra := []byte("LIST")
	extra = append(extra, 4, 0, 0, 0)
	extra = append(extra, 'I', 'N', 'F', 'O')
	spliced := append([]byte{}, wav[:36]...)
	spliced = append(spliced, extra...)
	spliced = append(spliced, wav[36:]...)
	binary.LittleEndian.PutUint32(spliced[4:8], uint32(len(spliced)-8))

	got, rate := PCM16FromWAV(spliced)
	if rate != 8000 {
		t.Fatalf("rate = %d", rate)
	}
	if !bytes.Equal(got, pcm) {
		t.Fatalf("pcm = %v, want %v", got, pcm)
	}
}

func TestPCM16FromWAVRawFallback(t *testing.T) {
	raw := []byte{1, 0, 2, 0}
	got, rate := PCM16FromWAV(raw)
	if rate != DefaultSampleRate {
		t.Fatalf("fallback rate = %d, want %d", rate, DefaultSampleRate)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("fallback pcm = %v", got)
	}
}

func TestSplitFramesLegality(t *testing.T) {
	cases := []struct {
		name      string
		preferred int
		want      int
	}{
		{"rounds_down", 3300, 3200},
		{"rounds_up", 3500, 3520},
		{"clamps_low", 100, MinFrameBytes},
		{"clamps_high", 200000, MaxFrameBytes},
		{"exact", 3200, 3200},
	}
	pcm := make([]byte, 400000)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frames := SplitFrames(pcm, tc.preferred)
			if len(frames) == 0 {
				t.Fatal("no frames")
			}
			if got := len(frames[0]); got != tc.want {
				t.Fatalf("frame size = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSplitFramesCoversAllBytes(t *testing.T) {
	pcm := make([]byte, 7000)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	frames := SplitFrames(pcm, 3200)
	if got := len(Concat(frames)); got != len(pcm) {
		t.Fatalf("reassembled %d bytes, want %d", got, len(pcm))
	}
	// tail frame carries the remainder
	if last := frames[len(frames)-1]; len(last) != 600 {
		t.Fatalf("tail frame = %d bytes", len(last))
	}
}

func TestMulawDecodeLength(t *testing.T) {
	mu := []byte{0x00, 0x7F, 0xFF, 0x80}
	pcm := MulawToPCM16(mu)
	if len(pcm) != 2*len(mu) {
		t.Fatalf("pcm length = %d, want %d", len(pcm), 2*len(mu))
	}
	samples, err := BytesToPCM(pcm)
	if err != nil {
		t.Fatal(err)
	}
	// 0xFF and 0x7F are silence, 0x00 is the loudest negative sample
	if samples[2] != 0 || samples[1] != 0 {
		t.Fatalf("silence decoded to %d, %d", samples[1], samples[2])
	}
	if samples[0] != -32124 {
		t.Fatalf("0x00 decoded to %d, want -32124", samples[0])
	}
	if samples[3] != 32124 {
		t.Fatalf("0x80 decoded to %d, want 32124", samples[3])
	}
}

func TestAlawDecodeLength(t *testing.T) {
	al := []byte{0x55, 0xD5}
	pcm := AlawToPCM16(al)
	if len(pcm) != 4 {
		t.Fatalf("pcm length = %d", len(pcm))
	}
}

func TestResampleRatio(t *testing.T) {
	input := make([]int16, 160)
	for i := range input {
		input[i] = int16(i)
	}
	out := Resample(input, 8000, 16000)
	if len(out) != 320 {
		t.Fatalf("upsampled length = %d, want 320", len(out))
	}
	down := Resample(input, 16000, 8000)
	if len(down) != 80 {
		t.Fatalf("downsampled length = %d, want 80", len(down))
	}
	same := Resample(input, 8000, 8000)
	if len(same) != len(input) {
		t.Fatalf("identity resample length = %d", len(same))
	}
}

func TestBytesToPCMOddLength(t *testing.T) {
	if _, err := BytesToPCM([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for odd byte count")
	}
}
