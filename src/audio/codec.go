package audio

import (
	"encoding/binary"
	"fmt"
)

// Carrier frame size limits for outbound media payloads. Frames must be
// a multiple of 320 bytes (20ms of PCM16 at 8kHz) and never exceed the
// carrier's 100kB payload cap.
const (
	MinFrameBytes = 320
	MaxFrameBytes = 100_000

	// DefaultSampleRate applies when audio arrives without any rate
	// information (raw PCM with no WAV header).
	DefaultSampleRate = 8000
)

// Concat joins chunks into one contiguous buffer, preserving order.
func Concat(chunks [][]byte) []byte {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// WAVFromPCM16 wraps raw PCM16LE mono samples in a canonical 44-byte
// RIFF/WAVE header. Empty input yields a valid header with a zero-length
// data chunk.
func WAVFromPCM16(pcm []byte, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	const headerLen = 44
	out := make([]byte, headerLen+len(pcm))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(headerLen+len(pcm)-8))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM format tag
	binary.LittleEndian.PutUint16(out[22:24], 1)  // mono
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(out[32:34], 2)                    // block align
	binary.LittleEndian.PutUint16(out[34:36], 16)                   // bits per sample

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[44:], pcm)

	return out
}

// PCM16FromWAV extracts the PCM payload and sample rate from a WAV
// buffer by walking the RIFF chunk sequence. Unknown chunks (LIST,
// fact, ...) are skipped using their declared sizes, so the data chunk
// does not have to come right after fmt. Input without RIFF/WAVE magic
// is treated as raw PCM at the default rate. A WAV with no data chunk
// yields empty PCM rather than an error: live call audio must never
// take the bridge down.
func PCM16FromWAV(wav []byte) ([]byte, int) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return wav, DefaultSampleRate
	}

	sampleRate := DefaultSampleRate
	pos := 12
	for pos+8 <= len(wav) {
		id := string(wav[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body > len(wav) {
			break
		}
		end := body + size
		if end > len(wav) {
			end = len(wav)
		}

		switch id {
		case "fmt ":
			if end-body >= 8 {
				sampleRate = int(binary.LittleEndian.Uint32(wav[body+4 : body+8]))
			}
		case "data":
			return wav[body:end], sampleRate
		}

		pos = body + size
		if size%2 == 1 {
			pos++ // RIFF chunks are word-aligned
		}
	}

	return nil, sampleRate
}

// SplitFrames slices pcm into carrier-legal frames. The preferred size
// is rounded to the nearest multiple of 320 and clamped to
// [MinFrameBytes, MaxFrameBytes]; the final frame may be shorter.
func SplitFrames(pcm []byte, preferredSize int) [][]byte {
	size := ((preferredSize + MinFrameBytes/2) / MinFrameBytes) * MinFrameBytes
	if size < MinFrameBytes {
		size = MinFrameBytes
	}
	if size > MaxFrameBytes {
		size = MaxFrameBytes
	}

	if len(pcm) == 0 {
		return nil
	}

	frames := make([][]byte, 0, (len(pcm)+size-1)/size)
	for off := 0; off < len(pcm); off += size {
		end := off + size
		if end > len(pcm) {
			end = len(pcm)
		}
		frames = append(frames, pcm[off:end])
	}
	return frames
}

// BytesToPCM converts little-endian bytes to int16 samples.
func BytesToPCM(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("invalid PCM data length: %d", len(data))
	}
	pcm := make([]int16, len(data)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return pcm, nil
}

// PCMToBytes converts int16 samples to little-endian bytes.
func PCMToBytes(pcm []int16) []byte {
	data := make([]byte, len(pcm)*2)
	for i, v := range pcm {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	return data
}

// Resample performs linear-interpolation resampling of mono PCM.
func Resample(input []int16, inputRate, outputRate int) []int16 {
	if inputRate == outputRate || inputRate <= 0 || outputRate <= 0 {
		return input
	}

	ratio := float64(inputRate) / float64(outputRate)
	outputLen := int(float64(len(input)) / ratio)
	output := make([]int16, outputLen)

	for i := 0; i < outputLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		if srcIdx+1 < len(input) {
			s1 := float64(input[srcIdx])
			s2 := float64(input[srcIdx+1])
			output[i] = int16(s1 + (s2-s1)*frac)
		} else if srcIdx < len(input) {
			output[i] = input[srcIdx]
		}
	}

	return output
}

// ResampleBytes resamples PCM16LE bytes between rates. Odd-length input
// is truncated to the last full sample.
func ResampleBytes(pcm []byte, inputRate, outputRate int) []byte {
	if inputRate == outputRate {
		return pcm
	}
	if len(pcm)%2 == 1 {
		pcm = pcm[:len(pcm)-1]
	}
	samples, err := BytesToPCM(pcm)
	if err != nil {
		return pcm
	}
	return PCMToBytes(Resample(samples, inputRate, outputRate))
}
