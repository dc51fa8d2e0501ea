// Package audio provides the PCM primitives and device abstractions used by
// the voice session: float32 ↔ 16-bit PCM conversion, fixed-size frame
// chunking, linear resampling, and the capture/playback interfaces the
// session manager owns for the duration of a voice session.
package audio

import (
	"math"
	"time"
)

// bytesPerSample is the width of one little-endian int16 PCM sample.
const bytesPerSample = 2

// QuantizeFloat32 converts float32 samples in [-1, 1] to little-endian 16-bit
// PCM bytes. Samples outside the range are clamped before scaling, so a hot
// microphone signal cannot wrap around.
func QuantizeFloat32(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 0x7FFF)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// DecodePCM16 converts little-endian 16-bit PCM bytes to float32 samples in
// [-1, 1). A trailing odd byte is ignored.
func DecodePCM16(data []byte) []float32 {
	n := len(data) / bytesPerSample
	out := make([]float32, n)
	for i := range n {
		v := int16(data[i*2]) | int16(data[i*2+1])<<8
		out[i] = float32(v) / 32768.0
	}
	return out
}

// Duration returns the playback duration of sampleCount mono samples at the
// given rate. Returns zero for a non-positive rate.
func Duration(sampleCount, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(sampleCount) * time.Second / time.Duration(sampleRate)
}

// DurationPCM16 returns the playback duration of little-endian 16-bit PCM
// bytes at the given rate.
func DurationPCM16(byteLen, sampleRate int) time.Duration {
	return Duration(byteLen/bytesPerSample, sampleRate)
}

// ResampleMono resamples mono float32 samples from srcRate to dstRate using
// linear interpolation. If the rates match (or are invalid) the input is
// returned unchanged.
func ResampleMono(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(samples) < 2 {
		return samples
	}
	dstSamples := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]float32, dstSamples)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}
		out[i] = float32(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return out
}

// FrameChunker accumulates samples and emits fixed-size frames, matching the
// fixed capture frame size the upstream endpoint expects. Create one per
// capture stream; not designed for shared use across goroutines.
type FrameChunker struct {
	size int
	buf  []float32
}

// NewFrameChunker creates a chunker emitting frames of size samples.
// A non-positive size defaults to 4096.
func NewFrameChunker(size int) *FrameChunker {
	if size <= 0 {
		size = 4096
	}
	return &FrameChunker{size: size, buf: make([]float32, 0, size)}
}

// Push appends samples and returns zero or more complete frames. Returned
// frames are freshly allocated and safe to retain.
func (c *FrameChunker) Push(samples []float32) [][]float32 {
	c.buf = append(c.buf, samples...)

	var frames [][]float32
	for len(c.buf) >= c.size {
		frame := make([]float32, c.size)
		copy(frame, c.buf[:c.size])
		frames = append(frames, frame)
		c.buf = c.buf[c.size:]
	}
	return frames
}

// Flush returns any buffered partial frame and resets the chunker.
// Returns nil when nothing is buffered.
func (c *FrameChunker) Flush() []float32 {
	if len(c.buf) == 0 {
		return nil
	}
	out := make([]float32, len(c.buf))
	copy(out, c.buf)
	c.buf = c.buf[:0]
	return out
}

// RMS returns the root-mean-square level of samples in [0, 1]. Used by the
// session's input level meter.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
