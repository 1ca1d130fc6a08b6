package capture

import (
	"bytes"
	"encoding/binary"

	"github.com/go-audio/audio"
)

// WAVHeaderSize is the size of the canonical RIFF/WAVE PCM header.
const WAVHeaderSize = 44

const (
	wavChannels      = 1
	wavBitsPerSample = 16
)

// EncodeWAV wraps mono 16-bit samples at sampleRate in a 44-byte WAV header.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	dataLen := uint32(len(samples) * 2)
	blockAlign := uint16(wavChannels * wavBitsPerSample / 8)
	byteRate := uint32(sampleRate) * uint32(blockAlign)

	buf := bytes.NewBuffer(make([]byte, 0, WAVHeaderSize+int(dataLen)))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(wavChannels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, byteRate)
	_ = binary.Write(buf, binary.LittleEndian, blockAlign)
	_ = binary.Write(buf, binary.LittleEndian, uint16(wavBitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, dataLen)
	_ = binary.Write(buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

// Encode runs the full pipeline on mono blocks: merge, resample to 16 kHz,
// PCM16, WAV.
func Encode(blocks [][]float32, sampleRate int) []byte {
	return EncodeBuffer(&audio.Float32Buffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           Merge(blocks),
		SourceBitDepth: 32,
	})
}

// EncodeBuffer converts a captured buffer to a 16 kHz mono WAV payload.
// Interleaved channels are averaged and the source rate is taken from the
// buffer's format; a nil format is treated as mono at TargetSampleRate.
func EncodeBuffer(buf *audio.Float32Buffer) []byte {
	channels, rate := 1, TargetSampleRate
	if buf.Format != nil {
		if buf.Format.NumChannels > 1 {
			channels = buf.Format.NumChannels
		}
		if buf.Format.SampleRate > 0 {
			rate = buf.Format.SampleRate
		}
	}
	mono := Downmix(buf.Data, channels)
	return EncodeWAV(FloatToPCM16(Resample(mono, rate, TargetSampleRate)), TargetSampleRate)
}

// Downmix averages interleaved frames of n channels into one. A trailing
// partial frame is dropped.
func Downmix(data []float32, n int) []float32 {
	if n <= 1 {
		return data
	}
	out := make([]float32, len(data)/n)
	for i := range out {
		var sum float32
		for _, s := range data[i*n : i*n+n] {
			sum += s
		}
		out[i] = sum / float32(n)
	}
	return out
}
