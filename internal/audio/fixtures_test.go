package audio

import (
	"encoding/binary"
	"math"
)

// sineSamples generates a 440Hz tone of the given length
func sineSamples(sampleRate int, duration float64) []int16 {
	numSamples := int(float64(sampleRate) * duration)
	samples := make([]int16, numSamples)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		samples[i] = int16(16383.0 * math.Sin(2*math.Pi*440.0*t))
	}
	return samples
}

// pcmWAV builds a minimal 16-bit PCM file: RIFF header, fmt chunk, data chunk
func pcmWAV(samples []int16, sampleRate, channels int) []byte {
	const bitDepth = 16
	blockAlign := channels * bitDepth / 8
	dataSize := len(samples) * 2

	b := make([]byte, 0, 44+dataSize)
	b = append(b, "RIFF"...)
	b = binary.LittleEndian.AppendUint32(b, uint32(36+dataSize))
	b = append(b, "WAVEfmt "...)
	b = binary.LittleEndian.AppendUint32(b, 16)
	b = binary.LittleEndian.AppendUint16(b, 1)
	b = binary.LittleEndian.AppendUint16(b, uint16(channels))
	b = binary.LittleEndian.AppendUint32(b, uint32(sampleRate))
	b = binary.LittleEndian.AppendUint32(b, uint32(sampleRate*blockAlign))
	b = binary.LittleEndian.AppendUint16(b, uint16(blockAlign))
	b = binary.LittleEndian.AppendUint16(b, bitDepth)
	b = append(b, "data"...)
	b = binary.LittleEndian.AppendUint32(b, uint32(dataSize))
	for _, s := range samples {
		b = binary.LittleEndian.AppendUint16(b, uint16(s))
	}
	return b
}

// withListChunk inserts a LIST/INFO chunk between fmt and data, like ffmpeg output
func withListChunk(wav []byte) []byte {
	out := make([]byte, 0, len(wav)+22)
	out = append(out, wav[:36]...)
	out = append(out, "LIST"...)
	out = binary.LittleEndian.AppendUint32(out, 13)
	out = append(out, "INFOISFT\x01\x00\x00\x00x"...)
	out = append(out, 0) // pad byte for odd size
	out = append(out, wav[36:]...)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	return out
}
