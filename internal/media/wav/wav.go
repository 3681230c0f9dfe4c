// Package wav writes mono 16-bit PCM audio as RIFF WAVE files.
package wav

import (
	"bytes"
	"encoding/binary"
	"os"

	"nightshift/internal/services"
)

const headerSize = 44

// Encode wraps raw little-endian 16-bit mono samples in a RIFF WAVE
// container with a standard 44-byte header.
func Encode(sampleRate int, pcm []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(headerSize + len(pcm))

	byteRate := uint32(sampleRate * 2)
	dataLen := uint32(len(pcm))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36)+dataLen)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16)) // PCM fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // PCM format
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, uint16(2))  // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16)) // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	buf.Write(pcm)

	return buf.Bytes()
}

// WritePCM16Mono writes the samples to path as a WAV file.
func WritePCM16Mono(path string, sampleRate int, pcm []byte) error {
	if sampleRate <= 0 {
		return services.Wrap(services.ErrValidation, "audio", "write wav", "sample rate must be positive", nil)
	}
	if len(pcm) == 0 {
		return services.Wrap(services.ErrValidation, "audio", "write wav", "empty audio payload", nil)
	}
	if err := os.WriteFile(path, Encode(sampleRate, pcm), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "audio", "write wav", "write file", err)
	}
	return nil
}

// EstimateDurationSeconds computes playback length from the raw sample byte
// count. Used when the synthesis provider returns no alignment.
func EstimateDurationSeconds(pcmBytes int, sampleRate int) float64 {
	if sampleRate <= 0 || pcmBytes <= 0 {
		return 0
	}
	return float64(pcmBytes) / (2.0 * float64(sampleRate))
}
