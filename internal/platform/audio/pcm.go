// Package audio decodes synthesized speech and models the single audio
// output of a portal session.
package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	// SpeechSampleRate is the sample rate of synthesized speech.
	SpeechSampleRate = 24000
	// SpeechChannels is the channel count of synthesized speech.
	SpeechChannels = 1
)

var (
	ErrEmptyAudio     = errors.New("audio payload is empty")
	ErrMalformedAudio = errors.New("audio payload is not 16-bit PCM")
)

// Clip is decoded 16-bit PCM audio.
type Clip struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Duration returns how long the clip plays.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// DecodePCM decodes base64 little-endian 16-bit PCM.
func DecodePCM(encoded string, sampleRate, channels int) (Clip, error) {
	if encoded == "" {
		return Clip{}, ErrEmptyAudio
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Clip{}, fmt.Errorf("decode audio: %w", err)
	}
	if len(raw) == 0 {
		return Clip{}, ErrEmptyAudio
	}
	if len(raw)%2 != 0 {
		return Clip{}, ErrMalformedAudio
	}
	samples := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, samples); err != nil {
		return Clip{}, fmt.Errorf("decode audio: %w", err)
	}
	return Clip{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}

// DecodeSpeech decodes a speech payload at the synthesizer's format.
func DecodeSpeech(encoded string) (Clip, error) {
	return DecodePCM(encoded, SpeechSampleRate, SpeechChannels)
}

// EncodeWAV wraps the clip in a canonical 44-byte RIFF/WAVE header.
func EncodeWAV(c Clip) []byte {
	const bitsPerSample = 16
	dataLen := uint32(len(c.Samples) * 2)
	blockAlign := uint16(c.Channels * bitsPerSample / 8)
	byteRate := uint32(c.SampleRate) * uint32(blockAlign)

	var buf bytes.Buffer
	buf.Grow(44 + int(dataLen))
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(c.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(c.SampleRate))
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	binary.Write(&buf, binary.LittleEndian, c.Samples)
	return buf.Bytes()
}
