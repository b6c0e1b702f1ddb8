package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrEmpty reports an asset that decoded to zero samples.
var ErrEmpty = errors.New("audio contains no samples")

// LoadWAV decodes a PCM WAV file into a mono buffer.
func LoadWAV(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()
	return ReadWAV(f)
}

// ReadWAV decodes PCM WAV data. Multi-channel input is averaged down to mono
// and samples deeper than 16 bits are scaled to 16-bit range.
func ReadWAV(r io.ReadSeeker) (*Buffer, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}
	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}
	if pcm == nil || pcm.Format == nil || pcm.Format.SampleRate <= 0 {
		return nil, errors.New("wav has no sample format")
	}
	buf := fromIntBuffer(pcm, int(decoder.BitDepth))
	if buf.Frames() == 0 {
		return nil, ErrEmpty
	}
	return buf, nil
}

// WriteWAV encodes buf as a 16-bit mono PCM WAV file.
func WriteWAV(path string, buf *Buffer) error {
	if buf == nil || buf.SampleRate <= 0 {
		return errors.New("write wav: missing sample rate")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	depth := buf.BitDepth
	if depth <= 0 {
		depth = 16
	}
	encoder := wav.NewEncoder(f, buf.SampleRate, depth, 1, 1)
	out := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: buf.SampleRate},
		Data:           buf.Samples,
		SourceBitDepth: depth,
	}
	if err := encoder.Write(out); err != nil {
		_ = f.Close()
		return fmt.Errorf("write wav: %w", err)
	}
	if err := encoder.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return f.Close()
}

func fromIntBuffer(pcm *goaudio.IntBuffer, bitDepth int) *Buffer {
	if bitDepth <= 0 {
		bitDepth = pcm.SourceBitDepth
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	channels := pcm.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	frames := len(pcm.Data) / channels
	samples := make([]int, frames)
	shift := 0
	if bitDepth > 16 {
		shift = bitDepth - 16
	}
	for i := range frames {
		sum := 0
		for c := range channels {
			sum += pcm.Data[i*channels+c]
		}
		samples[i] = (sum / channels) >> shift
	}
	depth := bitDepth
	if shift > 0 {
		depth = 16
	}
	return &Buffer{Samples: samples, SampleRate: pcm.Format.SampleRate, BitDepth: depth}
}
