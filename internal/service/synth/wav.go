package synth

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth = 16
	wavChannels = 1
	wavPCM      = 1
)

// EncodeWAV writes clip as 16-bit mono PCM WAV.
func EncodeWAV(w io.WriteSeeker, clip Clip) error {
	buffer := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: wavChannels, SampleRate: clip.SampleRate},
		SourceBitDepth: wavBitDepth,
		Data:           make([]int, len(clip.Samples)),
	}
	for i, s := range clip.Samples {
		buffer.Data[i] = int(math.Round(float64(s) * math.MaxInt16))
	}

	enc := wav.NewEncoder(w, clip.SampleRate, wavBitDepth, wavChannels, wavPCM)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// WAVBytes encodes clip and returns the file contents. The encoder seeks
// back to patch chunk sizes, so the clip goes through a temp file first.
func WAVBytes(clip Clip) ([]byte, error) {
	file, err := os.CreateTemp("", "organ_clip_*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := EncodeWAV(file, clip); err != nil {
		return nil, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind wav: %w", err)
	}
	return io.ReadAll(file)
}
