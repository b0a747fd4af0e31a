package recognizer

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// saveWAV persists raw PCM under a timestamped name so unrecognized
// audio can be inspected offline. Returns the written path.
func saveWAV(dir string, pcm []byte, sampleRate int) (string, error) {
	name := "unrecognized_audio_" + time.Now().Format("20060102_150405") + ".wav"
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
