package recognizer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/aliftffd/speech-recognition-withOLLAMA/audio"
	"github.com/aliftffd/speech-recognition-withOLLAMA/log"
)

const (
	levelMax      = 20
	levelInterval = 100 * time.Millisecond
	pollInterval  = 50 * time.Millisecond
	preRollChunks = 8 // audio kept from just before the threshold trip
)

// Worker drives capture cycles against a Service. One Worker is shared
// by all sessions; per-cycle state lives on the stack of
// CaptureAndRecognize.
type Worker struct {
	service Service
	debug   atomic.Bool

	// DumpDir receives debug WAV artifacts; empty means cwd.
	DumpDir string

	// OnLevel, when set, receives audio level samples in [0, levelMax].
	// Called from the capture goroutine.
	OnLevel func(level int)

	// Shrunk by tests; production uses the package constants.
	ambientWindow  time.Duration
	phraseSilence  time.Duration
	captureTimeout time.Duration
	maxPhrase      time.Duration
}

func NewWorker(service Service) *Worker {
	return &Worker{
		service:        service,
		ambientWindow:  AmbientWindow,
		phraseSilence:  PhraseSilence,
		captureTimeout: CaptureTimeout,
		maxPhrase:      MaxPhrase,
	}
}

// SetDebug toggles persisting unrecognized audio. Safe from any goroutine.
func (w *Worker) SetDebug(on bool) { w.debug.Store(on) }

func (w *Worker) Debug() bool { return w.debug.Load() }

// CaptureAndRecognize runs one full cycle: ambient calibration, speech
// capture, then one blocking Transcribe call. The artifact path is
// non-empty when a debug WAV was written; it accompanies an error, it
// does not replace one.
func (w *Worker) CaptureAndRecognize(ctx context.Context, stream audio.CaptureDevice, language string) (tr *Transcript, artifact string, err error) {
	start := time.Now()
	pcm, err := w.capture(ctx, stream)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			artifact = w.maybeDump(pcm, stream.SampleRate())
		}
		return nil, artifact, err
	}

	wavData := encodeWAV(pcm, int(stream.SampleRate()))
	text, svcErr := w.service.Transcribe(ctx, wavData, language)
	if svcErr != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrServiceUnavailable, svcErr)
	}
	if text == "" {
		artifact = w.maybeDump(pcm, stream.SampleRate())
		return nil, artifact, ErrNotUnderstood
	}

	audioSeconds := float64(len(pcm)) / 2 / float64(stream.SampleRate())
	log.Recognition(language, audioSeconds, time.Since(start).Seconds()*1000)

	return &Transcript{Time: time.Now(), Text: text, Language: language}, "", nil
}

func (w *Worker) maybeDump(pcm []byte, rate uint32) string {
	if !w.debug.Load() || len(pcm) == 0 {
		return ""
	}
	path, err := saveWAV(w.DumpDir, pcm, int(rate))
	if err != nil {
		return ""
	}
	return path
}

// capture blocks until a phrase has been recorded or the capture
// window expires. The returned PCM includes a short pre-roll so the
// first syllable is not clipped.
func (w *Worker) capture(ctx context.Context, stream audio.CaptureDevice) ([]byte, error) {
	chunks := make(chan []byte, 64)
	stream.SetCallback(func(data []byte, _ uint32) {
		buf := make([]byte, len(data))
		copy(buf, data)
		select {
		case chunks <- buf:
		default: // consumer stalled; drop rather than block the driver
		}
	})
	defer stream.ClearCallback()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("starting capture: %w", err)
	}
	defer stream.Stop()
	defer func() {
		if w.OnLevel != nil {
			w.OnLevel(0)
		}
	}()

	threshold := float64(EnergyThreshold)

	// Ambient noise calibration: raise the threshold over the
	// measured floor, never below the fixed policy minimum.
	var ambientSum float64
	var ambientN int
	calibrateUntil := time.Now().Add(w.ambientWindow)
	for time.Now().Before(calibrateUntil) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk := <-chunks:
			ambientSum += rms(chunk)
			ambientN++
		case <-time.After(pollInterval):
		}
	}
	if ambientN > 0 {
		if dyn := (ambientSum / float64(ambientN)) * 1.5; dyn > threshold {
			threshold = dyn
		}
	}

	var (
		preRoll   [][]byte
		phrase    []byte
		speaking  bool
		lastLoud  time.Time
		started   time.Time
		lastLevel time.Time
	)
	deadline := time.Now().Add(w.captureTimeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk := <-chunks:
			level := rms(chunk)
			w.emitLevel(scaleLevel(level), &lastLevel)

			if !speaking {
				preRoll = append(preRoll, chunk)
				if len(preRoll) > preRollChunks {
					preRoll = preRoll[1:]
				}
				if level > threshold {
					speaking = true
					started = time.Now()
					lastLoud = started
					phrase = concat(preRoll)
					continue
				}
				// Dynamic adjustment: drift the threshold toward
				// the observed floor while waiting.
				threshold = threshold*0.85 + level*1.5*0.15
				if threshold < EnergyThreshold {
					threshold = EnergyThreshold
				}
				if time.Now().After(deadline) {
					return concat(preRoll), ErrTimeout
				}
				continue
			}

			phrase = append(phrase, chunk...)
			if level > threshold {
				lastLoud = time.Now()
			} else if time.Since(lastLoud) > w.phraseSilence {
				return phrase, nil
			}
			if time.Since(started) > w.maxPhrase {
				return phrase, nil
			}

		case <-time.After(pollInterval):
			if !speaking {
				if time.Now().After(deadline) {
					return concat(preRoll), ErrTimeout
				}
			} else if time.Since(lastLoud) > w.phraseSilence {
				return phrase, nil
			}
		}
	}
}

func (w *Worker) emitLevel(level int, last *time.Time) {
	if w.OnLevel == nil {
		return
	}
	if time.Since(*last) < levelInterval {
		return
	}
	*last = time.Now()
	w.OnLevel(level)
}

func concat(chunks [][]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// rms computes the root-mean-square amplitude of 16-bit LE PCM on the
// raw sample scale, matching the EnergyThreshold units.
func rms(data []byte) float64 {
	n := len(data) / 2
	if n == 0 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(data[i:])))
		sumSquares += s * s
	}
	return math.Sqrt(sumSquares / float64(n))
}

func scaleLevel(level float64) int {
	scaled := int(level / EnergyThreshold)
	if scaled > levelMax {
		return levelMax
	}
	return scaled
}

// encodeWAV wraps raw 16-bit mono PCM in a RIFF header for the
// transcription request body.
func encodeWAV(pcm []byte, sampleRate int) []byte {
	dataSize := len(pcm)
	out := make([]byte, 0, 44+dataSize)

	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(36+dataSize))
	out = append(out, "WAVE"...)

	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, 16)
	out = binary.LittleEndian.AppendUint16(out, 1) // PCM
	out = binary.LittleEndian.AppendUint16(out, 1) // mono
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate))
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate*2))
	out = binary.LittleEndian.AppendUint16(out, 2)
	out = binary.LittleEndian.AppendUint16(out, 16)

	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(dataSize))
	out = append(out, pcm...)
	return out
}
