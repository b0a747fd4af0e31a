package recognizer

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aliftffd/speech-recognition-withOLLAMA/audio"
	"github.com/aliftffd/speech-recognition-withOLLAMA/log"
)

// testPCM builds a signal with a silent lead-in (covers ambient
// calibration) followed by loud chunks well above the energy threshold.
func testPCM(silentChunks, loudChunks int) []byte {
	const chunkBytes = 2048
	pcm := make([]byte, 0, (silentChunks+loudChunks)*chunkBytes)
	pcm = append(pcm, make([]byte, silentChunks*chunkBytes)...)
	loud := make([]byte, chunkBytes)
	pos, neg := int16(8000), int16(-8000)
	for i := 0; i+1 < len(loud); i += 4 {
		binary.LittleEndian.PutUint16(loud[i:], uint16(pos))
		binary.LittleEndian.PutUint16(loud[i+2:], uint16(neg))
	}
	for i := 0; i < loudChunks; i++ {
		pcm = append(pcm, loud...)
	}
	return pcm
}

func testWorker(svc Service) *Worker {
	w := NewWorker(svc)
	w.ambientWindow = 20 * time.Millisecond
	w.phraseSilence = 100 * time.Millisecond
	w.captureTimeout = 3 * time.Second
	w.maxPhrase = 2 * time.Second
	return w
}

func openFakeStream(t *testing.T, pcm []byte) audio.CaptureDevice {
	t.Helper()
	ctx := audio.NewFakeContext("Test Mic")
	ctx.PCM = pcm
	stream, err := ctx.NewCapture(nil, audio.CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("NewCapture: %v", err)
	}
	t.Cleanup(stream.Close)
	return stream
}

func TestCaptureAndRecognize(t *testing.T) {
	svc := &Fake{Text: "hello"}
	w := testWorker(svc)
	stream := openFakeStream(t, testPCM(60, 100))

	tr, artifact, err := w.CaptureAndRecognize(context.Background(), stream, "en-US")
	if err != nil {
		t.Fatalf("CaptureAndRecognize: %v", err)
	}
	if tr.Text != "hello" {
		t.Errorf("Text = %q, want %q", tr.Text, "hello")
	}
	if tr.Language != "en-US" {
		t.Errorf("Language = %q, want en-US", tr.Language)
	}
	if artifact != "" {
		t.Errorf("unexpected artifact %q on success", artifact)
	}
	if svc.Calls != 1 {
		t.Errorf("service called %d times, want 1", svc.Calls)
	}
}

func TestCaptureTimeout(t *testing.T) {
	svc := &Fake{Text: "never"}
	w := testWorker(svc)
	w.captureTimeout = 150 * time.Millisecond
	stream := openFakeStream(t, nil) // pure silence

	_, artifact, err := w.CaptureAndRecognize(context.Background(), stream, "en-US")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("got %v, want ErrTimeout", err)
	}
	if artifact != "" {
		t.Errorf("unexpected artifact %q without debug mode", artifact)
	}
	if svc.Calls != 0 {
		t.Errorf("service called %d times on timeout, want 0", svc.Calls)
	}
}

func TestNotUnderstoodWritesDebugArtifact(t *testing.T) {
	svc := &Fake{Text: ""}
	w := testWorker(svc)
	w.SetDebug(true)
	w.DumpDir = t.TempDir()
	stream := openFakeStream(t, testPCM(60, 100))

	_, artifact, err := w.CaptureAndRecognize(context.Background(), stream, "id-ID")
	if !errors.Is(err, ErrNotUnderstood) {
		t.Fatalf("got %v, want ErrNotUnderstood", err)
	}
	if artifact == "" {
		t.Fatal("expected a WAV artifact path")
	}
	if !strings.HasPrefix(filepath.Base(artifact), "unrecognized_audio_") {
		t.Errorf("artifact name %q", filepath.Base(artifact))
	}
	data, err := os.ReadFile(artifact)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if len(data) < 44 || string(data[:4]) != "RIFF" {
		t.Errorf("artifact is not a WAV file (%d bytes)", len(data))
	}

	entries, err := os.ReadDir(w.DumpDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d artifacts, want exactly 1", len(entries))
	}
}

func TestNotUnderstoodNoArtifactWithoutDebug(t *testing.T) {
	svc := &Fake{Text: ""}
	w := testWorker(svc)
	w.DumpDir = t.TempDir()
	stream := openFakeStream(t, testPCM(60, 100))

	_, artifact, err := w.CaptureAndRecognize(context.Background(), stream, "id-ID")
	if !errors.Is(err, ErrNotUnderstood) {
		t.Fatalf("got %v, want ErrNotUnderstood", err)
	}
	if artifact != "" {
		t.Errorf("unexpected artifact %q", artifact)
	}
}

func TestServiceUnavailable(t *testing.T) {
	svc := &Fake{Err: errors.New("connection refused")}
	w := testWorker(svc)
	stream := openFakeStream(t, testPCM(60, 100))

	_, _, err := w.CaptureAndRecognize(context.Background(), stream, "en-US")
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("got %v, want ErrServiceUnavailable", err)
	}
}

func TestCaptureCancelled(t *testing.T) {
	svc := &Fake{Text: "never"}
	w := testWorker(svc)
	stream := openFakeStream(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := w.CaptureAndRecognize(ctx, stream, "en-US")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestEmitsAudioLevels(t *testing.T) {
	svc := &Fake{Text: "hi"}
	w := testWorker(svc)

	levels := make(chan int, 256)
	w.OnLevel = func(level int) {
		select {
		case levels <- level:
		default:
		}
	}
	stream := openFakeStream(t, testPCM(60, 300))

	if _, _, err := w.CaptureAndRecognize(context.Background(), stream, "en-US"); err != nil {
		t.Fatalf("CaptureAndRecognize: %v", err)
	}
	close(levels)

	sawLoud, last := false, -1
	for level := range levels {
		if level < 0 || level > levelMax {
			t.Fatalf("level %d out of [0, %d]", level, levelMax)
		}
		if level > 0 {
			sawLoud = true
		}
		last = level
	}
	if !sawLoud {
		t.Error("expected at least one non-zero level sample")
	}
	if last != 0 {
		t.Errorf("final level = %d, want 0 reset", last)
	}
}

func TestRecognitionDiagnosticsLogged(t *testing.T) {
	dir := t.TempDir()
	log.SetDir(dir)
	if err := log.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close(); log.SetDir("") })

	svc := &Fake{Text: "hello"}
	w := testWorker(svc)
	stream := openFakeStream(t, testPCM(60, 100))
	if _, _, err := w.CaptureAndRecognize(context.Background(), stream, "en-US"); err != nil {
		t.Fatalf("CaptureAndRecognize: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "recognition") {
		t.Errorf("diagnostics missing recognition event: %q", content)
	}
	if !strings.Contains(content, "en-US") {
		t.Errorf("diagnostics missing language: %q", content)
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := make([]byte, 1000)
	data := encodeWAV(pcm, 16000)
	if len(data) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(data), 44+len(pcm))
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if rate := binary.LittleEndian.Uint32(data[24:]); rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if size := binary.LittleEndian.Uint32(data[40:]); size != 1000 {
		t.Errorf("data size = %d, want 1000", size)
	}
}

func TestScaleLevel(t *testing.T) {
	if got := scaleLevel(0); got != 0 {
		t.Errorf("scaleLevel(0) = %d", got)
	}
	if got := scaleLevel(1e9); got != levelMax {
		t.Errorf("scaleLevel(huge) = %d, want %d", got, levelMax)
	}
}
